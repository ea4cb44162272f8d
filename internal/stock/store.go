package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordStore is the durable store for stock records and their
// reservations. ReserveLine is the only admission point: its conditional
// increment must be atomic with respect to concurrent callers on the same
// record.
type RecordStore interface {
	Find(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID) (*StockRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*StockRecord, error)
	UpsertInitial(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID, quantity int) (uuid.UUID, error)
	AdjustQuantity(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID, delta int) error
	ReserveLine(ctx context.Context, orderID, stockID uuid.UUID, quantity int, expiresAt time.Time) error
	ReleaseRequester(ctx context.Context, orderID uuid.UUID) ([]ReleasedLine, error)
	ExpiredRequesters(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

type PGStore struct {
	DB *pgxpool.Pool
}

const recordColumns = `id, product_id, variant_id, warehouse_id, quantity, reserved_quantity, available_quantity, created_at, updated_at`

func (s *PGStore) Find(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID) (*StockRecord, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM inventory.stock_items
		WHERE product_id = $1 AND variant_id IS NOT DISTINCT FROM $2 AND warehouse_id = $3`,
		productID, variantID, warehouseID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find stock: %w", err)
	}
	return rec, nil
}

func (s *PGStore) FindByID(ctx context.Context, id uuid.UUID) (*StockRecord, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM inventory.stock_items
		WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find stock by id: %w", err)
	}
	return rec, nil
}

// UpsertInitial creates the record with zero reserved quantity; if a
// concurrent writer created it first, the quantity accumulates instead.
func (s *PGStore) UpsertInitial(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID, quantity int) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.DB.QueryRow(ctx, `
		INSERT INTO inventory.stock_items (product_id, variant_id, warehouse_id, quantity, reserved_quantity)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (product_id, variant_id, warehouse_id)
		DO UPDATE SET quantity = inventory.stock_items.quantity + $4, updated_at = now()
		RETURNING id`,
		productID, variantID, warehouseID, quantity).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert stock: %w", err)
	}
	return id, nil
}

// AdjustQuantity applies the delta in a single statement. Positive deltas
// clamp the result at zero, negative deltas are applied as-is: the ledger
// authorizes outbound amounts, the store does not.
func (s *PGStore) AdjustQuantity(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID, delta int) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE inventory.stock_items
		SET quantity = CASE WHEN $4 >= 0 THEN GREATEST(0, quantity + $4) ELSE quantity + $4 END,
		    updated_at = now()
		WHERE product_id = $1 AND variant_id IS NOT DISTINCT FROM $2 AND warehouse_id = $3`,
		productID, variantID, warehouseID, delta)
	if err != nil {
		return fmt.Errorf("adjust quantity: %w", err)
	}
	return nil
}

// ReserveLine performs the check-and-increment as one conditional UPDATE
// and upserts the reservation in the same transaction. When the guard
// fails (another reserver got there first, or there was never enough) it
// returns ErrInsufficientStock and commits nothing.
func (s *PGStore) ReserveLine(ctx context.Context, orderID, stockID uuid.UUID, quantity int, expiresAt time.Time) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE inventory.stock_items
		SET reserved_quantity = reserved_quantity + $1, updated_at = now()
		WHERE id = $2 AND available_quantity >= $1
		RETURNING id`,
		quantity, stockID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInsufficientStock
	}
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO inventory.stock_reservations (order_id, stock_item_id, quantity, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, stock_item_id) DO UPDATE SET
			quantity = inventory.stock_reservations.quantity + $3,
			expires_at = GREATEST(inventory.stock_reservations.expires_at, $4)`,
		orderID, stockID, quantity, expiresAt)
	if err != nil {
		return fmt.Errorf("upsert reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reserve: %w", err)
	}
	return nil
}

// ReleaseRequester frees every reservation held by orderID and deletes
// them, reporting which records were touched. Reserved quantity never goes
// below zero. A requester with no reservations releases nothing.
func (s *PGStore) ReleaseRequester(ctx context.Context, orderID uuid.UUID) ([]ReleasedLine, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin release: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		WITH released AS (
			SELECT sr.stock_item_id, sr.quantity
			FROM inventory.stock_reservations sr
			WHERE sr.order_id = $1
		)
		UPDATE inventory.stock_items si
		SET reserved_quantity = GREATEST(0, si.reserved_quantity - released.quantity),
		    updated_at = now()
		FROM released
		WHERE si.id = released.stock_item_id
		RETURNING si.id, released.quantity`, orderID)
	if err != nil {
		return nil, fmt.Errorf("release stock: %w", err)
	}
	var lines []ReleasedLine
	for rows.Next() {
		var l ReleasedLine
		if err := rows.Scan(&l.StockID, &l.Quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("release stock: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("release stock: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM inventory.stock_reservations WHERE order_id = $1`, orderID); err != nil {
		return nil, fmt.Errorf("delete reservations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit release: %w", err)
	}
	return lines, nil
}

func (s *PGStore) ExpiredRequesters(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT DISTINCT order_id
		FROM inventory.stock_reservations
		WHERE expires_at <= $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("expired requesters: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("expired requesters: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanRecord(row pgx.Row) (*StockRecord, error) {
	var r StockRecord
	err := row.Scan(
		&r.ID, &r.ProductID, &r.VariantID, &r.WarehouseID,
		&r.Quantity, &r.ReservedQuantity, &r.AvailableQuantity,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
