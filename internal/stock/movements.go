package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MovementLog is the append-only audit trail. Appends are best-effort from
// the caller's point of view: the ledger and reservation manager log
// failures and move on.
type MovementLog interface {
	Append(ctx context.Context, stockID uuid.UUID, typ MovementType, quantity int, reference string) (uuid.UUID, error)
	List(ctx context.Context, stockID uuid.UUID, limit, offset int) ([]Movement, error)
}

type PGMovementLog struct {
	DB *pgxpool.Pool
}

func (l *PGMovementLog) Append(ctx context.Context, stockID uuid.UUID, typ MovementType, quantity int, reference string) (uuid.UUID, error) {
	var ref *string
	if reference != "" {
		ref = &reference
	}
	var id uuid.UUID
	err := l.DB.QueryRow(ctx, `
		INSERT INTO inventory.stock_movements (stock_item_id, movement_type, quantity, reference)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		stockID, string(typ), quantity, ref).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("append movement: %w", err)
	}
	return id, nil
}

func (l *PGMovementLog) List(ctx context.Context, stockID uuid.UUID, limit, offset int) ([]Movement, error) {
	rows, err := l.DB.Query(ctx, `
		SELECT id, stock_item_id, movement_type, quantity, COALESCE(reference, ''), created_at
		FROM inventory.stock_movements
		WHERE stock_item_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		stockID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.StockID, &m.Type, &m.Quantity, &m.Reference, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("list movements: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
