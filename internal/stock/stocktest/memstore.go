// Package stocktest provides an in-memory RecordStore and MovementLog for
// tests. The mutex makes the check-and-increment atomic, mirroring the
// conditional update the Postgres store relies on.
package stocktest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockcore/internal/stock"
)

type resKey struct {
	orderID uuid.UUID
	stockID uuid.UUID
}

type MemStore struct {
	mu           sync.Mutex
	records      map[uuid.UUID]*stock.StockRecord
	byKey        map[string]uuid.UUID
	reservations map[resKey]*stock.Reservation
	movements    []stock.Movement

	// AppendErr makes every movement append fail.
	AppendErr error
	// ReleaseErr makes ReleaseRequester fail.
	ReleaseErr error
}

func New() *MemStore {
	return &MemStore{
		records:      make(map[uuid.UUID]*stock.StockRecord),
		byKey:        make(map[string]uuid.UUID),
		reservations: make(map[resKey]*stock.Reservation),
	}
}

func key(productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID) string {
	v := "-"
	if variantID != nil {
		v = variantID.String()
	}
	return productID.String() + "/" + v + "/" + warehouseID.String()
}

// Seed creates a record with the given on-hand quantity and no reservations.
func (m *MemStore) Seed(productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID, quantity int) uuid.UUID {
	id, _ := m.UpsertInitial(context.Background(), productID, variantID, warehouseID, quantity)
	return id
}

func (m *MemStore) Find(_ context.Context, productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID) (*stock.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[key(productID, variantID, warehouseID)]
	if !ok {
		return nil, nil
	}
	rec := *m.records[id]
	return &rec, nil
}

func (m *MemStore) FindByID(_ context.Context, id uuid.UUID) (*stock.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, stock.ErrNotFound
	}
	rec := *r
	return &rec, nil
}

func (m *MemStore) UpsertInitial(_ context.Context, productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID, quantity int) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(productID, variantID, warehouseID)
	if id, ok := m.byKey[k]; ok {
		r := m.records[id]
		r.Quantity += quantity
		m.sync(r)
		return id, nil
	}
	now := time.Now().UTC()
	r := &stock.StockRecord{
		ID:          uuid.New(),
		ProductID:   productID,
		VariantID:   variantID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		CreatedAt:   now,
	}
	m.sync(r)
	m.records[r.ID] = r
	m.byKey[k] = r.ID
	return r.ID, nil
}

func (m *MemStore) AdjustQuantity(_ context.Context, productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[key(productID, variantID, warehouseID)]
	if !ok {
		return nil
	}
	r := m.records[id]
	next := r.Quantity + delta
	if delta >= 0 && next < 0 {
		next = 0
	}
	r.Quantity = next
	m.sync(r)
	return nil
}

func (m *MemStore) ReserveLine(_ context.Context, orderID, stockID uuid.UUID, quantity int, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[stockID]
	if !ok || r.AvailableQuantity < quantity {
		return stock.ErrInsufficientStock
	}
	r.ReservedQuantity += quantity
	m.sync(r)

	rk := resKey{orderID: orderID, stockID: stockID}
	if res, ok := m.reservations[rk]; ok {
		res.Quantity += quantity
		if expiresAt.After(res.ExpiresAt) {
			res.ExpiresAt = expiresAt
		}
		return nil
	}
	m.reservations[rk] = &stock.Reservation{
		ID:        uuid.New(),
		OrderID:   orderID,
		StockID:   stockID,
		Quantity:  quantity,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (m *MemStore) ReleaseRequester(_ context.Context, orderID uuid.UUID) ([]stock.ReleasedLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReleaseErr != nil {
		return nil, m.ReleaseErr
	}
	var lines []stock.ReleasedLine
	for rk, res := range m.reservations {
		if rk.orderID != orderID {
			continue
		}
		if r, ok := m.records[rk.stockID]; ok {
			r.ReservedQuantity -= res.Quantity
			if r.ReservedQuantity < 0 {
				r.ReservedQuantity = 0
			}
			m.sync(r)
		}
		lines = append(lines, stock.ReleasedLine{StockID: rk.stockID, Quantity: res.Quantity})
		delete(m.reservations, rk)
	}
	return lines, nil
}

func (m *MemStore) ExpiredRequesters(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for rk, res := range m.reservations {
		if !res.ExpiresAt.After(cutoff) && !seen[rk.orderID] {
			seen[rk.orderID] = true
			ids = append(ids, rk.orderID)
		}
	}
	return ids, nil
}

func (m *MemStore) Append(_ context.Context, stockID uuid.UUID, typ stock.MovementType, quantity int, reference string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return uuid.Nil, m.AppendErr
	}
	mv := stock.Movement{
		ID:        uuid.New(),
		StockID:   stockID,
		Type:      typ,
		Quantity:  quantity,
		Reference: reference,
		CreatedAt: time.Now().UTC(),
	}
	m.movements = append(m.movements, mv)
	return mv.ID, nil
}

func (m *MemStore) List(_ context.Context, stockID uuid.UUID, limit, offset int) ([]stock.Movement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// most recent first
	var all []stock.Movement
	for i := len(m.movements) - 1; i >= 0; i-- {
		if m.movements[i].StockID == stockID {
			all = append(all, m.movements[i])
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Record returns a copy of the stored record.
func (m *MemStore) Record(id uuid.UUID) (stock.StockRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return stock.StockRecord{}, false
	}
	return *r, true
}

// Reservation returns a copy of the reservation for (orderID, stockID).
func (m *MemStore) Reservation(orderID, stockID uuid.UUID) (stock.Reservation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[resKey{orderID: orderID, stockID: stockID}]
	if !ok {
		return stock.Reservation{}, false
	}
	return *res, true
}

// MovementsFor returns all movements for a record, oldest first.
func (m *MemStore) MovementsFor(stockID uuid.UUID) []stock.Movement {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []stock.Movement
	for _, mv := range m.movements {
		if mv.StockID == stockID {
			out = append(out, mv)
		}
	}
	return out
}

// sync recomputes the derived column the way the generated column does.
func (m *MemStore) sync(r *stock.StockRecord) {
	r.AvailableQuantity = r.Quantity - r.ReservedQuantity
	r.UpdatedAt = time.Now().UTC()
}
