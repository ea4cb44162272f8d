package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockcore/internal/metrics"
)

// DefaultHold is the expiry horizon applied when the caller supplies none.
const DefaultHold = 30 * time.Minute

// ReserveResult reports the outcome of a multi-line reservation request.
// Success is true only when every line was admitted; FailedProducts lists
// the product id of every line that was not, regardless of reason.
type ReserveResult struct {
	Success        bool
	FailedProducts []uuid.UUID
}

// Manager arbitrates concurrent demand for stock. Admission goes through
// the store's conditional increment; the manager never reads availability
// and writes reserved quantity as two separate steps.
type Manager struct {
	Store RecordStore
	Log   MovementLog
	Lg    *zap.Logger

	// Hold overrides DefaultHold when set.
	Hold time.Duration
}

// Reserve admits each line independently, best-effort: one line failing
// (unknown key, insufficient stock, lost race, storage error) does not stop
// or undo the others.
func (m *Manager) Reserve(ctx context.Context, orderID uuid.UUID, lines []Line, expiresAt time.Time) ReserveResult {
	if expiresAt.IsZero() {
		hold := m.Hold
		if hold <= 0 {
			hold = DefaultHold
		}
		expiresAt = time.Now().UTC().Add(hold)
	}

	res := ReserveResult{Success: true}
	for _, line := range lines {
		if !m.reserveLine(ctx, orderID, line, expiresAt) {
			res.Success = false
			res.FailedProducts = append(res.FailedProducts, line.ProductID)
			metrics.ReservationsDenied.Inc()
			continue
		}
		metrics.ReservationsAdmitted.Inc()
	}
	return res
}

func (m *Manager) reserveLine(ctx context.Context, orderID uuid.UUID, line Line, expiresAt time.Time) bool {
	if line.Quantity <= 0 {
		return false
	}

	rec, err := m.Store.Find(ctx, line.ProductID, line.VariantID, line.WarehouseID)
	if err != nil {
		m.Lg.Error("stock lookup failed", zap.String("product_id", line.ProductID.String()), zap.Error(err))
		return false
	}
	if rec == nil || rec.AvailableQuantity < line.Quantity {
		return false
	}

	err = m.Store.ReserveLine(ctx, orderID, rec.ID, line.Quantity, expiresAt)
	if errors.Is(err, ErrInsufficientStock) {
		// lost the race to a concurrent reserver
		return false
	}
	if err != nil {
		m.Lg.Error("reserve failed", zap.String("product_id", line.ProductID.String()), zap.Error(err))
		return false
	}

	m.appendMovement(ctx, rec.ID, MovementReservation, line.Quantity, fmt.Sprintf("order: %s", orderID))
	return true
}

// Release frees everything orderID holds and deletes its reservations.
// Releasing a requester with no reservations is a no-op; the call is
// idempotent and safe to repeat.
func (m *Manager) Release(ctx context.Context, orderID uuid.UUID) error {
	lines, err := m.Store.ReleaseRequester(ctx, orderID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for _, l := range lines {
		m.appendMovement(ctx, l.StockID, MovementRelease, l.Quantity, fmt.Sprintf("order: %s", orderID))
	}
	metrics.ReleasesTotal.Inc()
	return nil
}

// ReleaseExpired releases every requester holding at least one reservation
// past its expiry. Run by the sweeper on a schedule, never by the core
// request path.
func (m *Manager) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := m.Store.ExpiredRequesters(ctx, now)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, id := range ids {
		if err := m.Release(ctx, id); err != nil {
			m.Lg.Error("expired release failed", zap.String("order_id", id.String()), zap.Error(err))
			continue
		}
		released++
	}
	return released, nil
}

func (m *Manager) appendMovement(ctx context.Context, stockID uuid.UUID, typ MovementType, quantity int, reference string) {
	if _, err := m.Log.Append(ctx, stockID, typ, quantity, reference); err != nil {
		metrics.MovementAppendFailures.Inc()
		m.Lg.Warn("movement append failed",
			zap.String("stock_id", stockID.String()),
			zap.String("type", string(typ)),
			zap.Error(err))
	}
}
