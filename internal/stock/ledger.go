package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockcore/internal/metrics"
)

// Ledger owns on-hand quantity arithmetic. It keeps the record store and
// movement log consistent best-effort: the record mutation is authoritative,
// a failed audit append never rolls it back.
type Ledger struct {
	Store RecordStore
	Log   MovementLog
	Lg    *zap.Logger
}

// GetOrZero returns the stored record, or a synthetic zero-quantity view
// for a key that was never seen. Reads do not fail for unknown keys.
func (l *Ledger) GetOrZero(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID) (StockRecord, error) {
	rec, err := l.Store.Find(ctx, productID, variantID, warehouseID)
	if err != nil {
		return StockRecord{}, err
	}
	if rec == nil {
		return StockRecord{
			ProductID:   productID,
			VariantID:   variantID,
			WarehouseID: warehouseID,
			UpdatedAt:   time.Now().UTC(),
		}, nil
	}
	return *rec, nil
}

// ApplyDelta adjusts on-hand quantity, creating the record on first touch:
// inbound when delta is positive, outbound otherwise. The zero-delta case
// still logs an OUTBOUND movement, which downstream consumers rely on.
func (l *Ledger) ApplyDelta(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, warehouseID uuid.UUID, delta int, reason string) error {
	rec, err := l.Store.Find(ctx, productID, variantID, warehouseID)
	if err != nil {
		return err
	}

	var stockID uuid.UUID
	if rec == nil {
		stockID, err = l.Store.UpsertInitial(ctx, productID, variantID, warehouseID, delta)
		if err != nil {
			return err
		}
		l.Lg.Info("stock record created",
			zap.String("stock_id", stockID.String()),
			zap.String("product_id", productID.String()),
			zap.Int("quantity", delta))
	} else {
		stockID = rec.ID
		if err := l.Store.AdjustQuantity(ctx, productID, variantID, warehouseID, delta); err != nil {
			return err
		}
	}

	typ := MovementOutbound
	if delta > 0 {
		typ = MovementInbound
	}
	l.appendMovement(ctx, stockID, typ, delta, reason)
	return nil
}

func (l *Ledger) appendMovement(ctx context.Context, stockID uuid.UUID, typ MovementType, quantity int, reference string) {
	if _, err := l.Log.Append(ctx, stockID, typ, quantity, reference); err != nil {
		metrics.MovementAppendFailures.Inc()
		l.Lg.Warn("movement append failed",
			zap.String("stock_id", stockID.String()),
			zap.String("type", string(typ)),
			zap.Error(err))
	}
}
