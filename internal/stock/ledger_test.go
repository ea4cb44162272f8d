package stock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stockcore/internal/stock"
	"stockcore/internal/stock/stocktest"
)

func newLedger(ms *stocktest.MemStore) *stock.Ledger {
	return &stock.Ledger{Store: ms, Log: ms, Lg: zap.NewNop()}
}

func TestApplyDeltaCreatesRecord(t *testing.T) {
	ms := stocktest.New()
	l := newLedger(ms)
	ctx := context.Background()

	product, warehouse := uuid.New(), uuid.New()
	require.NoError(t, l.ApplyDelta(ctx, product, nil, warehouse, 10, "initial intake"))

	rec, err := ms.Find(ctx, product, nil, warehouse)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, 0, rec.ReservedQuantity)
	assert.Equal(t, 10, rec.AvailableQuantity)

	moves := ms.MovementsFor(rec.ID)
	require.Len(t, moves, 1)
	assert.Equal(t, stock.MovementInbound, moves[0].Type)
	assert.Equal(t, 10, moves[0].Quantity)
	assert.Equal(t, "initial intake", moves[0].Reference)
}

func TestApplyDeltaOutbound(t *testing.T) {
	ms := stocktest.New()
	l := newLedger(ms)
	ctx := context.Background()

	product, warehouse := uuid.New(), uuid.New()
	require.NoError(t, l.ApplyDelta(ctx, product, nil, warehouse, 10, ""))
	require.NoError(t, l.ApplyDelta(ctx, product, nil, warehouse, -4, "shipment"))

	rec, err := ms.Find(ctx, product, nil, warehouse)
	require.NoError(t, err)
	assert.Equal(t, 6, rec.Quantity)
	assert.Equal(t, 6, rec.AvailableQuantity)

	moves := ms.MovementsFor(rec.ID)
	require.Len(t, moves, 2)
	assert.Equal(t, stock.MovementOutbound, moves[1].Type)
	assert.Equal(t, -4, moves[1].Quantity)
}

func TestApplyDeltaZeroLogsOutbound(t *testing.T) {
	ms := stocktest.New()
	l := newLedger(ms)
	ctx := context.Background()

	product, warehouse := uuid.New(), uuid.New()
	require.NoError(t, l.ApplyDelta(ctx, product, nil, warehouse, 5, ""))
	require.NoError(t, l.ApplyDelta(ctx, product, nil, warehouse, 0, ""))

	rec, err := ms.Find(ctx, product, nil, warehouse)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quantity)

	moves := ms.MovementsFor(rec.ID)
	require.Len(t, moves, 2)
	assert.Equal(t, stock.MovementOutbound, moves[1].Type)
	assert.Equal(t, 0, moves[1].Quantity)
}

func TestApplyDeltaVariantsAreDistinct(t *testing.T) {
	ms := stocktest.New()
	l := newLedger(ms)
	ctx := context.Background()

	product, warehouse := uuid.New(), uuid.New()
	variant := uuid.New()
	require.NoError(t, l.ApplyDelta(ctx, product, nil, warehouse, 3, ""))
	require.NoError(t, l.ApplyDelta(ctx, product, &variant, warehouse, 8, ""))

	base, err := ms.Find(ctx, product, nil, warehouse)
	require.NoError(t, err)
	withVariant, err := ms.Find(ctx, product, &variant, warehouse)
	require.NoError(t, err)
	assert.Equal(t, 3, base.Quantity)
	assert.Equal(t, 8, withVariant.Quantity)
}

func TestGetOrZeroUnknownKey(t *testing.T) {
	ms := stocktest.New()
	l := newLedger(ms)

	product, warehouse := uuid.New(), uuid.New()
	rec, err := l.GetOrZero(context.Background(), product, nil, warehouse)
	require.NoError(t, err)
	assert.Equal(t, product, rec.ProductID)
	assert.Equal(t, warehouse, rec.WarehouseID)
	assert.Equal(t, uuid.Nil, rec.ID)
	assert.Zero(t, rec.Quantity)
	assert.Zero(t, rec.ReservedQuantity)
	assert.Zero(t, rec.AvailableQuantity)
}

func TestApplyDeltaMovementFailureSwallowed(t *testing.T) {
	ms := stocktest.New()
	ms.AppendErr = errors.New("log unavailable")
	l := newLedger(ms)
	ctx := context.Background()

	product, warehouse := uuid.New(), uuid.New()
	require.NoError(t, l.ApplyDelta(ctx, product, nil, warehouse, 10, ""))

	rec, err := ms.Find(ctx, product, nil, warehouse)
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Quantity)
	assert.Empty(t, ms.MovementsFor(rec.ID))
}
