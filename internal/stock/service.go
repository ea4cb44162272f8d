package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "stockcore/internal/kafka"
)

// Publisher is the slice of the kafka producer the facade needs.
type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// ReserveItem is one requested line as it arrives from the transport.
type ReserveItem struct {
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int    `json:"quantity"`
}

// ReserveOutcome is the transport-facing reservation result. ReservationID
// is a fresh pass-through token for the caller's bookkeeping; reservations
// are stored and released by order id.
type ReserveOutcome struct {
	ReservationID string   `json:"reservation_id"`
	Success       bool     `json:"success"`
	FailedItems   []string `json:"failed_items"`
}

// Service is the single entry point for the transport layer. It validates
// identifiers, delegates to the ledger and reservation manager, and emits
// domain events after successful mutations. No stock arithmetic lives here.
type Service struct {
	Ledger       *Ledger
	Reservations *Manager
	Store        RecordStore
	Movements    MovementLog
	Producer     Publisher
	Name         string
	Lg           *zap.Logger
}

func (s *Service) GetStock(ctx context.Context, productID, variantID, warehouseID string) (StockRecord, error) {
	pid, vid, wid, err := parseKey(productID, variantID, warehouseID)
	if err != nil {
		return StockRecord{}, err
	}
	return s.Ledger.GetOrZero(ctx, pid, vid, wid)
}

func (s *Service) UpdateStock(ctx context.Context, productID, variantID, warehouseID string, delta int, reason string) error {
	pid, vid, wid, err := parseKey(productID, variantID, warehouseID)
	if err != nil {
		return err
	}
	if err := s.Ledger.ApplyDelta(ctx, pid, vid, wid, delta, reason); err != nil {
		return err
	}
	s.emit(EventStockAdjusted, TopicStockAdjusted, productID, StockAdjustedPayload{
		ProductID:   productID,
		VariantID:   variantID,
		WarehouseID: warehouseID,
		Delta:       delta,
		Reason:      reason,
	})
	return nil
}

func (s *Service) ReserveStock(ctx context.Context, orderID string, items []ReserveItem, expiresAt time.Time) (ReserveOutcome, error) {
	oid, err := parseID(orderID)
	if err != nil {
		return ReserveOutcome{}, err
	}

	lines := make([]Line, 0, len(items))
	reserved := make([]LineQty, 0, len(items))
	for _, it := range items {
		pid, vid, wid, err := parseKey(it.ProductID, it.VariantID, it.WarehouseID)
		if err != nil {
			return ReserveOutcome{}, err
		}
		lines = append(lines, Line{ProductID: pid, VariantID: vid, WarehouseID: wid, Quantity: it.Quantity})
		reserved = append(reserved, LineQty{ProductID: it.ProductID, Qty: it.Quantity})
	}

	res := s.Reservations.Reserve(ctx, oid, lines, expiresAt)

	out := ReserveOutcome{
		ReservationID: uuid.NewString(),
		Success:       res.Success,
		FailedItems:   make([]string, 0, len(res.FailedProducts)),
	}
	for _, p := range res.FailedProducts {
		out.FailedItems = append(out.FailedItems, p.String())
	}

	if res.Success {
		s.emit(EventStockReserved, TopicStockReserved, orderID, StockReservedPayload{OrderID: orderID, Items: reserved})
	} else {
		s.emit(EventStockRejected, TopicStockRejected, orderID, StockRejectedPayload{
			OrderID:     orderID,
			Reason:      "OUT_OF_STOCK",
			FailedItems: out.FailedItems,
		})
	}
	return out, nil
}

func (s *Service) ReleaseStock(ctx context.Context, orderID string) error {
	oid, err := parseID(orderID)
	if err != nil {
		return err
	}
	if err := s.Reservations.Release(ctx, oid); err != nil {
		return err
	}
	s.emit(EventStockReleased, TopicStockReleased, orderID, StockReleasedPayload{OrderID: orderID})
	return nil
}

func (s *Service) ListMovements(ctx context.Context, stockID string, page, limit int) ([]Movement, error) {
	id, err := parseID(stockID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	return s.Movements.List(ctx, id, limit, (page-1)*limit)
}

func (s *Service) emit(eventType, topic, correlationID string, payload any) {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Name,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.Producer.Publish(topic, PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func parseKey(productID, variantID, warehouseID string) (uuid.UUID, *uuid.UUID, uuid.UUID, error) {
	pid, err := parseID(productID)
	if err != nil {
		return uuid.Nil, nil, uuid.Nil, err
	}
	wid, err := parseID(warehouseID)
	if err != nil {
		return uuid.Nil, nil, uuid.Nil, err
	}
	var vid *uuid.UUID
	if variantID != "" {
		v, err := parseID(variantID)
		if err != nil {
			return uuid.Nil, nil, uuid.Nil, err
		}
		vid = &v
	}
	return pid, vid, wid, nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}
