package stock

import (
	"time"

	"github.com/google/uuid"
)

// StockRecord is the quantity state for one (product, variant, warehouse)
// combination. AvailableQuantity is always Quantity - ReservedQuantity; the
// store keeps the three in step on every committed mutation.
type StockRecord struct {
	ID                uuid.UUID  `json:"id"`
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	WarehouseID       uuid.UUID  `json:"warehouse_id"`
	Quantity          int        `json:"quantity"`
	ReservedQuantity  int        `json:"reserved_quantity"`
	AvailableQuantity int        `json:"available_quantity"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Reservation is a claim by one requester (order) against one stock record.
// Repeat reservations for the same (order, record) pair accumulate quantity
// and keep the later expiry.
type Reservation struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	StockID   uuid.UUID `json:"stock_record_id"`
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type MovementType string

const (
	MovementInbound     MovementType = "INBOUND"
	MovementOutbound    MovementType = "OUTBOUND"
	MovementReservation MovementType = "RESERVATION"
	MovementRelease     MovementType = "RELEASE"
)

// Movement is an immutable audit entry for one quantity-affecting event.
// The movement log is secondary; StockRecord stays authoritative.
type Movement struct {
	ID        uuid.UUID    `json:"id"`
	StockID   uuid.UUID    `json:"stock_record_id"`
	Type      MovementType `json:"type"`
	Quantity  int          `json:"quantity"`
	Reference string       `json:"reference,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Line is one reservation request entry.
type Line struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	WarehouseID uuid.UUID
	Quantity    int
}

// ReleasedLine reports one stock record a release freed quantity on.
type ReleasedLine struct {
	StockID  uuid.UUID
	Quantity int
}
