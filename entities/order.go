package entities

import (
	"time"

	"github.com/google/uuid"
)

type PaymentState string

const (
	PaymentFree      PaymentState = "free"
	PaymentPending   PaymentState = "pending"
	PaymentPaid      PaymentState = "paid"
	PaymentCancelled PaymentState = "cancelled"
)

// Reservation is the committed outcome of a reserve call. It is consumed once by order creation.
type Reservation struct {
	ID        uuid.UUID `json:"reservation_id"`
	OwnerID   uuid.UUID `json:"pool_owner_id"`
	NodeID    uuid.UUID `json:"event_id"`
	Quantity  int       `json:"quantity"`
	Unlimited bool      `json:"unlimited"`
}

type Order struct {
	ID           uuid.UUID    `json:"order_id" db:"order_id"`
	TargetNodeID uuid.UUID    `json:"event_id" db:"target_node_id"`
	PoolOwnerID  uuid.UUID    `json:"pool_owner_id" db:"pool_owner_id"`
	BuyerID      uuid.UUID    `json:"buyer_id" db:"buyer_id"`
	TicketCount  int          `json:"ticket_count" db:"ticket_count"`
	Amount       Money        `json:"amount" db:"amount"`
	PaymentState PaymentState `json:"payment_state" db:"payment_state"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

func (o Order) Cancelled() bool {
	return o.PaymentState == PaymentCancelled
}

// TicketsIssuable reports whether the order is settled and still holds its reservation.
func (o Order) TicketsIssuable() bool {
	return o.PaymentState == PaymentFree || o.PaymentState == PaymentPaid
}

// CancelledOrder is the result of the atomic order cancellation in a store.
type CancelledOrder struct {
	Order         Order          `json:"order"`
	PreviousState PaymentState   `json:"previous_state"`
	Capacity      CapacityRecord `json:"capacity"`
	// TicketsCancelled is the number of active tickets transitioned to cancelled.
	TicketsCancelled int `json:"tickets_cancelled"`
}
