package entities

import (
	"time"

	"github.com/google/uuid"
)

type IEvent interface {
	IsInternal() bool
}

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: uuid.NewString(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type OrderPlaced_v1 struct {
	Header EventHeader `json:"header"`

	Order Order `json:"order"`
}

func (OrderPlaced_v1) IsInternal() bool { return false }

type OrderPaid_v1 struct {
	Header EventHeader `json:"header"`

	Order Order `json:"order"`
}

func (OrderPaid_v1) IsInternal() bool { return false }

type TicketsIssued_v1 struct {
	Header EventHeader `json:"header"`

	Order   Order    `json:"order"`
	Tickets []Ticket `json:"tickets"`
}

func (TicketsIssued_v1) IsInternal() bool { return false }

type OrderCancelled_v1 struct {
	Header EventHeader `json:"header"`

	Order         Order        `json:"order"`
	PreviousState PaymentState `json:"previous_state"`
	// TicketsLeft is the pool level after the release (-1 for unlimited pools).
	TicketsLeft int `json:"tickets_left"`
}

func (OrderCancelled_v1) IsInternal() bool { return false }

type OrderRefunded_v1 struct {
	Header EventHeader `json:"header"`

	OrderID uuid.UUID `json:"order_id"`
	Amount  Money     `json:"amount"`
}

func (OrderRefunded_v1) IsInternal() bool { return false }

type TicketUsed_v1 struct {
	Header EventHeader `json:"header"`

	Ticket Ticket `json:"ticket"`
}

func (TicketUsed_v1) IsInternal() bool { return false }

// PaymentConfirmed_v1 and PaymentFailed_v1 are published from gateway notifications
// and consumed by the order ledger only.
type PaymentConfirmed_v1 struct {
	Header EventHeader `json:"header"`

	OrderID   uuid.UUID `json:"order_id"`
	SessionID string    `json:"session_id"`
}

func (PaymentConfirmed_v1) IsInternal() bool { return true }

type PaymentFailed_v1 struct {
	Header EventHeader `json:"header"`

	OrderID   uuid.UUID `json:"order_id"`
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
}

func (PaymentFailed_v1) IsInternal() bool { return true }

func NewOrderPlaced(order Order) OrderPlaced_v1 {
	return OrderPlaced_v1{
		Header: NewEventHeaderWithIdempotencyKey(order.ID.String() + "-placed"),
		Order:  order,
	}
}

func NewOrderPaid(order Order) OrderPaid_v1 {
	return OrderPaid_v1{
		Header: NewEventHeaderWithIdempotencyKey(order.ID.String() + "-paid"),
		Order:  order,
	}
}

func NewTicketsIssued(order Order, tickets []Ticket) TicketsIssued_v1 {
	return TicketsIssued_v1{
		Header:  NewEventHeaderWithIdempotencyKey(order.ID.String() + "-issued"),
		Order:   order,
		Tickets: tickets,
	}
}

func NewOrderCancelled(cancelled CancelledOrder) OrderCancelled_v1 {
	return OrderCancelled_v1{
		Header:        NewEventHeaderWithIdempotencyKey(cancelled.Order.ID.String() + "-cancelled"),
		Order:         cancelled.Order,
		PreviousState: cancelled.PreviousState,
		TicketsLeft:   cancelled.Capacity.TicketsLeft,
	}
}

func NewTicketUsed(ticket Ticket) TicketUsed_v1 {
	return TicketUsed_v1{
		Header: NewEventHeaderWithIdempotencyKey(ticket.ID.String() + "-used"),
		Ticket: ticket,
	}
}
