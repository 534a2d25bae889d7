package allocation

import (
	"context"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
)

type NodeRepository interface {
	// CreateNode stores a node. Owners are stored together with their capacity record,
	// dependents are stored with a nil record.
	CreateNode(ctx context.Context, node entities.EventNode, capacity *entities.CapacityRecord) error
	NodeByID(ctx context.Context, nodeID uuid.UUID) (entities.EventNode, error)
	CapacityRecord(ctx context.Context, ownerID uuid.UUID) (entities.CapacityRecord, error)
}

// CapacityStore holds the per owner counters. Both operations must be serialized per owner.
type CapacityStore interface {
	// Reserve decrements tickets left by quantity only if enough are left.
	// Unlimited records are returned untouched.
	Reserve(ctx context.Context, ownerID uuid.UUID, quantity int) (entities.CapacityRecord, error)
	// Release increments tickets left by quantity, clamped to the total capacity.
	Release(ctx context.Context, ownerID uuid.UUID, quantity int) (entities.CapacityRecord, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order entities.Order) error
	OrderByID(ctx context.Context, orderID uuid.UUID) (entities.Order, error)
	// MarkPaid moves a pending order to paid. Any other state yields ErrStateConflict.
	MarkPaid(ctx context.Context, orderID uuid.UUID) (entities.Order, error)
	// CancelOrder moves the order from one of the given states to cancelled and, in the same
	// atomic unit, releases its tickets back to the pool owner and cancels its active tickets.
	CancelOrder(ctx context.Context, orderID uuid.UUID, from ...entities.PaymentState) (entities.CancelledOrder, error)
	PendingOrdersCreatedBefore(ctx context.Context, before time.Time) ([]entities.Order, error)
}

type TicketRepository interface {
	// AddTickets stores all tickets of an order or none of them. Orders that are not
	// free or paid at that moment yield ErrStateConflict.
	AddTickets(ctx context.Context, order entities.Order, tickets []entities.Ticket) error
	TicketsByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.Ticket, error)
	TicketByEntryCode(ctx context.Context, poolOwnerID uuid.UUID, entryCode string) (entities.Ticket, error)
	// UpdateTicketStatus is a conditional transition, ErrStateConflict is returned
	// when the ticket is no longer in the from status.
	UpdateTicketStatus(ctx context.Context, ticketID uuid.UUID, from, to entities.TicketStatus, at time.Time) (entities.Ticket, error)
}

type Store interface {
	NodeRepository
	CapacityStore
	OrderRepository
	TicketRepository
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, amount entities.Money, metadata map[string]string) (entities.PaymentSession, error)
}
