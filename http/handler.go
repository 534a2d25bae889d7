package http

import (
	"context"
	"net/http"

	"github.com/george-bobby/eventtts-sap-sub000/allocation"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
)

type Handler struct {
	eventBus     EventPublisher
	catalog      EventCatalog
	pools        PoolResolver
	checkout     CheckoutService
	cancellation CancellationService
	orders       OrderReader
	verifier     EntryVerifier
	webhook      SignatureVerifier

	defaultCurrency string
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type EventCatalog interface {
	CreateEvent(ctx context.Context, ev allocation.NewEvent) (entities.EventNode, error)
}

type PoolResolver interface {
	ResolvePool(ctx context.Context, nodeID uuid.UUID) (entities.PoolView, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, nodeID uuid.UUID, buyerID uuid.UUID, quantity int) (allocation.OrderResult, error)
}

type CancellationService interface {
	Cancel(ctx context.Context, orderID uuid.UUID, requestingUserID uuid.UUID) (entities.CancelledOrder, error)
}

type OrderReader interface {
	OrderByID(ctx context.Context, orderID uuid.UUID) (entities.Order, error)
	TicketsByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.Ticket, error)
}

type EntryVerifier interface {
	Verify(ctx context.Context, entryCode string, poolOwnerID uuid.UUID) (allocation.Verification, error)
}

type SignatureVerifier interface {
	Verify(header http.Header, target string, body []byte) bool
}
