package api

import (
	"context"
	"sync"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
)

type NotifierMock struct {
	lock sync.Mutex

	Confirmations map[uuid.UUID][]entities.Ticket
	Cancellations []uuid.UUID
}

func (n *NotifierMock) SendOrderConfirmation(ctx context.Context, order entities.Order, tickets []entities.Ticket) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.Confirmations == nil {
		n.Confirmations = make(map[uuid.UUID][]entities.Ticket)
	}
	n.Confirmations[order.ID] = tickets

	return nil
}

func (n *NotifierMock) SendCancellationNotice(ctx context.Context, order entities.Order) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.Cancellations = append(n.Cancellations, order.ID)
	return nil
}

func (n *NotifierMock) ConfirmedTickets(orderID uuid.UUID) ([]entities.Ticket, bool) {
	n.lock.Lock()
	defer n.lock.Unlock()

	tickets, ok := n.Confirmations[orderID]
	return tickets, ok
}

func (n *NotifierMock) Cancelled(orderID uuid.UUID) bool {
	n.lock.Lock()
	defer n.lock.Unlock()

	for _, id := range n.Cancellations {
		if id == orderID {
			return true
		}
	}
	return false
}
