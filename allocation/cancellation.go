package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultCancellationCutoff = time.Hour

type Cancellation struct {
	orders   OrderRepository
	nodes    NodeRepository
	observer Observer
	cutoff   time.Duration
	now      func() time.Time
}

func NewCancellation(orders OrderRepository, nodes NodeRepository, observer Observer, cutoff time.Duration, now func() time.Time) *Cancellation {
	if orders == nil {
		panic("orders repository is required")
	}
	if nodes == nil {
		panic("nodes repository is required")
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if now == nil {
		now = time.Now
	}

	return &Cancellation{
		orders:   orders,
		nodes:    nodes,
		observer: observer,
		cutoff:   cutoff,
		now:      now,
	}
}

// Cancel cancels the order on behalf of its buyer and returns its tickets to the pool.
// Cancellations close the cutoff duration before the pool owner starts.
func (c *Cancellation) Cancel(ctx context.Context, orderID uuid.UUID, requestingUserID uuid.UUID) (entities.CancelledOrder, error) {
	order, err := c.orders.OrderByID(ctx, orderID)
	if err != nil {
		return entities.CancelledOrder{}, err
	}

	if order.BuyerID != requestingUserID {
		return entities.CancelledOrder{}, entities.UnauthorizedCancellationError{
			OrderID:     orderID,
			RequestedBy: requestingUserID,
		}
	}
	if order.Cancelled() {
		return entities.CancelledOrder{}, entities.OrderAlreadyCancelledError{OrderID: orderID}
	}

	owner, err := c.nodes.NodeByID(ctx, order.PoolOwnerID)
	if err != nil {
		return entities.CancelledOrder{}, fmt.Errorf("could not get pool owner of order %s: %w", orderID, err)
	}
	if owner.StartsAt.Sub(c.now()) < c.cutoff {
		return entities.CancelledOrder{}, entities.CancellationWindowClosedError{
			OrderID:     orderID,
			PoolOwnerID: owner.ID,
			StartsAt:    owner.StartsAt,
			Cutoff:      c.cutoff,
		}
	}

	cancelled, err := c.orders.CancelOrder(
		ctx,
		orderID,
		entities.PaymentFree,
		entities.PaymentPending,
		entities.PaymentPaid,
	)
	if err != nil {
		return entities.CancelledOrder{}, err
	}

	if !cancelled.Capacity.Unlimited() {
		c.observer.TicketsReleased(order.TicketCount)
	}
	c.observer.PoolChanged(cancelled.Capacity)

	log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":       orderID,
		"pool_owner_id":  order.PoolOwnerID,
		"previous_state": cancelled.PreviousState,
		"tickets_left":   cancelled.Capacity.TicketsLeft,
	}).Info("Order cancelled")

	return cancelled, nil
}
