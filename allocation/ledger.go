package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultPaymentTimeout = 15 * time.Minute

type OrderResult struct {
	Order       entities.Order    `json:"order"`
	Tickets     []entities.Ticket `json:"tickets,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
}

type Ledger struct {
	orders         OrderRepository
	allocator      *Allocator
	issuer         *Issuer
	gateway        PaymentGateway
	observer       Observer
	paymentTimeout time.Duration
	now            func() time.Time
}

func NewLedger(
	orders OrderRepository,
	allocator *Allocator,
	issuer *Issuer,
	gateway PaymentGateway,
	observer Observer,
	paymentTimeout time.Duration,
	now func() time.Time,
) *Ledger {
	if orders == nil {
		panic("orders repository is required")
	}
	if allocator == nil {
		panic("allocator is required")
	}
	if issuer == nil {
		panic("issuer is required")
	}
	if gateway == nil {
		panic("payment gateway is required")
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if now == nil {
		now = time.Now
	}

	return &Ledger{
		orders:         orders,
		allocator:      allocator,
		issuer:         issuer,
		gateway:        gateway,
		observer:       observer,
		paymentTimeout: paymentTimeout,
		now:            now,
	}
}

// RecordOrder turns a committed reservation into an order. Free orders get their tickets
// right away, paid orders wait for the gateway confirmation. When recording fails the
// reservation is given back before returning.
func (l *Ledger) RecordOrder(
	ctx context.Context,
	reservation entities.Reservation,
	buyerID uuid.UUID,
	targetNodeID uuid.UUID,
	amount entities.Money,
	isFree bool,
) (OrderResult, error) {
	now := l.now().UTC()
	order := entities.Order{
		ID:           uuid.New(),
		TargetNodeID: targetNodeID,
		PoolOwnerID:  reservation.OwnerID,
		BuyerID:      buyerID,
		TicketCount:  reservation.Quantity,
		Amount:       amount,
		PaymentState: entities.PaymentPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	free := isFree || amount.IsZero()
	if free {
		order.PaymentState = entities.PaymentFree
	}

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":      order.ID,
		"pool_owner_id": order.PoolOwnerID,
		"ticket_count":  order.TicketCount,
	})

	if err := l.orders.CreateOrder(ctx, order); err != nil {
		err = fmt.Errorf("could not create order: %w", err)
		if releaseErr := l.allocator.Release(ctx, reservation); releaseErr != nil {
			return OrderResult{}, errors.Join(err, releaseErr)
		}
		return OrderResult{}, err
	}

	if free {
		tickets, err := l.issuer.IssueTickets(ctx, order)
		if err != nil {
			err = fmt.Errorf("could not issue tickets of free order %s: %w", order.ID, err)
			if _, cancelErr := l.cancel(ctx, order.ID, entities.PaymentFree); cancelErr != nil {
				return OrderResult{}, errors.Join(err, cancelErr)
			}
			return OrderResult{}, err
		}

		logger.Info("Free order recorded")
		return OrderResult{Order: order, Tickets: tickets}, nil
	}

	session, err := l.gateway.CreateSession(ctx, amount, map[string]string{
		"order_id":      order.ID.String(),
		"pool_owner_id": order.PoolOwnerID.String(),
		"buyer_id":      order.BuyerID.String(),
	})
	if err != nil {
		logger.WithError(err).Warn("Could not create payment session")

		failed := entities.PaymentFailedError{OrderID: order.ID, Reason: err.Error()}
		if _, cancelErr := l.cancel(ctx, order.ID, entities.PaymentPending); cancelErr != nil {
			return OrderResult{}, errors.Join(failed, cancelErr)
		}
		return OrderResult{}, failed
	}

	logger.WithField("session_id", session.SessionID).Info("Order waiting for payment")

	return OrderResult{Order: order, RedirectURL: session.RedirectURL}, nil
}

// ConfirmPayment marks a pending order as paid and issues its tickets. Confirming an
// already paid order returns its tickets again. A confirmation for a cancelled order
// returns the cancelled order without tickets, the caller is responsible for the refund.
func (l *Ledger) ConfirmPayment(ctx context.Context, orderID uuid.UUID) (OrderResult, error) {
	order, err := l.orders.MarkPaid(ctx, orderID)
	if errors.Is(err, entities.ErrStateConflict) {
		order, err = l.orders.OrderByID(ctx, orderID)
		if err != nil {
			return OrderResult{}, err
		}
		if order.PaymentState != entities.PaymentPaid {
			log.FromContext(ctx).WithFields(logrus.Fields{
				"order_id":      orderID,
				"payment_state": order.PaymentState,
			}).Warn("Payment confirmed for order that is not pending")
			return OrderResult{Order: order}, nil
		}
	} else if err != nil {
		return OrderResult{}, fmt.Errorf("could not mark order %s as paid: %w", orderID, err)
	}

	tickets, err := l.issuer.IssueTickets(ctx, order)
	if errors.Is(err, entities.ErrStateConflict) {
		// cancelled after it was marked paid, the cancellation already released its tickets
		current, getErr := l.orders.OrderByID(ctx, orderID)
		if getErr != nil {
			return OrderResult{}, errors.Join(err, getErr)
		}
		if current.Cancelled() {
			log.FromContext(ctx).WithField("order_id", orderID).Warn("Order cancelled while its payment was confirmed")
			return OrderResult{Order: current}, nil
		}
	}
	if err != nil {
		return OrderResult{}, fmt.Errorf("could not issue tickets of paid order %s: %w", orderID, err)
	}

	return OrderResult{Order: order, Tickets: tickets}, nil
}

// FailPayment cancels a pending order and releases its tickets. Repeated failures
// (or failures after a cancellation) are no-ops.
func (l *Ledger) FailPayment(ctx context.Context, orderID uuid.UUID, reason string) error {
	_, err := l.cancel(ctx, orderID, entities.PaymentPending)

	var alreadyCancelled entities.OrderAlreadyCancelledError
	switch {
	case err == nil:
		log.FromContext(ctx).WithFields(logrus.Fields{
			"order_id": orderID,
			"reason":   reason,
		}).Info("Payment failed, order cancelled")
		return nil
	case errors.As(err, &alreadyCancelled):
		return nil
	case errors.Is(err, entities.ErrStateConflict):
		log.FromContext(ctx).WithField("order_id", orderID).Warn("Payment failure for order that is not pending, ignoring")
		return nil
	default:
		return err
	}
}

// ExpireStalePayments cancels orders that waited for payment longer than the payment timeout.
func (l *Ledger) ExpireStalePayments(ctx context.Context) (int, error) {
	before := l.now().UTC().Add(-l.paymentTimeout)

	orders, err := l.orders.PendingOrdersCreatedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("could not list pending orders: %w", err)
	}

	expired := 0
	for _, order := range orders {
		_, err := l.cancel(ctx, order.ID, entities.PaymentPending)

		var alreadyCancelled entities.OrderAlreadyCancelledError
		if errors.Is(err, entities.ErrStateConflict) || errors.As(err, &alreadyCancelled) {
			// paid or cancelled in the meantime
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		log.FromContext(ctx).WithField("orders", expired).Info("Expired orders waiting for payment")
	}

	return expired, nil
}

func (l *Ledger) cancel(ctx context.Context, orderID uuid.UUID, from ...entities.PaymentState) (entities.CancelledOrder, error) {
	cancelled, err := l.orders.CancelOrder(ctx, orderID, from...)
	if err != nil {
		return entities.CancelledOrder{}, err
	}

	if !cancelled.Capacity.Unlimited() {
		l.observer.TicketsReleased(cancelled.Order.TicketCount)
	}
	l.observer.PoolChanged(cancelled.Capacity)

	return cancelled, nil
}
