package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Allocator struct {
	resolver *Resolver
	capacity CapacityStore
	observer Observer
}

func NewAllocator(resolver *Resolver, capacity CapacityStore, observer Observer) *Allocator {
	if resolver == nil {
		panic("resolver is required")
	}
	if capacity == nil {
		panic("capacity store is required")
	}
	if observer == nil {
		observer = noopObserver{}
	}

	return &Allocator{
		resolver: resolver,
		capacity: capacity,
		observer: observer,
	}
}

// Reserve takes quantity tickets from the pool of the node's owner. Reservations are
// all or nothing: either the full quantity is committed or the pool is left unchanged.
func (a *Allocator) Reserve(ctx context.Context, nodeID uuid.UUID, quantity int) (entities.Reservation, error) {
	if quantity < 1 {
		return entities.Reservation{}, entities.InvalidQuantityError{Quantity: quantity}
	}

	owner, err := a.resolver.ResolveOwner(ctx, nodeID)
	if err != nil {
		return entities.Reservation{}, err
	}

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"pool_owner_id": owner.ID,
		"node_id":       nodeID,
		"quantity":      quantity,
	})

	capacity, err := a.capacity.Reserve(ctx, owner.ID, quantity)
	if err != nil {
		var insufficient entities.InsufficientCapacityError
		if errors.As(err, &insufficient) {
			a.observer.ReservationFinished(ResultInsufficient, quantity)
			logger.WithField("tickets_left", insufficient.Available).Info("Not enough tickets left")
			return entities.Reservation{}, err
		}

		a.observer.ReservationFinished(ResultError, quantity)
		return entities.Reservation{}, fmt.Errorf("could not reserve tickets of %s: %w", owner.ID, err)
	}

	a.observer.ReservationFinished(ResultReserved, quantity)
	a.observer.PoolChanged(capacity)
	logger.WithField("tickets_left", capacity.TicketsLeft).Info("Tickets reserved")

	return entities.Reservation{
		ID:        uuid.New(),
		OwnerID:   owner.ID,
		NodeID:    nodeID,
		Quantity:  quantity,
		Unlimited: capacity.Unlimited(),
	}, nil
}

// Release gives back a reservation that never became an order.
func (a *Allocator) Release(ctx context.Context, reservation entities.Reservation) error {
	if reservation.Unlimited {
		return nil
	}

	capacity, err := a.capacity.Release(ctx, reservation.OwnerID, reservation.Quantity)
	if err != nil {
		return fmt.Errorf("could not release reservation %s: %w", reservation.ID, err)
	}

	a.observer.TicketsReleased(reservation.Quantity)
	a.observer.PoolChanged(capacity)

	log.FromContext(ctx).WithFields(logrus.Fields{
		"pool_owner_id":  reservation.OwnerID,
		"reservation_id": reservation.ID,
		"quantity":       reservation.Quantity,
		"tickets_left":   capacity.TicketsLeft,
	}).Info("Reservation released")

	return nil
}
