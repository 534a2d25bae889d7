package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketsAlreadyIssued is returned by stores when an order already has tickets.
	ErrTicketsAlreadyIssued = errors.New("tickets already issued for order")
	// ErrStateConflict is returned when a conditional state transition did not match.
	ErrStateConflict = errors.New("state transition conflict")
)

// InsufficientCapacityError is returned when a finite pool has fewer tickets left than requested.
type InsufficientCapacityError struct {
	PoolOwnerID uuid.UUID
	Requested   int
	Available   int
}

func (e InsufficientCapacityError) Error() string {
	if e.Available <= 0 {
		return fmt.Sprintf("event %s is sold out (requested %d)", e.PoolOwnerID, e.Requested)
	}
	return fmt.Sprintf("only %d tickets left for event %s (requested %d)", e.Available, e.PoolOwnerID, e.Requested)
}

func (e InsufficientCapacityError) IsPermanent() bool {
	return true
}

type NodeNotFoundError struct {
	NodeID uuid.UUID
}

func (e NodeNotFoundError) Error() string {
	return fmt.Sprintf("event %s not found", e.NodeID)
}

func (e NodeNotFoundError) IsPermanent() bool {
	return true
}

type InvalidQuantityError struct {
	Quantity int
}

func (e InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1, got %d", e.Quantity)
}

type InvalidCapacityError struct {
	Capacity int
}

func (e InvalidCapacityError) Error() string {
	return fmt.Sprintf("capacity must be -1 (unlimited) or a non-negative number, got %d", e.Capacity)
}

// InvalidNodeError covers malformed event trees, e.g. a sub-event of a sub-event.
type InvalidNodeError struct {
	NodeID uuid.UUID
	Reason string
}

func (e InvalidNodeError) Error() string {
	return fmt.Sprintf("invalid event %s: %s", e.NodeID, e.Reason)
}

type UnauthorizedCancellationError struct {
	OrderID     uuid.UUID
	RequestedBy uuid.UUID
}

func (e UnauthorizedCancellationError) Error() string {
	return fmt.Sprintf("user %s is not allowed to cancel order %s", e.RequestedBy, e.OrderID)
}

type CancellationWindowClosedError struct {
	OrderID     uuid.UUID
	PoolOwnerID uuid.UUID
	StartsAt    time.Time
	Cutoff      time.Duration
}

func (e CancellationWindowClosedError) Error() string {
	return fmt.Sprintf(
		"order %s can no longer be cancelled: event %s starts at %s, cancellations close %s before start",
		e.OrderID, e.PoolOwnerID, e.StartsAt.Format(time.RFC3339), e.Cutoff,
	)
}

type OrderAlreadyCancelledError struct {
	OrderID uuid.UUID
}

func (e OrderAlreadyCancelledError) Error() string {
	return fmt.Sprintf("order %s is already cancelled", e.OrderID)
}

func (e OrderAlreadyCancelledError) IsPermanent() bool {
	return true
}

type PaymentFailedError struct {
	OrderID uuid.UUID
	Reason  string
}

func (e PaymentFailedError) Error() string {
	return fmt.Sprintf("payment for order %s failed: %s", e.OrderID, e.Reason)
}

// TicketCodeCollisionError is returned by stores when a generated entry code is already
// taken by an active ticket of the same pool owner. It never leaves the ticket issuer.
type TicketCodeCollisionError struct {
	PoolOwnerID uuid.UUID
	EntryCode   string
}

func (e TicketCodeCollisionError) Error() string {
	return fmt.Sprintf("entry code %s already in use for event %s", e.EntryCode, e.PoolOwnerID)
}

// PermanentError marks errors the message router must not retry.
type PermanentError interface {
	IsPermanent() bool
}

func IsPermanent(err error) bool {
	var permanent PermanentError
	return errors.As(err, &permanent) && permanent.IsPermanent()
}
