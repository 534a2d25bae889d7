package entities

import "github.com/google/uuid"

// UnlimitedCapacity is the total capacity sentinel for pools without a limit.
const UnlimitedCapacity = -1

// CapacityRecord is the allocation pool state of a pool owner.
// It is only mutated through reserve and release operations of a store.
type CapacityRecord struct {
	EventID       uuid.UUID `json:"event_id" db:"event_id"`
	TotalCapacity int       `json:"total_capacity" db:"total_capacity"`
	TicketsLeft   int       `json:"tickets_left" db:"tickets_left"`
	SoldOut       bool      `json:"sold_out" db:"sold_out"`
}

func NewCapacityRecord(eventID uuid.UUID, totalCapacity int) (CapacityRecord, error) {
	if totalCapacity < UnlimitedCapacity {
		return CapacityRecord{}, InvalidCapacityError{Capacity: totalCapacity}
	}

	rec := CapacityRecord{
		EventID:       eventID,
		TotalCapacity: totalCapacity,
		TicketsLeft:   totalCapacity,
	}
	rec.SoldOut = rec.soldOut()

	return rec, nil
}

func (c CapacityRecord) Unlimited() bool {
	return c.TotalCapacity == UnlimitedCapacity
}

// Available returns how many units can still be reserved, -1 when unlimited.
func (c CapacityRecord) Available() int {
	if c.Unlimited() {
		return UnlimitedCapacity
	}
	return c.TicketsLeft
}

// Decrement applies a reservation of quantity units. The record is returned unchanged
// together with an InsufficientCapacityError when not enough units are left.
func (c CapacityRecord) Decrement(quantity int) (CapacityRecord, error) {
	if c.Unlimited() {
		return c, nil
	}
	if c.TicketsLeft < quantity {
		return c, InsufficientCapacityError{
			PoolOwnerID: c.EventID,
			Requested:   quantity,
			Available:   c.TicketsLeft,
		}
	}

	c.TicketsLeft -= quantity
	c.SoldOut = c.soldOut()

	return c, nil
}

// Increment returns quantity units to the pool, never above the total capacity.
func (c CapacityRecord) Increment(quantity int) CapacityRecord {
	if c.Unlimited() {
		return c
	}

	c.TicketsLeft = min(c.TotalCapacity, c.TicketsLeft+quantity)
	c.SoldOut = c.soldOut()

	return c
}

// Valid reports whether the record satisfies the pool invariants.
func (c CapacityRecord) Valid() bool {
	if c.Unlimited() {
		return c.TicketsLeft == UnlimitedCapacity && !c.SoldOut
	}
	return c.TotalCapacity >= 0 &&
		c.TicketsLeft >= 0 &&
		c.TicketsLeft <= c.TotalCapacity &&
		c.SoldOut == c.soldOut()
}

func (c CapacityRecord) soldOut() bool {
	return !c.Unlimited() && c.TicketsLeft <= 0
}
