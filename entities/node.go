package entities

import (
	"time"

	"github.com/google/uuid"
)

type NodeKind string

const (
	// NodeOwner is a main event that owns its Capacity Record.
	NodeOwner NodeKind = "owner"
	// NodeDependent is a sub-event mirroring its parent's pool.
	NodeDependent NodeKind = "dependent"
)

// EventNode is a main event or a sub-event. Dependents carry the id of their owner
// and never own capacity, price or free-flag themselves.
type EventNode struct {
	ID       uuid.UUID `json:"event_id" db:"event_id"`
	Kind     NodeKind  `json:"kind" db:"kind"`
	ParentID uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`

	Title    string    `json:"title" db:"title"`
	StartsAt time.Time `json:"starts_at" db:"starts_at"`
	EndsAt   time.Time `json:"ends_at" db:"ends_at"`

	// Price and IsFree are authoritative only on owners.
	Price  Money `json:"price" db:"price"`
	IsFree bool  `json:"is_free" db:"is_free"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func NewOwnerNode(id uuid.UUID, title string, startsAt, endsAt time.Time, price Money, isFree bool) EventNode {
	return EventNode{
		ID:       id,
		Kind:     NodeOwner,
		Title:    title,
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Price:    price,
		IsFree:   isFree,
	}
}

func NewDependentNode(id uuid.UUID, parentID uuid.UUID, title string, startsAt, endsAt time.Time) EventNode {
	return EventNode{
		ID:       id,
		Kind:     NodeDependent,
		ParentID: parentID,
		Title:    title,
		StartsAt: startsAt,
		EndsAt:   endsAt,
	}
}

// PoolView is the capacity view of a node, resolved through its pool owner.
type PoolView struct {
	NodeID   uuid.UUID      `json:"event_id"`
	OwnerID  uuid.UUID      `json:"pool_owner_id"`
	Owner    EventNode      `json:"-"`
	Capacity CapacityRecord `json:"capacity"`
	Price    Money          `json:"price"`
	IsFree   bool           `json:"is_free"`
}
