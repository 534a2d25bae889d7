package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
)

type NewEvent struct {
	ID       uuid.UUID
	ParentID uuid.UUID
	Title    string
	StartsAt time.Time
	EndsAt   time.Time

	// Capacity, Price and IsFree may be set on main events only. A nil capacity means unlimited.
	Capacity *int
	Price    entities.Money
	IsFree   bool
}

type Catalog struct {
	nodes NodeRepository
	now   func() time.Time
}

func NewCatalog(nodes NodeRepository, now func() time.Time) *Catalog {
	if nodes == nil {
		panic("nodes repository is required")
	}
	if now == nil {
		now = time.Now
	}

	return &Catalog{nodes: nodes, now: now}
}

func (c *Catalog) CreateEvent(ctx context.Context, ev NewEvent) (entities.EventNode, error) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.EndsAt.Before(ev.StartsAt) {
		return entities.EventNode{}, entities.InvalidNodeError{NodeID: ev.ID, Reason: "event ends before it starts"}
	}

	if ev.ParentID != uuid.Nil {
		return c.createDependent(ctx, ev)
	}

	total := entities.UnlimitedCapacity
	if ev.Capacity != nil {
		total = *ev.Capacity
	}
	capacity, err := entities.NewCapacityRecord(ev.ID, total)
	if err != nil {
		return entities.EventNode{}, err
	}

	node := entities.NewOwnerNode(ev.ID, ev.Title, ev.StartsAt, ev.EndsAt, ev.Price, ev.IsFree || ev.Price.IsZero())
	node.CreatedAt = c.now().UTC()

	if err := c.nodes.CreateNode(ctx, node, &capacity); err != nil {
		return entities.EventNode{}, fmt.Errorf("could not create event %s: %w", node.ID, err)
	}

	return node, nil
}

func (c *Catalog) createDependent(ctx context.Context, ev NewEvent) (entities.EventNode, error) {
	if ev.Capacity != nil || !ev.Price.IsZero() || ev.IsFree {
		return entities.EventNode{}, entities.InvalidNodeError{
			NodeID: ev.ID,
			Reason: "capacity, price and free flag of a sub-event are taken from its main event",
		}
	}

	parent, err := c.nodes.NodeByID(ctx, ev.ParentID)
	if err != nil {
		return entities.EventNode{}, err
	}
	if parent.Kind != entities.NodeOwner {
		return entities.EventNode{}, entities.InvalidNodeError{NodeID: ev.ID, Reason: "sub-events cannot be nested"}
	}

	node := entities.NewDependentNode(ev.ID, parent.ID, ev.Title, ev.StartsAt, ev.EndsAt)
	node.CreatedAt = c.now().UTC()

	if err := c.nodes.CreateNode(ctx, node, nil); err != nil {
		return entities.EventNode{}, fmt.Errorf("could not create sub-event %s: %w", node.ID, err)
	}

	return node, nil
}
