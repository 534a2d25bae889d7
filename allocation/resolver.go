package allocation

import (
	"context"
	"fmt"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
)

// Resolver finds the pool owner of a node. It is the only place that branches on the node kind.
type Resolver struct {
	nodes NodeRepository
}

func NewResolver(nodes NodeRepository) *Resolver {
	if nodes == nil {
		panic("nodes repository is required")
	}

	return &Resolver{nodes: nodes}
}

func (r *Resolver) ResolveOwner(ctx context.Context, nodeID uuid.UUID) (entities.EventNode, error) {
	node, err := r.nodes.NodeByID(ctx, nodeID)
	if err != nil {
		return entities.EventNode{}, err
	}

	switch node.Kind {
	case entities.NodeOwner:
		return node, nil
	case entities.NodeDependent:
		owner, err := r.nodes.NodeByID(ctx, node.ParentID)
		if err != nil {
			return entities.EventNode{}, fmt.Errorf("could not get parent of %s: %w", node.ID, err)
		}
		if owner.Kind != entities.NodeOwner {
			return entities.EventNode{}, entities.InvalidNodeError{NodeID: node.ID, Reason: "parent is not a main event"}
		}
		return owner, nil
	default:
		return entities.EventNode{}, entities.InvalidNodeError{NodeID: node.ID, Reason: fmt.Sprintf("unknown kind %q", node.Kind)}
	}
}

// ResolvePool returns the capacity view of the node. For dependents it is the owner's
// record verbatim, together with the owner's price and free flag.
func (r *Resolver) ResolvePool(ctx context.Context, nodeID uuid.UUID) (entities.PoolView, error) {
	owner, err := r.ResolveOwner(ctx, nodeID)
	if err != nil {
		return entities.PoolView{}, err
	}

	capacity, err := r.nodes.CapacityRecord(ctx, owner.ID)
	if err != nil {
		return entities.PoolView{}, fmt.Errorf("could not get capacity of %s: %w", owner.ID, err)
	}

	return entities.PoolView{
		NodeID:   nodeID,
		OwnerID:  owner.ID,
		Owner:    owner,
		Capacity: capacity,
		Price:    owner.Price,
		IsFree:   owner.IsFree,
	}, nil
}
