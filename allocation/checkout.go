package allocation

import (
	"context"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
)

type Checkout struct {
	resolver  *Resolver
	allocator *Allocator
	ledger    *Ledger
}

func NewCheckout(resolver *Resolver, allocator *Allocator, ledger *Ledger) *Checkout {
	if resolver == nil || allocator == nil || ledger == nil {
		panic("resolver, allocator and ledger are required")
	}

	return &Checkout{resolver: resolver, allocator: allocator, ledger: ledger}
}

// Checkout buys quantity tickets of the node for the buyer. Price and free flag
// always come from the pool owner.
func (c *Checkout) Checkout(ctx context.Context, nodeID uuid.UUID, buyerID uuid.UUID, quantity int) (OrderResult, error) {
	if quantity < 1 {
		return OrderResult{}, entities.InvalidQuantityError{Quantity: quantity}
	}

	pool, err := c.resolver.ResolvePool(ctx, nodeID)
	if err != nil {
		return OrderResult{}, err
	}

	reservation, err := c.allocator.Reserve(ctx, nodeID, quantity)
	if err != nil {
		return OrderResult{}, err
	}

	return c.ledger.RecordOrder(
		ctx,
		reservation,
		buyerID,
		nodeID,
		pool.Price.Times(quantity),
		pool.IsFree,
	)
}
