package api

import (
	"context"
	"sync"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
)

type PaymentsMock struct {
	mock sync.Mutex

	Refunds []entities.PaymentRefund
}

func (c *PaymentsMock) RefundPayment(ctx context.Context, refund entities.PaymentRefund) error {
	c.mock.Lock()
	defer c.mock.Unlock()

	// the payments service deduplicates refunds by key
	for _, r := range c.Refunds {
		if refund.IdempotencyKey != "" && r.IdempotencyKey == refund.IdempotencyKey {
			return nil
		}
	}

	c.Refunds = append(c.Refunds, refund)
	return nil
}

func (c *PaymentsMock) Refunded() []entities.PaymentRefund {
	c.mock.Lock()
	defer c.mock.Unlock()

	return append([]entities.PaymentRefund(nil), c.Refunds...)
}
