package api

import (
	"context"
	"sync"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
)

type ReceiptsMock struct {
	mock sync.Mutex

	IssuedReceipts map[string]entities.IssueReceiptRequest
	VoidedReceipts []entities.VoidReceipt
}

func (c *ReceiptsMock) IssueReceipt(ctx context.Context, request entities.IssueReceiptRequest) (entities.IssueReceiptResponse, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.IssuedReceipts == nil {
		c.IssuedReceipts = make(map[string]entities.IssueReceiptRequest)
	}
	c.IssuedReceipts[request.IdempotencyKey] = request

	return entities.IssueReceiptResponse{
		ReceiptNumber: "mocked-receipt-number",
		IssuedAt:      time.Now(),
	}, nil
}

func (c *ReceiptsMock) VoidReceipt(ctx context.Context, request entities.VoidReceipt) error {
	c.mock.Lock()
	defer c.mock.Unlock()

	c.VoidedReceipts = append(c.VoidedReceipts, request)
	return nil
}

func (c *ReceiptsMock) IssuedFor(orderID string) bool {
	c.mock.Lock()
	defer c.mock.Unlock()

	for _, r := range c.IssuedReceipts {
		if r.OrderID == orderID {
			return true
		}
	}
	return false
}

func (c *ReceiptsMock) Voided() []entities.VoidReceipt {
	c.mock.Lock()
	defer c.mock.Unlock()

	return append([]entities.VoidReceipt(nil), c.VoidedReceipts...)
}
