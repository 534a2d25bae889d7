package api

import (
	"context"
	"errors"
	"sync"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
)

var ErrGatewayUnavailable = errors.New("checkout gateway unavailable")

type CheckoutGatewayMock struct {
	lock sync.Mutex

	// Fail makes every CreateSession call return ErrGatewayUnavailable.
	Fail     bool
	Sessions []map[string]string
}

func (c *CheckoutGatewayMock) CreateSession(ctx context.Context, amount entities.Money, metadata map[string]string) (entities.PaymentSession, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.Fail {
		return entities.PaymentSession{}, ErrGatewayUnavailable
	}

	c.Sessions = append(c.Sessions, metadata)
	sessionID := uuid.NewString()

	return entities.PaymentSession{
		SessionID:   sessionID,
		RedirectURL: "https://checkout.example.com/pay/" + sessionID,
	}, nil
}

func (c *CheckoutGatewayMock) SetFail(fail bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.Fail = fail
}
