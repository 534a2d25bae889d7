package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	checkoutPath = "/checkout/v1/payment"

	// payment_due_date is expressed in minutes by the gateway
	defaultPaymentDueMinutes = 15
)

type checkoutRequest struct {
	Order   checkoutOrder   `json:"order"`
	Payment checkoutPayment `json:"payment"`
	// Metadata is echoed back in payment notifications.
	Metadata map[string]string `json:"additional_info,omitempty"`
}

type checkoutOrder struct {
	Amount              string `json:"amount"`
	InvoiceNumber       string `json:"invoice_number"`
	Currency            string `json:"currency"`
	AutoRedirect        bool   `json:"auto_redirect"`
	DisableRetryPayment bool   `json:"disable_retry_payment"`
}

type checkoutPayment struct {
	PaymentDueDate int `json:"payment_due_date"`
}

type checkoutResponse struct {
	Response struct {
		Payment struct {
			TokenID string `json:"token_id"`
			URL     string `json:"url"`
		} `json:"payment"`
	} `json:"response"`
}

type CheckoutGatewayClient struct {
	baseURL    string
	signer     Signer
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	dueMinutes int
}

func NewCheckoutGatewayClient(baseURL string, signer Signer, paymentTimeout time.Duration) *CheckoutGatewayClient {
	if baseURL == "" {
		panic("missing checkout gateway url")
	}

	dueMinutes := int(paymentTimeout / time.Minute)
	if dueMinutes < 1 {
		dueMinutes = defaultPaymentDueMinutes
	}

	return &CheckoutGatewayClient{
		baseURL: baseURL,
		signer:  signer,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "checkout-gateway",
			Timeout: 30 * time.Second,
		}),
		dueMinutes: dueMinutes,
	}
}

// CreateSession opens a hosted payment session for an order. The order id from
// metadata is used as the invoice number, so it is the payment reference too.
func (c *CheckoutGatewayClient) CreateSession(
	ctx context.Context,
	amount entities.Money,
	metadata map[string]string,
) (entities.PaymentSession, error) {
	body, err := json.Marshal(checkoutRequest{
		Order: checkoutOrder{
			Amount:              amount.Amount.String(),
			InvoiceNumber:       metadata["order_id"],
			Currency:            amount.Currency,
			DisableRetryPayment: true,
		},
		Payment:  checkoutPayment{PaymentDueDate: c.dueMinutes},
		Metadata: metadata,
	})
	if err != nil {
		return entities.PaymentSession{}, fmt.Errorf("could not marshal checkout request: %w", err)
	}

	resp, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return entities.PaymentSession{}, err
	}

	out := resp.(checkoutResponse)

	log.FromContext(ctx).WithField("order_id", metadata["order_id"]).Info("Payment session created")

	return entities.PaymentSession{
		SessionID:   out.Response.Payment.TokenID,
		RedirectURL: out.Response.Payment.URL,
	}, nil
}

func (c *CheckoutGatewayClient) post(ctx context.Context, body []byte) (checkoutResponse, error) {
	endpoint, err := url.JoinPath(c.baseURL, checkoutPath)
	if err != nil {
		return checkoutResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return checkoutResponse{}, fmt.Errorf("could not create checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.signer.Sign(req.Header, uuid.NewString(), time.Now(), checkoutPath, body)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return checkoutResponse{}, fmt.Errorf("could not send checkout request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return checkoutResponse{}, fmt.Errorf("could not read checkout response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return checkoutResponse{}, fmt.Errorf("unexpected status code from checkout gateway: %d", resp.StatusCode)
	}

	var out checkoutResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return checkoutResponse{}, fmt.Errorf("could not parse checkout response: %w", err)
	}
	if out.Response.Payment.URL == "" {
		return checkoutResponse{}, fmt.Errorf("checkout response has no payment url")
	}

	return out, nil
}
