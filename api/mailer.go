package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type mailMessage struct {
	Template   string          `json:"template"`
	OrderID    string          `json:"order_id"`
	BuyerID    string          `json:"buyer_id"`
	EventID    string          `json:"event_id"`
	Amount     entities.Money  `json:"amount"`
	Tickets    []mailTicketRow `json:"tickets,omitempty"`
}

type mailTicketRow struct {
	TicketID  string    `json:"ticket_id"`
	EntryCode string    `json:"entry_code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MailerClient hands notifications over to the notifications service.
// With an empty url messages are only logged.
type MailerClient struct {
	url        string
	httpClient *http.Client
}

func NewMailerClient(url string) *MailerClient {
	return &MailerClient{
		url: url,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   5 * time.Second,
		},
	}
}

func (m *MailerClient) SendOrderConfirmation(ctx context.Context, order entities.Order, tickets []entities.Ticket) error {
	return m.send(ctx, mailMessage{
		Template: "order-confirmation",
		OrderID:  order.ID.String(),
		BuyerID:  order.BuyerID.String(),
		EventID:  order.TargetNodeID.String(),
		Amount:   order.Amount,
		Tickets: lo.Map(tickets, func(t entities.Ticket, _ int) mailTicketRow {
			return mailTicketRow{
				TicketID:  t.ID.String(),
				EntryCode: t.EntryCode,
				ExpiresAt: t.ExpiresAt,
			}
		}),
	})
}

func (m *MailerClient) SendCancellationNotice(ctx context.Context, order entities.Order) error {
	return m.send(ctx, mailMessage{
		Template: "order-cancelled",
		OrderID:  order.ID.String(),
		BuyerID:  order.BuyerID.String(),
		EventID:  order.TargetNodeID.String(),
		Amount:   order.Amount,
	})
}

func (m *MailerClient) send(ctx context.Context, msg mailMessage) error {
	logger := log.FromContext(ctx).WithField("order_id", msg.OrderID).WithField("template", msg.Template)

	if m.url == "" {
		logger.Info("Notifications url not set, skipping mail")
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("could not marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status code from notifications service: %d", resp.StatusCode)
	}

	logger.Info("Mail sent")

	return nil
}
