package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	paymentNotificationsPath = "/payments/notifications"

	transactionSuccess = "SUCCESS"
	transactionFailed  = "FAILED"
	transactionExpired = "EXPIRED"
)

// paymentNotification is the body the checkout gateway posts when a session settles.
type paymentNotification struct {
	Order struct {
		InvoiceNumber string `json:"invoice_number"`
	} `json:"order"`
	Transaction struct {
		Status string `json:"status"`
		// Reason is set by the gateway for failed transactions only.
		Reason string `json:"reason"`
	} `json:"transaction"`
	Session struct {
		TokenID string `json:"token_id"`
	} `json:"session"`
}

func (h Handler) PostPaymentNotification(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fmt.Errorf("could not read notification body: %w", err)
	}

	if !h.webhook.Verify(c.Request().Header, paymentNotificationsPath, body) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid notification signature")
	}

	var notification paymentNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed notification")
	}

	orderID, err := uuid.Parse(notification.Order.InvoiceNumber)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid invoice number")
	}

	ctx := c.Request().Context()
	requestID := c.Request().Header.Get("Request-Id")

	var event any
	switch notification.Transaction.Status {
	case transactionSuccess:
		event = entities.PaymentConfirmed_v1{
			Header:    entities.NewEventHeaderWithIdempotencyKey(orderID.String() + "-payment-" + requestID),
			OrderID:   orderID,
			SessionID: notification.Session.TokenID,
		}
	case transactionFailed, transactionExpired:
		reason := notification.Transaction.Reason
		if reason == "" {
			reason = "payment " + notification.Transaction.Status
		}
		event = entities.PaymentFailed_v1{
			Header:    entities.NewEventHeaderWithIdempotencyKey(orderID.String() + "-payment-" + requestID),
			OrderID:   orderID,
			SessionID: notification.Session.TokenID,
			Reason:    reason,
		}
	default:
		log.FromContext(ctx).WithField("status", notification.Transaction.Status).Info("Ignoring payment notification")
		return c.NoContent(http.StatusOK)
	}

	if err := h.eventBus.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish payment event: %w", err)
	}

	return c.NoContent(http.StatusOK)
}
