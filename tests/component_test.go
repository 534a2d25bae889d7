package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/api"
	"github.com/george-bobby/eventtts-sap-sub000/config"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/george-bobby/eventtts-sap-sub000/service"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mocks struct {
	gateway      *api.CheckoutGatewayMock
	spreadsheets *api.SpreadsheetsMock
	receipts     *api.ReceiptsMock
	payments     *api.PaymentsMock
	notifier     *api.NotifierMock
}

func startService(t *testing.T) mocks {
	t.Helper()

	m := mocks{
		gateway:      &api.CheckoutGatewayMock{},
		spreadsheets: &api.SpreadsheetsMock{},
		receipts:     &api.ReceiptsMock{},
		payments:     &api.PaymentsMock{},
		notifier:     &api.NotifierMock{},
	}

	svc, err := service.New(service.Dependencies{
		Config: config.Config{
			HTTPAddr:             httpAddr,
			CheckoutClientID:     webhookSigner.ClientID,
			PaymentWebhookSecret: webhookSigner.SecretKey,
			PaymentTimeout:       15 * time.Minute,
			TicketGrace:          24 * time.Hour,
			CancellationCutoff:   time.Hour,
			DefaultCurrency:      "USD",
		},
		Gateway:           m.gateway,
		Spreadsheets:      m.spreadsheets,
		Receipts:          m.receipts,
		Payments:          m.payments,
		Notifier:          m.notifier,
		MetricsRegisterer: prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		assert.NoError(t, svc.Run(ctx))
	}()

	waitForHttpServer(t)

	return m
}

func TestComponent(t *testing.T) {
	m := startService(t)

	organizer := uuid.New()
	buyer := uuid.New()

	status, body := doRequest(t, http.MethodPost, "/events", organizer, map[string]any{
		"title":     "Concert",
		"starts_at": time.Now().Add(72 * time.Hour),
		"ends_at":   time.Now().Add(75 * time.Hour),
		"capacity":  10,
		"price":     map[string]string{"amount": "50.30", "currency": "GBP"},
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var created struct {
		Event entities.EventNode `json:"event"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	eventID := created.Event.ID

	t.Run("paid_order", func(t *testing.T) {
		status, body := doRequest(t, http.MethodPost, fmt.Sprintf("/events/%s/checkout", eventID), buyer, map[string]any{"quantity": 2})
		require.Equal(t, http.StatusAccepted, status, string(body))

		var checkout struct {
			Order       entities.Order `json:"order"`
			RedirectURL string         `json:"redirect_url"`
		}
		require.NoError(t, json.Unmarshal(body, &checkout))
		assert.NotEmpty(t, checkout.RedirectURL)
		assert.Equal(t, entities.PaymentPending, checkout.Order.PaymentState)
		assert.Equal(t, "100.6", checkout.Order.Amount.Amount.String())

		orderID := checkout.Order.ID
		sendPaymentNotification(t, orderID, "SUCCESS")

		var tickets []entities.Ticket
		require.EventuallyWithT(t, func(collectT *assert.CollectT) {
			status, body := doRequest(t, http.MethodGet, fmt.Sprintf("/orders/%s/tickets", orderID), buyer, nil)
			if !assert.Equal(collectT, http.StatusOK, status) {
				return
			}
			tickets = nil
			if !assert.NoError(collectT, json.Unmarshal(body, &tickets)) {
				return
			}
			assert.Len(collectT, tickets, 2)
		}, 10*time.Second, 100*time.Millisecond)

		assert.EventuallyWithT(t, func(collectT *assert.CollectT) {
			assert.True(collectT, m.receipts.IssuedFor(orderID.String()), "no receipt for order %s", orderID)

			confirmed, ok := m.notifier.ConfirmedTickets(orderID)
			if assert.True(collectT, ok, "no confirmation sent") {
				assert.Len(collectT, confirmed, 2)
			}

			rows := m.spreadsheets.RowsIn("tickets-to-print")
			for _, ticket := range tickets {
				assert.True(collectT, rowsContain(rows, ticket.EntryCode), "entry code %s not in tracker", ticket.EntryCode)
			}
		}, 10*time.Second, 100*time.Millisecond)

		status, body = doRequest(t, http.MethodPost, fmt.Sprintf("/orders/%s/cancel", orderID), buyer, nil)
		require.Equal(t, http.StatusOK, status, string(body))

		assert.EventuallyWithT(t, func(collectT *assert.CollectT) {
			refunds := m.payments.Refunded()
			if !assert.Len(collectT, refunds, 1) {
				return
			}
			assert.Empty(collectT, cmp.Diff(
				entities.PaymentRefund{PaymentReference: orderID.String(), Reason: "order cancelled by the buyer"},
				refunds[0],
				cmpopts.IgnoreFields(entities.PaymentRefund{}, "IdempotencyKey"),
			))

			voided := m.receipts.Voided()
			if assert.Len(collectT, voided, 1) {
				assert.Equal(collectT, orderID.String(), voided[0].OrderID)
			}

			assert.True(collectT, m.notifier.Cancelled(orderID))
			assert.True(collectT, rowsContain(m.spreadsheets.RowsIn("tickets-to-refund"), orderID.String()))
		}, 10*time.Second, 100*time.Millisecond)

		status, body = doRequest(t, http.MethodGet, "/events/"+eventID.String(), uuid.Nil, nil)
		require.Equal(t, http.StatusOK, status)

		var pool entities.PoolView
		require.NoError(t, json.Unmarshal(body, &pool))
		assert.Equal(t, 10, pool.Capacity.TicketsLeft)
	})

	t.Run("failed_payment_releases_tickets", func(t *testing.T) {
		status, body := doRequest(t, http.MethodPost, fmt.Sprintf("/events/%s/checkout", eventID), buyer, map[string]any{"quantity": 10})
		require.Equal(t, http.StatusAccepted, status, string(body))

		var checkout struct {
			Order entities.Order `json:"order"`
		}
		require.NoError(t, json.Unmarshal(body, &checkout))

		status, _ = doRequest(t, http.MethodPost, fmt.Sprintf("/events/%s/checkout", eventID), uuid.New(), map[string]any{"quantity": 1})
		assert.Equal(t, http.StatusConflict, status)

		sendPaymentNotification(t, checkout.Order.ID, "FAILED")

		assert.EventuallyWithT(t, func(collectT *assert.CollectT) {
			status, body := doRequest(t, http.MethodGet, "/events/"+eventID.String(), uuid.Nil, nil)
			if !assert.Equal(collectT, http.StatusOK, status) {
				return
			}

			var pool entities.PoolView
			if assert.NoError(collectT, json.Unmarshal(body, &pool)) {
				assert.Equal(collectT, 10, pool.Capacity.TicketsLeft)
			}
		}, 10*time.Second, 100*time.Millisecond)
	})

	t.Run("free_sub_event_and_entry", func(t *testing.T) {
		status, body := doRequest(t, http.MethodPost, "/events", organizer, map[string]any{
			"title":     "Meetup",
			"starts_at": time.Now().Add(48 * time.Hour),
		})
		require.Equal(t, http.StatusCreated, status, string(body))

		var owner struct {
			Event entities.EventNode `json:"event"`
		}
		require.NoError(t, json.Unmarshal(body, &owner))

		status, body = doRequest(t, http.MethodPost, "/events", organizer, map[string]any{
			"parent_id": owner.Event.ID,
			"title":     "Meetup workshop",
			"starts_at": time.Now().Add(49 * time.Hour),
		})
		require.Equal(t, http.StatusCreated, status, string(body))

		var dependent struct {
			Event entities.EventNode `json:"event"`
		}
		require.NoError(t, json.Unmarshal(body, &dependent))

		status, body = doRequest(t, http.MethodPost, fmt.Sprintf("/events/%s/checkout", dependent.Event.ID), buyer, map[string]any{"quantity": 3})
		require.Equal(t, http.StatusCreated, status, string(body))

		var checkout struct {
			Tickets []entities.Ticket `json:"tickets"`
		}
		require.NoError(t, json.Unmarshal(body, &checkout))
		require.Len(t, checkout.Tickets, 3)

		for _, ticket := range checkout.Tickets {
			assert.Equal(t, owner.Event.ID, ticket.PoolOwnerID)
		}

		verify := map[string]any{"entry_code": checkout.Tickets[0].EntryCode, "pool_owner_id": owner.Event.ID}

		status, body = doRequest(t, http.MethodPost, "/entry/verify", uuid.Nil, verify)
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), `"accepted":true`)

		status, body = doRequest(t, http.MethodPost, "/entry/verify", uuid.Nil, verify)
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), `"reason":"used"`)
	})
}
