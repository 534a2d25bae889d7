package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/allocation"
	"github.com/george-bobby/eventtts-sap-sub000/api"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	ticketsHttp "github.com/george-bobby/eventtts-sap-sub000/http"
	"github.com/george-bobby/eventtts-sap-sub000/memory"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	lock   sync.Mutex
	events []any
}

func (p *publisherMock) Publish(ctx context.Context, event any) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.events = append(p.events, event)
	return nil
}

func (p *publisherMock) Events() []any {
	p.lock.Lock()
	defer p.lock.Unlock()

	return append([]any(nil), p.events...)
}

var webhookSigner = api.Signer{ClientID: "gateway", SecretKey: "webhook-secret"}

type testServer struct {
	e         *echo.Echo
	svc       *allocation.Service
	publisher *publisherMock
}

func newTestServer(t *testing.T, jwtSecret string) testServer {
	t.Helper()

	store := memory.NewStore()
	svc := allocation.NewService(store, &api.CheckoutGatewayMock{}, allocation.DefaultConfig())
	publisher := &publisherMock{}

	e := ticketsHttp.NewHttpRouter(ticketsHttp.Dependencies{
		EventBus:        publisher,
		Catalog:         svc.Catalog,
		Pools:           svc.Resolver,
		Checkout:        svc.Checkout,
		Cancellation:    svc.Cancellation,
		Orders:          store,
		Verifier:        svc.Verifier,
		Webhook:         webhookSigner,
		DefaultCurrency: "USD",
		JWTSecret:       jwtSecret,
	})

	return testServer{e: e, svc: svc, publisher: publisher}
}

func (s testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	return rec
}

func asUser(userID uuid.UUID) map[string]string {
	return map[string]string{"X-User-ID": userID.String()}
}

func (s testServer) createEvent(t *testing.T, userID uuid.UUID, capacity int) entities.EventNode {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/events", map[string]any{
		"title":     "Tech fest",
		"starts_at": time.Now().Add(72 * time.Hour),
		"ends_at":   time.Now().Add(76 * time.Hour),
		"capacity":  capacity,
	}, asUser(userID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Event entities.EventNode `json:"event"`
		Pool  entities.PoolView  `json:"pool"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, capacity, resp.Pool.Capacity.TicketsLeft)

	return resp.Event
}

func TestCreateAndGetEvent(t *testing.T) {
	s := newTestServer(t, "")
	organizer := uuid.New()

	owner := s.createEvent(t, organizer, 10)

	rec := s.do(t, http.MethodPost, "/events", map[string]any{
		"parent_id": owner.ID,
		"title":     "Workshop",
		"starts_at": owner.StartsAt,
	}, asUser(organizer))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dependent struct {
		Event entities.EventNode `json:"event"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dependent))

	rec = s.do(t, http.MethodGet, "/events/"+dependent.Event.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var pool entities.PoolView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pool))
	assert.Equal(t, owner.ID, pool.OwnerID)
	assert.Equal(t, 10, pool.Capacity.TicketsLeft)

	rec = s.do(t, http.MethodGet, "/events/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/events", map[string]any{
		"parent_id": owner.ID,
		"title":     "Workshop",
		"starts_at": owner.StartsAt,
		"capacity":  5,
	}, asUser(organizer))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutAndCancel(t *testing.T) {
	s := newTestServer(t, "")
	buyer := uuid.New()

	event := s.createEvent(t, uuid.New(), 10)
	path := fmt.Sprintf("/events/%s/checkout", event.ID)

	rec := s.do(t, http.MethodPost, path, map[string]any{"quantity": 6}, asUser(buyer))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var checkout struct {
		Order   entities.Order    `json:"order"`
		Tickets []entities.Ticket `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checkout))
	assert.Len(t, checkout.Tickets, 6)
	assert.Equal(t, entities.PaymentFree, checkout.Order.PaymentState)

	rec = s.do(t, http.MethodPost, path, map[string]any{"quantity": 6}, asUser(uuid.New()))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "available")

	rec = s.do(t, http.MethodPost, path, map[string]any{"quantity": 0}, asUser(buyer))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ticketsPath := fmt.Sprintf("/orders/%s/tickets", checkout.Order.ID)
	rec = s.do(t, http.MethodGet, ticketsPath, nil, asUser(buyer))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, ticketsPath, nil, asUser(uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	cancelPath := fmt.Sprintf("/orders/%s/cancel", checkout.Order.ID)
	rec = s.do(t, http.MethodPost, cancelPath, nil, asUser(uuid.New()))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, cancelPath, nil, asUser(buyer))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cancelled struct {
		TicketsLeft      int `json:"tickets_left"`
		TicketsCancelled int `json:"tickets_cancelled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, 10, cancelled.TicketsLeft)
	assert.Equal(t, 6, cancelled.TicketsCancelled)

	rec = s.do(t, http.MethodPost, cancelPath, nil, asUser(buyer))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRequiresUser(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, fmt.Sprintf("/events/%s/checkout", uuid.New()), map[string]any{"quantity": 1}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEntryVerify(t *testing.T) {
	s := newTestServer(t, "")
	buyer := uuid.New()
	event := s.createEvent(t, uuid.New(), 10)

	result, err := s.svc.Checkout.Checkout(context.Background(), event.ID, buyer, 1)
	require.NoError(t, err)
	require.Len(t, result.Tickets, 1)

	body := map[string]any{"entry_code": result.Tickets[0].EntryCode, "pool_owner_id": event.ID}

	rec := s.do(t, http.MethodPost, "/entry/verify", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var verification allocation.Verification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verification))
	assert.True(t, verification.Accepted)

	rec = s.do(t, http.MethodPost, "/entry/verify", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verification))
	assert.False(t, verification.Accepted)
	assert.Equal(t, allocation.RejectedUsed, verification.Reason)
}

func TestPaymentNotification(t *testing.T) {
	s := newTestServer(t, "")
	orderID := uuid.New()

	body := []byte(fmt.Sprintf(`{"order":{"invoice_number":%q},"transaction":{"status":"SUCCESS"},"session":{"token_id":"tok-1"}}`, orderID))

	send := func(signer api.Signer) int {
		req := httptest.NewRequest(http.MethodPost, "/payments/notifications", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		signer.Sign(req.Header, uuid.NewString(), time.Now(), "/payments/notifications", body)

		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send(api.Signer{ClientID: "gateway", SecretKey: "wrong"}))
	assert.Empty(t, s.publisher.Events())

	assert.Equal(t, http.StatusOK, send(webhookSigner))

	events := s.publisher.Events()
	require.Len(t, events, 1)
	confirmed, ok := events[0].(entities.PaymentConfirmed_v1)
	require.True(t, ok)
	assert.Equal(t, orderID, confirmed.OrderID)
	assert.Equal(t, "tok-1", confirmed.SessionID)
}

func TestJWTAuthentication(t *testing.T) {
	secret := "jwt-secret"
	s := newTestServer(t, secret)

	token := func(userID uuid.UUID, role string) map[string]string {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": userID.String(),
			"role":    role,
			"exp":     time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(secret))
		require.NoError(t, err)

		return map[string]string{"Authorization": "Bearer " + signed}
	}

	event := map[string]any{
		"title":     "Tech fest",
		"starts_at": time.Now().Add(72 * time.Hour),
		"capacity":  3,
	}

	rec := s.do(t, http.MethodPost, "/events", event, asUser(uuid.New()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/events", event, token(uuid.New(), "buyer"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/events", event, token(uuid.New(), "organizer"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Event entities.EventNode `json:"event"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/events/%s/checkout", created.Event.ID), map[string]any{"quantity": 2}, token(uuid.New(), "buyer"))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
