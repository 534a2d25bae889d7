package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/george-bobby/eventtts-sap-sub000/api"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	httpAddr = "localhost:18080"
	baseURL  = "http://" + httpAddr
)

var webhookSigner = api.Signer{ClientID: "checkout-client", SecretKey: "webhook-secret"}

func doRequest(t *testing.T, method, path string, userID uuid.UUID, body any) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	httpReq, err := http.NewRequest(method, baseURL+path, bytes.NewBuffer(payload))
	require.NoError(t, err)

	httpReq.Header.Set("Correlation-ID", shortuuid.New())
	httpReq.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		httpReq.Header.Set("X-User-ID", userID.String())
	}

	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func sendPaymentNotification(t *testing.T, orderID uuid.UUID, status string) {
	t.Helper()

	body := []byte(fmt.Sprintf(
		`{"order":{"invoice_number":%q},"transaction":{"status":%q},"session":{"token_id":"tok-%s"}}`,
		orderID, status, orderID,
	))

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/payments/notifications", bytes.NewBuffer(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	webhookSigner.Sign(httpReq.Header, uuid.NewString(), time.Now(), "/payments/notifications", body)

	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(baseURL + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			if assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode) {
				return
			}
		},
		time.Second*10,
		time.Millisecond*50,
	)
}

func rowsContain(rows [][]string, value string) bool {
	for _, row := range rows {
		for _, col := range row {
			if col == value {
				return true
			}
		}
	}
	return false
}
