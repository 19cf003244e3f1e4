package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletcore/p2p-wallet/internal/ledger"
	"github.com/walletcore/p2p-wallet/internal/logging"
	"github.com/walletcore/p2p-wallet/internal/onramp"
)

func newWebhookApp(t *testing.T, settler Settler, secret string) *fiber.App {
	t.Helper()
	h := NewHandler(NewGate(settler), secret, logging.Discard())
	app := fiber.New()
	app.Post("/hdfcWebhook", h.Capture)
	app.Post("/hdfcWebhook/failure", h.Release)
	return app
}

func seededStore(t *testing.T) ledger.Store {
	t.Helper()
	store := ledger.NewInMemory()
	ledger.SeedBalance(store, 1, 0, 5_000)
	ledger.SeedOnRamp(store, ledger.OnRampTransaction{Token: "tok-1", UserID: 1, Amount: 5_000, Status: ledger.StatusProcessing, Provider: "HDFC Bank"})
	return store
}

func post(t *testing.T, app *fiber.App, path, body string, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp.StatusCode, decoded.Message
}

func TestCaptureThenRedelivery(t *testing.T) {
	store := seededStore(t)
	svc := onramp.NewService(store, onramp.DefaultProviders(), nil, nil, logging.Discard())
	app := newWebhookApp(t, svc, "")
	body := `{"token":"tok-1","user_identifier":"1","amount":"5000"}`

	status, msg := post(t, app, "/hdfcWebhook", body, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Captured", msg)

	bal, _ := store.Balance(context.Background(), 1)
	assert.Equal(t, ledger.Balance{UserID: 1, Amount: 5_000, Locked: 0}, bal)

	status, msg = post(t, app, "/hdfcWebhook", body, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid transaction: Transaction already Success", msg)

	bal, _ = store.Balance(context.Background(), 1)
	assert.Equal(t, ledger.Balance{UserID: 1, Amount: 5_000, Locked: 0}, bal)
}

func TestCaptureRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"unknown token", `{"token":"nope","user_identifier":"1","amount":"5000"}`, "Invalid token: Transaction not found"},
		{"missing token", `{"user_identifier":"1","amount":"5000"}`, "Invalid token: Transaction not found"},
		{"user mismatch", `{"token":"tok-1","user_identifier":"2","amount":"5000"}`, "Invalid transaction: User ID mismatch"},
		{"amount off by one", `{"token":"tok-1","user_identifier":"1","amount":"5001"}`, "Invalid transaction: Amount mismatch"},
		{"invalid json", `{"token":`, "Invalid payload"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := seededStore(t)
			svc := onramp.NewService(store, onramp.DefaultProviders(), nil, nil, logging.Discard())
			app := newWebhookApp(t, svc, "")

			status, msg := post(t, app, "/hdfcWebhook", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tc.msg, msg)

			bal, _ := store.Balance(context.Background(), 1)
			assert.Equal(t, ledger.Balance{UserID: 1, Amount: 0, Locked: 5_000}, bal)
			txn, _ := store.OnRamp(context.Background(), "tok-1")
			assert.Equal(t, ledger.StatusProcessing, txn.Status)
		})
	}
}

func TestCaptureAcceptsNumericFields(t *testing.T) {
	store := seededStore(t)
	svc := onramp.NewService(store, onramp.DefaultProviders(), nil, nil, logging.Discard())
	app := newWebhookApp(t, svc, "")

	status, msg := post(t, app, "/hdfcWebhook", `{"token":"tok-1","user_identifier":1,"amount":5000}`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Captured", msg)
}

func TestReleaseEndpoint(t *testing.T) {
	store := seededStore(t)
	svc := onramp.NewService(store, onramp.DefaultProviders(), nil, nil, logging.Discard())
	app := newWebhookApp(t, svc, "")
	body := `{"token":"tok-1","user_identifier":"1","amount":"5000"}`

	status, msg := post(t, app, "/hdfcWebhook/failure", body, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Released", msg)

	bal, _ := store.Balance(context.Background(), 1)
	assert.Equal(t, ledger.Balance{UserID: 1, Amount: 0, Locked: 0}, bal)

	status, msg = post(t, app, "/hdfcWebhook", body, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid transaction: Transaction already Failure", msg)
}

func TestSignatureRequiredWhenSecretConfigured(t *testing.T) {
	store := seededStore(t)
	svc := onramp.NewService(store, onramp.DefaultProviders(), nil, nil, logging.Discard())
	app := newWebhookApp(t, svc, "s3cret")
	body := `{"token":"tok-1","user_identifier":"1","amount":"5000"}`

	status, msg := post(t, app, "/hdfcWebhook", body, map[string]string{SignatureHeader: "deadbeef"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid signature", msg)

	status, msg = post(t, app, "/hdfcWebhook", body, map[string]string{SignatureHeader: Sign([]byte(body), []byte("s3cret"))})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Captured", msg)
}

type failingSettler struct{}

func (failingSettler) Capture(context.Context, string, onramp.Verifier) (onramp.SettlementResult, error) {
	return onramp.SettlementResult{}, errors.New("connection reset")
}

func (failingSettler) Release(context.Context, string, onramp.Verifier) (onramp.SettlementResult, error) {
	return onramp.SettlementResult{}, errors.New("connection reset")
}

func TestInternalFailureReturns411(t *testing.T) {
	app := newWebhookApp(t, failingSettler{}, "")

	status, msg := post(t, app, "/hdfcWebhook", `{"token":"tok-1","user_identifier":"1","amount":"5000"}`, nil)
	assert.Equal(t, http.StatusLengthRequired, status)
	assert.Equal(t, "Error while processing webhook", msg)
}
