package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/walletcore/p2p-wallet/internal/ledger"
)

func seedTransfer(t *testing.T, store ledger.Store, from, to, amount int64, at time.Time) {
	t.Helper()
	err := store.Atomically(context.Background(), func(tx ledger.Tx) error {
		_, err := tx.InsertTransfer(context.Background(), ledger.P2PTransfer{FromUserID: from, ToUserID: to, Amount: amount, Timestamp: at})
		return err
	})
	if err != nil {
		t.Fatalf("seed transfer: %v", err)
	}
}

func TestOverviewFormatsMajorUnits(t *testing.T) {
	store := ledger.NewInMemory()
	ledger.SeedBalance(store, 7, 12_345, 5_000)
	svc := NewService(store)

	o, err := svc.Overview(context.Background(), 7)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if o.Available != 12_345 || o.Locked != 5_000 {
		t.Fatalf("unexpected balance %+v", o)
	}
	if o.AvailableMajor != "123.45" || o.LockedMajor != "50.00" || o.TotalMajor != "173.45" {
		t.Fatalf("unexpected display values %+v", o)
	}
}

func TestOverviewMissingBalance(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	if _, err := svc.Overview(context.Background(), 99); !errors.Is(err, ledger.ErrBalanceNotFound) {
		t.Fatalf("expected ErrBalanceNotFound, got %v", err)
	}
}

func TestHistoryMergesNewestFirst(t *testing.T) {
	store := ledger.NewInMemory()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	ledger.SeedOnRamp(store, ledger.OnRampTransaction{Token: "tok-1", UserID: 1, Amount: 5_000, Status: ledger.StatusSuccess, Provider: "HDFC Bank", StartTime: base})
	seedTransfer(t, store, 1, 2, 1_000, base.Add(time.Hour))
	seedTransfer(t, store, 2, 1, 300, base.Add(2*time.Hour))

	entries, err := NewService(store).History(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[0].Kind != KindTransfer || entries[0].Direction != DirectionIn || entries[0].Counterparty != 2 {
		t.Fatalf("unexpected newest entry %+v", entries[0])
	}
	if entries[1].Direction != DirectionOut || entries[1].Amount != 1_000 {
		t.Fatalf("unexpected middle entry %+v", entries[1])
	}
	if entries[2].Kind != KindDeposit || entries[2].Reference != "tok-1" || entries[2].Status != "Success" {
		t.Fatalf("unexpected oldest entry %+v", entries[2])
	}
}

func TestHistoryRespectsLimit(t *testing.T) {
	store := ledger.NewInMemory()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		seedTransfer(t, store, 1, 2, int64(100+i), base.Add(time.Duration(i)*time.Minute))
	}

	entries, err := NewService(store).History(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Amount != 104 {
		t.Fatalf("expected newest transfer first, got %+v", entries[0])
	}
}

func TestBalanceHandler(t *testing.T) {
	store := ledger.NewInMemory()
	ledger.SeedBalance(store, 3, 2_500, 0)
	h := NewHandler(NewService(store))

	app := fiber.New()
	app.Get("/wallet", func(c *fiber.Ctx) error {
		c.Locals("user_id", int64(3))
		return c.Next()
	}, h.Balance)
	app.Get("/anon", h.Balance)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/wallet", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body overviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Available != 2_500 || body.AvailableMajor != "25.00" {
		t.Fatalf("unexpected body %+v", body)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/anon", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
