package payments

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/walletcore/p2p-wallet/internal/ledger"
	"github.com/walletcore/p2p-wallet/internal/logging"
	"github.com/walletcore/p2p-wallet/internal/notification"
)

type testNotifier struct {
	mu   sync.Mutex
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = msg
	return nil
}

func TestTransferSuccess(t *testing.T) {
	store := ledger.NewInMemory()
	notifier := &testNotifier{}
	svc := NewService(store, notifier, nil, logging.Discard())
	ctx := context.Background()

	ledger.SeedBalance(store, 1, 10_000, 500)
	ledger.SeedBalance(store, 2, 0, 0)

	res, err := svc.Transfer(ctx, TransferInput{FromUserID: 1, ToUserID: 2, Amount: 2_000})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if res.FromBalance.Amount != 8_000 || res.ToBalance.Amount != 2_000 {
		t.Fatalf("unexpected balances: %+v", res)
	}
	if res.FromBalance.Locked != 500 {
		t.Fatalf("transfer must not touch locked funds, got %d", res.FromBalance.Locked)
	}

	transfers, err := store.TransfersByUser(ctx, 2, 10)
	if err != nil {
		t.Fatalf("list transfers: %v", err)
	}
	if len(transfers) != 1 || transfers[0].Amount != 2_000 || transfers[0].FromUserID != 1 {
		t.Fatalf("unexpected transfers: %+v", transfers)
	}

	if notifier.last.Kind != notification.KindP2PReceived || notifier.last.UserID != 2 {
		t.Fatalf("expected receiver notification, got %+v", notifier.last)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, nil, logging.Discard())
	ctx := context.Background()

	ledger.SeedBalance(store, 1, 100, 1_000)
	ledger.SeedBalance(store, 2, 50, 0)

	if _, err := svc.Transfer(ctx, TransferInput{FromUserID: 1, ToUserID: 2, Amount: 150}); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	from, _ := store.Balance(ctx, 1)
	to, _ := store.Balance(ctx, 2)
	if from.Amount != 100 || to.Amount != 50 {
		t.Fatalf("balances changed after rejection: from=%+v to=%+v", from, to)
	}
	if transfers, _ := store.TransfersByUser(ctx, 1, 10); len(transfers) != 0 {
		t.Fatalf("expected no transfer rows, got %d", len(transfers))
	}
}

func TestTransferValidation(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, nil, logging.Discard())
	ctx := context.Background()
	ledger.SeedBalance(store, 1, 100, 0)

	if _, err := svc.Transfer(ctx, TransferInput{FromUserID: 1, ToUserID: 1, Amount: 10}); !errors.Is(err, ledger.ErrSelfTransfer) {
		t.Fatalf("expected self transfer error, got %v", err)
	}
	if _, err := svc.Transfer(ctx, TransferInput{FromUserID: 1, ToUserID: 2, Amount: 0}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := svc.Transfer(ctx, TransferInput{FromUserID: 1, ToUserID: 2, Amount: 10}); !errors.Is(err, ledger.ErrBalanceNotFound) {
		t.Fatalf("expected missing receiver, got %v", err)
	}
	if b, _ := store.Balance(ctx, 1); b.Amount != 100 {
		t.Fatalf("sender changed after failed transfer: %+v", b)
	}
}

func TestConcurrentTransfersConserveTotal(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, nil, logging.Discard())
	ctx := context.Background()

	users := []int64{1, 2, 3, 4}
	for _, id := range users {
		ledger.SeedBalance(store, id, 1_000, 0)
	}

	const workers = 200
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			from := users[r.Intn(len(users))]
			to := users[r.Intn(len(users))]
			_, err := svc.Transfer(ctx, TransferInput{FromUserID: from, ToUserID: to, Amount: int64(r.Intn(400) + 1)})
			if err != nil && !errors.Is(err, ledger.ErrInsufficientBalance) && !errors.Is(err, ledger.ErrSelfTransfer) {
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	var total int64
	for _, id := range users {
		b, err := store.Balance(ctx, id)
		if err != nil {
			t.Fatalf("balance %d: %v", id, err)
		}
		if b.Amount < 0 || b.Locked < 0 {
			t.Fatalf("negative balance for %d: %+v", id, b)
		}
		total += b.Amount + b.Locked
	}
	if total != int64(len(users))*1_000 {
		t.Fatalf("transfers changed the system total: %d", total)
	}
}
