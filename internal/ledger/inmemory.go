package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

type inMemoryStore struct {
	mu        sync.RWMutex
	balances  map[int64]Balance
	onRamps   map[string]OnRampTransaction
	transfers []P2PTransfer
	nextID    int64
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests.
// Atomically holds the write lock for the whole unit, so units are serializable.
func NewInMemory() Store {
	return &inMemoryStore{
		balances: make(map[int64]Balance),
		onRamps:  make(map[string]OnRampTransaction),
	}
}

func (s *inMemoryStore) EnsureBalance(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.balances[userID]; !exists {
		s.balances[userID] = Balance{UserID: userID}
	}
	return nil
}

func (s *inMemoryStore) Balance(_ context.Context, userID int64) (Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[userID]
	if !ok {
		return Balance{}, ErrBalanceNotFound
	}
	return b, nil
}

func (s *inMemoryStore) OnRamp(_ context.Context, token string) (OnRampTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.onRamps[token]
	if !ok {
		return OnRampTransaction{}, ErrInvalidToken
	}
	return txn, nil
}

func (s *inMemoryStore) OnRampsByUser(_ context.Context, userID int64, limit int) ([]OnRampTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]OnRampTransaction, 0)
	for _, txn := range s.onRamps {
		if txn.UserID == userID {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *inMemoryStore) TransfersByUser(_ context.Context, userID int64, limit int) ([]P2PTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit = clampLimit(limit)
	out := make([]P2PTransfer, 0)
	for i := len(s.transfers) - 1; i >= 0 && len(out) < limit; i-- {
		t := s.transfers[i]
		if t.FromUserID == userID || t.ToUserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *inMemoryStore) StaleOnRamps(_ context.Context, before time.Time, limit int) ([]OnRampTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]OnRampTransaction, 0)
	for _, txn := range s.onRamps {
		if txn.Status == StatusProcessing && txn.StartTime.Before(before) {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *inMemoryStore) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &inMemoryTx{
		store:    s,
		balances: make(map[int64]Balance),
		onRamps:  make(map[string]OnRampTransaction),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for id, b := range tx.balances {
		s.balances[id] = b
	}
	for token, txn := range tx.onRamps {
		s.onRamps[token] = txn
	}
	s.transfers = append(s.transfers, tx.transfers...)
	return nil
}

// inMemoryTx stages writes until the enclosing Atomically commits. The store's write
// lock is held for the whole unit, so the staged reads below need no extra locking.
type inMemoryTx struct {
	store     *inMemoryStore
	balances  map[int64]Balance
	onRamps   map[string]OnRampTransaction
	transfers []P2PTransfer
}

func (t *inMemoryTx) balance(userID int64) (Balance, bool) {
	if b, ok := t.balances[userID]; ok {
		return b, true
	}
	b, ok := t.store.balances[userID]
	return b, ok
}

func (t *inMemoryTx) onRamp(token string) (OnRampTransaction, bool) {
	if txn, ok := t.onRamps[token]; ok {
		return txn, true
	}
	txn, ok := t.store.onRamps[token]
	return txn, ok
}

func (t *inMemoryTx) LockBalances(_ context.Context, userIDs ...int64) (map[int64]Balance, error) {
	out := make(map[int64]Balance, len(userIDs))
	for _, id := range userIDs {
		b, ok := t.balance(id)
		if !ok {
			return nil, ErrBalanceNotFound
		}
		out[id] = b
	}
	return out, nil
}

func (t *inMemoryTx) SaveBalance(_ context.Context, b Balance) error {
	if b.Amount < 0 || b.Locked < 0 {
		return ErrNegativeBalance
	}
	if _, ok := t.balance(b.UserID); !ok {
		return ErrBalanceNotFound
	}
	t.balances[b.UserID] = b
	return nil
}

func (t *inMemoryTx) LockOnRamp(_ context.Context, token string) (OnRampTransaction, error) {
	txn, ok := t.onRamp(token)
	if !ok {
		return OnRampTransaction{}, ErrInvalidToken
	}
	return txn, nil
}

func (t *inMemoryTx) InsertOnRamp(_ context.Context, txn OnRampTransaction) (OnRampTransaction, error) {
	if _, exists := t.onRamp(txn.Token); exists {
		return OnRampTransaction{}, ErrDuplicateToken
	}
	t.store.nextID++
	txn.ID = t.store.nextID
	t.onRamps[txn.Token] = txn
	return txn, nil
}

func (t *inMemoryTx) SetOnRampStatus(_ context.Context, token string, status Status) error {
	txn, ok := t.onRamp(token)
	if !ok {
		return ErrInvalidToken
	}
	txn.Status = status
	t.onRamps[token] = txn
	return nil
}

func (t *inMemoryTx) InsertTransfer(_ context.Context, transfer P2PTransfer) (P2PTransfer, error) {
	t.store.nextID++
	transfer.ID = t.store.nextID
	t.transfers = append(t.transfers, transfer)
	return transfer, nil
}
