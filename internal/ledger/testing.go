package ledger

import "time"

// SeedBalance is a test helper that overwrites a balance when using the in-memory store.
func SeedBalance(s Store, userID, amount, locked int64) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[userID] = Balance{UserID: userID, Amount: amount, Locked: locked}
	}
}

// SeedOnRamp is a test helper that inserts an on-ramp row without touching balances.
func SeedOnRamp(s Store, txn OnRampTransaction) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if txn.StartTime.IsZero() {
			txn.StartTime = time.Now().UTC()
		}
		mem.nextID++
		txn.ID = mem.nextID
		mem.onRamps[txn.Token] = txn
	}
}
