package wallet

import "time"

// Overview is a user's balance as shown on the dashboard.
type Overview struct {
	UserID         int64
	Available      int64
	Locked         int64
	AvailableMajor string
	LockedMajor    string
	TotalMajor     string
	AsOf           time.Time
}

// Entry is one line of the transaction history.
type Entry struct {
	Kind         string
	Direction    string
	Amount       int64
	AmountMajor  string
	Status       string
	Provider     string
	Counterparty int64
	Reference    string
	At           time.Time
}

const (
	KindDeposit  = "deposit"
	KindTransfer = "p2p"

	DirectionIn  = "in"
	DirectionOut = "out"
)
