package ledger

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an on-ramp deposit.
type Status uint8

const (
	StatusProcessing Status = iota + 1
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusProcessing:
		return "Processing"
	case StatusSuccess:
		return "Success"
	case StatusFailure:
		return "Failure"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailure:
		return true
	default:
		return false
	}
}

// ParseStatus maps the persisted representation back to a Status.
func ParseStatus(v string) (Status, error) {
	switch v {
	case "Processing":
		return StatusProcessing, nil
	case "Success":
		return StatusSuccess, nil
	case "Failure":
		return StatusFailure, nil
	default:
		return 0, fmt.Errorf("unknown on-ramp status %q", v)
	}
}

// Balance is the 1:1 money position of a user, in the smallest currency unit.
// Amount is spendable; Locked is reserved for deposits awaiting settlement.
type Balance struct {
	UserID int64
	Amount int64
	Locked int64
}

// OnRampTransaction is one deposit attempt from an external bank.
type OnRampTransaction struct {
	ID        int64
	Token     string
	UserID    int64
	Amount    int64
	Status    Status
	Provider  string
	StartTime time.Time
}

// P2PTransfer is a completed wallet-to-wallet movement of available funds.
type P2PTransfer struct {
	ID         int64
	FromUserID int64
	ToUserID   int64
	Amount     int64
	Timestamp  time.Time
}
