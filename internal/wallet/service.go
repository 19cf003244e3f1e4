package wallet

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/walletcore/p2p-wallet/internal/ledger"
)

// minorUnitExponent converts smallest-unit integers (paise) to major units (rupees).
const minorUnitExponent = -2

// Reader is the read side of the ledger used by the dashboard.
type Reader interface {
	Balance(ctx context.Context, userID int64) (ledger.Balance, error)
	OnRampsByUser(ctx context.Context, userID int64, limit int) ([]ledger.OnRampTransaction, error)
	TransfersByUser(ctx context.Context, userID int64, limit int) ([]ledger.P2PTransfer, error)
}

// Service renders balances and history. It never writes to the ledger.
type Service struct {
	ledger Reader
}

// NewService builds a wallet view service.
func NewService(reader Reader) *Service {
	return &Service{ledger: reader}
}

// Overview returns available and locked funds for a user.
func (s *Service) Overview(ctx context.Context, userID int64) (Overview, error) {
	b, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		UserID:         userID,
		Available:      b.Amount,
		Locked:         b.Locked,
		AvailableMajor: FormatMajor(b.Amount),
		LockedMajor:    FormatMajor(b.Locked),
		TotalMajor:     decimal.New(b.Amount, minorUnitExponent).Add(decimal.New(b.Locked, minorUnitExponent)).StringFixed(2),
		AsOf:           time.Now().UTC(),
	}, nil
}

// History merges deposits and transfers, newest first, capped at limit entries.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	deposits, err := s.ledger.OnRampsByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	transfers, err := s.ledger.TransfersByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(deposits)+len(transfers))
	for _, d := range deposits {
		entries = append(entries, Entry{
			Kind:        KindDeposit,
			Direction:   DirectionIn,
			Amount:      d.Amount,
			AmountMajor: FormatMajor(d.Amount),
			Status:      d.Status.String(),
			Provider:    d.Provider,
			Reference:   d.Token,
			At:          d.StartTime,
		})
	}
	for _, t := range transfers {
		e := Entry{
			Kind:        KindTransfer,
			Direction:   DirectionOut,
			Amount:      t.Amount,
			AmountMajor: FormatMajor(t.Amount),
			Status:      ledger.StatusSuccess.String(),
			At:          t.Timestamp,
		}
		if t.ToUserID == userID {
			e.Direction = DirectionIn
			e.Counterparty = t.FromUserID
		} else {
			e.Counterparty = t.ToUserID
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.After(entries[j].At) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// FormatMajor renders a smallest-unit amount with two decimals, e.g. 5000 -> "50.00".
func FormatMajor(minor int64) string {
	return decimal.New(minor, minorUnitExponent).StringFixed(2)
}
