package webhook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walletcore/p2p-wallet/internal/ledger"
)

func TestVerify(t *testing.T) {
	processing := ledger.OnRampTransaction{Token: "tok", UserID: 7, Amount: 5_000, Status: ledger.StatusProcessing}
	settled := processing
	settled.Status = ledger.StatusSuccess

	cases := []struct {
		name string
		conf Confirmation
		txn  ledger.OnRampTransaction
		want error
	}{
		{"match", Confirmation{"tok", "7", "5000"}, processing, nil},
		{"match with scale and spaces", Confirmation{"tok", " 7 ", "5000.00"}, processing, nil},
		{"empty token", Confirmation{"", "7", "5000"}, processing, ledger.ErrInvalidToken},
		{"other token", Confirmation{"nope", "7", "5000"}, processing, ledger.ErrInvalidToken},
		{"user mismatch", Confirmation{"tok", "8", "5000"}, processing, ledger.ErrUserMismatch},
		{"user not numeric", Confirmation{"tok", "seven", "5000"}, processing, ledger.ErrUserMismatch},
		{"amount off by one", Confirmation{"tok", "7", "4999"}, processing, ledger.ErrAmountMismatch},
		{"amount fractional", Confirmation{"tok", "7", "5000.5"}, processing, ledger.ErrAmountMismatch},
		{"amount missing", Confirmation{"tok", "7", ""}, processing, ledger.ErrAmountMismatch},
		{"already settled", Confirmation{"tok", "7", "5000"}, settled, ledger.ErrAlreadySettled},
		// order: the user check fires before the status check
		{"user checked before status", Confirmation{"tok", "8", "5000"}, settled, ledger.ErrUserMismatch},
		{"amount checked before status", Confirmation{"tok", "7", "1"}, settled, ledger.ErrAmountMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Verify(tc.conf, tc.txn)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.want), "got %v want %v", err, tc.want)
		})
	}
}

func TestVerifyAlreadySettledCarriesStatus(t *testing.T) {
	txn := ledger.OnRampTransaction{Token: "tok", UserID: 1, Amount: 10, Status: ledger.StatusFailure}
	err := Verify(Confirmation{"tok", "1", "10"}, txn)

	var settled *ledger.AlreadySettledError
	if assert.True(t, errors.As(err, &settled)) {
		assert.Equal(t, ledger.StatusFailure, settled.Status)
		assert.Equal(t, "transaction already Failure", err.Error())
	}
}
