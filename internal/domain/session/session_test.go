package session

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     Stage
		to       Stage
		expected bool
	}{
		{name: "NOT_VERIFIED -> CNIC_VERIFIED", from: StageNotVerified, to: StageCNICVerified, expected: true},
		{name: "NOT_VERIFIED -> OTP_VERIFIED (invalid)", from: StageNotVerified, to: StageOTPVerified, expected: false},
		{name: "CNIC_VERIFIED -> OTP_VERIFIED", from: StageCNICVerified, to: StageOTPVerified, expected: true},
		{name: "OTP_VERIFIED -> ACCOUNT_SELECTED", from: StageOTPVerified, to: StageAccountSelected, expected: true},
		{name: "OTP_VERIFIED -> TRANSFER_OTP_PENDING (invalid)", from: StageOTPVerified, to: StageTransferOTPPending, expected: false},
		{name: "ACCOUNT_SELECTED -> TRANSFER_OTP_PENDING", from: StageAccountSelected, to: StageTransferOTPPending, expected: true},
		{name: "ACCOUNT_SELECTED -> TRANSFER_CONFIRMATION_PENDING (invalid)", from: StageAccountSelected, to: StageTransferConfirmationPending, expected: false},
		{name: "TRANSFER_OTP_PENDING -> TRANSFER_CONFIRMATION_PENDING", from: StageTransferOTPPending, to: StageTransferConfirmationPending, expected: true},
		{name: "TRANSFER_OTP_PENDING -> ACCOUNT_SELECTED (invalid)", from: StageTransferOTPPending, to: StageAccountSelected, expected: false},
		{name: "TRANSFER_CONFIRMATION_PENDING -> ACCOUNT_SELECTED", from: StageTransferConfirmationPending, to: StageAccountSelected, expected: true},
		{name: "unknown stage", from: Stage("BOGUS"), to: StageNotVerified, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanTransition(tt.from, tt.to))
		})
	}

	for _, s := range Stages {
		assert.True(t, CanTransition(s, s), "self transition for %s", s)
	}
}

func TestRecord_Validate(t *testing.T) {
	transfer := &PendingTransfer{Amount: decimal.NewFromInt(500), Currency: "USD", Recipient: "Ali"}

	t.Run("pending transfer outside transfer stages", func(t *testing.T) {
		r := &Record{Stage: StageAccountSelected, KnownAccounts: []string{"1234"}, SelectedAccount: "1234", PendingTransfer: transfer}
		assert.ErrorIs(t, r.Validate(), ErrPendingTransfer)
	})

	t.Run("transfer stage without pending transfer", func(t *testing.T) {
		r := &Record{Stage: StageTransferOTPPending, KnownAccounts: []string{"1234"}, SelectedAccount: "1234"}
		assert.ErrorIs(t, r.Validate(), ErrPendingTransfer)
	})

	t.Run("selected account not known", func(t *testing.T) {
		r := &Record{Stage: StageAccountSelected, KnownAccounts: []string{"1234"}, SelectedAccount: "9999"}
		assert.ErrorIs(t, r.Validate(), ErrUnknownAccount)
	})

	t.Run("authenticated without account", func(t *testing.T) {
		r := &Record{Stage: StageAccountSelected}
		assert.ErrorIs(t, r.Validate(), ErrMissingAccount)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		r := &Record{
			Stage:           StageTransferOTPPending,
			KnownAccounts:   []string{"1234"},
			SelectedAccount: "1234",
			PendingTransfer: &PendingTransfer{Amount: decimal.Zero, Currency: "USD", Recipient: "Ali"},
		}
		assert.ErrorIs(t, r.Validate(), ErrNonPositiveTransfer)
	})

	t.Run("valid transfer stage", func(t *testing.T) {
		r := &Record{Stage: StageTransferConfirmationPending, KnownAccounts: []string{"1234"}, SelectedAccount: "1234", PendingTransfer: transfer}
		assert.NoError(t, r.Validate())
	})
}

func TestUpdate_Apply(t *testing.T) {
	r := &Record{HolderName: "Sara Khan", KnownAccounts: []string{"1"}}
	name := "Sara Ahmed Khan"
	Update{HolderName: &name}.Apply(r)

	assert.Equal(t, "Sara Ahmed Khan", r.HolderName)
	assert.Equal(t, []string{"1"}, r.KnownAccounts, "unlisted fields are kept")

	Update{PendingTransfer: &PendingTransfer{Amount: decimal.NewFromInt(5), Currency: "PKR", Recipient: "Bilal"}}.Apply(r)
	require.NotNil(t, r.PendingTransfer)

	Update{ClearPendingTransfer: true}.Apply(r)
	assert.Nil(t, r.PendingTransfer)
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := &Record{
		KnownAccounts:   []string{"1"},
		AccountDetails:  []AccountDetail{{Number: "1", Currency: "PKR"}},
		PendingTransfer: &PendingTransfer{Amount: decimal.NewFromInt(1), Currency: "PKR", Recipient: "x"},
	}
	c := r.Clone()
	c.KnownAccounts[0] = "2"
	c.AccountDetails[0].Currency = "USD"
	c.PendingTransfer.Recipient = "y"

	assert.Equal(t, "1", r.KnownAccounts[0])
	assert.Equal(t, "PKR", r.AccountDetails[0].Currency)
	assert.Equal(t, "x", r.PendingTransfer.Recipient)
}

func TestRecord_FirstNameAndExpiry(t *testing.T) {
	r := &Record{HolderName: "  Ayesha  Malik ", LastActivity: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	assert.Equal(t, "Ayesha", r.FirstName())
	assert.Equal(t, "", (&Record{}).FirstName())

	assert.False(t, r.IsExpired(r.LastActivity.Add(time.Hour), time.Hour))
	assert.True(t, r.IsExpired(r.LastActivity.Add(time.Hour+time.Second), time.Hour))
}
