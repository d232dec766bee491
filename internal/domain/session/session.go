package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stage is a step of the verification and transfer flow.
type Stage string

const (
	StageNotVerified                 Stage = "NOT_VERIFIED"
	StageCNICVerified                Stage = "CNIC_VERIFIED"
	StageOTPVerified                 Stage = "OTP_VERIFIED"
	StageAccountSelected             Stage = "ACCOUNT_SELECTED"
	StageTransferOTPPending          Stage = "TRANSFER_OTP_PENDING"
	StageTransferConfirmationPending Stage = "TRANSFER_CONFIRMATION_PENDING"
)

var (
	ErrInvalidTransition   = errors.New("invalid stage transition")
	ErrPendingTransfer     = errors.New("pending transfer does not match stage")
	ErrUnknownAccount      = errors.New("selected account is not a known account")
	ErrMissingAccount      = errors.New("selected account missing")
	ErrNonPositiveTransfer = errors.New("transfer amount must be positive")
	ErrStaleSession        = errors.New("session expired or changed")
)

// Stages lists every stage in flow order.
var Stages = []Stage{
	StageNotVerified,
	StageCNICVerified,
	StageOTPVerified,
	StageAccountSelected,
	StageTransferOTPPending,
	StageTransferConfirmationPending,
}

var transitions = map[Stage][]Stage{
	StageNotVerified:                 {StageNotVerified, StageCNICVerified},
	StageCNICVerified:                {StageCNICVerified, StageOTPVerified},
	StageOTPVerified:                 {StageOTPVerified, StageAccountSelected},
	StageAccountSelected:             {StageAccountSelected, StageTransferOTPPending},
	StageTransferOTPPending:          {StageTransferOTPPending, StageTransferConfirmationPending},
	StageTransferConfirmationPending: {StageTransferConfirmationPending, StageAccountSelected},
}

// CanTransition reports whether the flow allows moving from one stage to another.
// Leaving the flow through exit is a delete, not a transition.
func CanTransition(from, to Stage) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// HoldsTransfer reports whether a pending transfer must exist in this stage.
func (s Stage) HoldsTransfer() bool {
	return s == StageTransferOTPPending || s == StageTransferConfirmationPending
}

// Authenticated reports whether an account has been selected in this stage.
func (s Stage) Authenticated() bool {
	return s == StageAccountSelected || s.HoldsTransfer()
}

// AccountDetail describes one account as reported by the backend.
type AccountDetail struct {
	Number     string          `json:"accountNumber"`
	Currency   string          `json:"currency"`
	BalanceUSD decimal.Decimal `json:"balanceUsd"`
	BalancePKR decimal.Decimal `json:"balancePkr"`
}

// PendingTransfer is a transfer awaiting its code or confirmation.
type PendingTransfer struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Recipient string          `json:"recipient"`
}

func (p PendingTransfer) Validate() error {
	if !p.Amount.IsPositive() {
		return ErrNonPositiveTransfer
	}
	if strings.TrimSpace(p.Currency) == "" || strings.TrimSpace(p.Recipient) == "" {
		return fmt.Errorf("%w: currency and recipient are required", ErrPendingTransfer)
	}
	return nil
}

// Record is the per-user conversation state.
type Record struct {
	UserID           string           `json:"userId"`
	Stage            Stage            `json:"stage"`
	LastActivity     time.Time        `json:"lastActivity"`
	IdentityDocument string           `json:"-"`
	HolderName       string           `json:"holderName,omitempty"`
	KnownAccounts    []string         `json:"knownAccounts,omitempty"`
	AccountDetails   []AccountDetail  `json:"accountDetails,omitempty"`
	SelectedAccount  string           `json:"selectedAccount,omitempty"`
	PendingTransfer  *PendingTransfer `json:"pendingTransfer,omitempty"`
}

// FirstName returns the first word of the holder name.
func (r *Record) FirstName() string {
	if r == nil {
		return ""
	}
	fields := strings.Fields(r.HolderName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// HasAccount reports whether account is among the accounts known at verification.
func (r *Record) HasAccount(account string) bool {
	for _, a := range r.KnownAccounts {
		if a == account {
			return true
		}
	}
	return false
}

// IsExpired reports whether the record has been idle longer than idle.
func (r *Record) IsExpired(now time.Time, idle time.Duration) bool {
	return now.Sub(r.LastActivity) > idle
}

// Validate checks the record invariants.
func (r *Record) Validate() error {
	if !r.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", r.Stage)
	}
	if r.Stage.HoldsTransfer() != (r.PendingTransfer != nil) {
		return ErrPendingTransfer
	}
	if r.PendingTransfer != nil {
		if err := r.PendingTransfer.Validate(); err != nil {
			return err
		}
	}
	if r.Stage.Authenticated() && r.SelectedAccount == "" {
		return ErrMissingAccount
	}
	if r.SelectedAccount != "" && !r.HasAccount(r.SelectedAccount) {
		return ErrUnknownAccount
	}
	return nil
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.KnownAccounts != nil {
		c.KnownAccounts = append([]string(nil), r.KnownAccounts...)
	}
	if r.AccountDetails != nil {
		c.AccountDetails = append([]AccountDetail(nil), r.AccountDetails...)
	}
	if r.PendingTransfer != nil {
		p := *r.PendingTransfer
		c.PendingTransfer = &p
	}
	return &c
}

// Update lists the fields merged into a record on a stage write.
// Nil fields are left untouched.
type Update struct {
	IdentityDocument     *string
	HolderName           *string
	KnownAccounts        []string
	AccountDetails       []AccountDetail
	SelectedAccount      *string
	PendingTransfer      *PendingTransfer
	ClearPendingTransfer bool
}

// Apply merges u into r.
func (u Update) Apply(r *Record) {
	if u.IdentityDocument != nil {
		r.IdentityDocument = *u.IdentityDocument
	}
	if u.HolderName != nil {
		r.HolderName = *u.HolderName
	}
	if u.KnownAccounts != nil {
		r.KnownAccounts = append([]string(nil), u.KnownAccounts...)
	}
	if u.AccountDetails != nil {
		r.AccountDetails = append([]AccountDetail(nil), u.AccountDetails...)
	}
	if u.SelectedAccount != nil {
		r.SelectedAccount = *u.SelectedAccount
	}
	if u.ClearPendingTransfer {
		r.PendingTransfer = nil
	}
	if u.PendingTransfer != nil {
		p := *u.PendingTransfer
		r.PendingTransfer = &p
	}
}

// Stats are counters reported by the health endpoint.
type Stats struct {
	ActiveSessions              int `json:"activeSessions"`
	FullyAuthenticated          int `json:"fullyAuthenticated"`
	OTPPending                  int `json:"otpPending"`
	TransferConfirmationPending int `json:"transferConfirmationPending"`
	PendingTransfers            int `json:"pendingTransfers"`
}
