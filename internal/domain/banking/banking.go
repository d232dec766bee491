// Package banking describes the backend ledger service the assistant relays to.
package banking

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bankline/chat-gateway/internal/domain/session"
)

var (
	// ErrRejected means the backend answered and said no.
	ErrRejected = errors.New("rejected by backend")
	// ErrUnavailable covers timeouts, transport failures and server errors.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrMalformedTransfer means the backend asked for a transfer it did not fully describe.
	ErrMalformedTransfer = errors.New("malformed transfer request")
)

// RejectedError carries the backend's reason for a refusal.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return ErrRejected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrRejected.Error(), e.Reason)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Reject builds a RejectedError.
func Reject(reason string) error {
	return &RejectedError{Reason: reason}
}

// RejectionReason returns the reason of a RejectedError in err's chain.
func RejectionReason(err error) string {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}

// Identity is the result of a successful identity-document check.
type Identity struct {
	Document string
	Name     string
	Accounts []string
}

// QueryRequest is a free-form banking question for the selected account.
type QueryRequest struct {
	Message   string
	Account   string
	FirstName string
}

// TransferRequest is what the backend asks to be confirmed before moving money.
type TransferRequest struct {
	Amount    decimal.Decimal
	Currency  string
	Recipient string
}

// QueryResult is either a direct reply or a transfer that needs a one-time code.
type QueryResult struct {
	Reply    string
	Transfer *TransferRequest
}

// NeedsTransferCode reports whether the result is a transfer request.
func (r *QueryResult) NeedsTransferCode() bool {
	return r != nil && r.Transfer != nil
}

// TransferOrder is a confirmed transfer to execute.
type TransferOrder struct {
	Account   string
	Amount    decimal.Decimal
	Currency  string
	Recipient string
	FirstName string
}

// TransferReceipt is the backend's confirmation of an executed transfer.
type TransferReceipt struct {
	Reference string
	Message   string
}

//go:generate mockgen -destination=mocks/mock_backend.go -package=mocks . Backend

// Backend is the remote ledger and account service.
type Backend interface {
	VerifyIdentity(ctx context.Context, document string) (*Identity, error)
	AccountDetails(ctx context.Context, account string) (*session.AccountDetail, error)
	SelectAccount(ctx context.Context, document, account string) error
	ExecuteQuery(ctx context.Context, req QueryRequest) (*QueryResult, error)
	ExecuteTransfer(ctx context.Context, order TransferOrder) (*TransferReceipt, error)
	Health(ctx context.Context) error
}
