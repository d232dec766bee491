package conversation

import (
	"context"

	"github.com/bankline/chat-gateway/internal/domain/intent"
)

// Purpose says which step a one-time code is entered for.
type Purpose string

const (
	PurposeLogin    Purpose = "LOGIN"
	PurposeTransfer Purpose = "TRANSFER"
)

// OTPVerifier checks a one-time code entered by a user.
type OTPVerifier interface {
	Verify(ctx context.Context, userID string, purpose Purpose, code string) (bool, error)
}

// FormatOnlyVerifier accepts any code of the right shape. No code is ever
// issued, so this is only a stand-in until an issuing service is wired in.
type FormatOnlyVerifier struct{}

func (FormatOnlyVerifier) Verify(_ context.Context, _ string, _ Purpose, code string) (bool, error) {
	return intent.IsOTPFormat(code), nil
}
