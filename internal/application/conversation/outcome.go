package conversation

import "github.com/bankline/chat-gateway/internal/domain/session"

// Kind identifies the reply a conversation step calls for.
type Kind string

const (
	KindGreeting            Kind = "GREETING"
	KindIdentityFormat      Kind = "IDENTITY_FORMAT"
	KindIdentityRejected    Kind = "IDENTITY_REJECTED"
	KindOTPRequest          Kind = "OTP_REQUEST"
	KindOTPInvalid          Kind = "OTP_INVALID"
	KindAccountList         Kind = "ACCOUNT_LIST"
	KindAccountGuidance     Kind = "ACCOUNT_GUIDANCE"
	KindAccountRejected     Kind = "ACCOUNT_REJECTED"
	KindAccountSelected     Kind = "ACCOUNT_SELECTED"
	KindQueryReply          Kind = "QUERY_REPLY"
	KindTransferInvalid     Kind = "TRANSFER_INVALID"
	KindTransferBlocked     Kind = "TRANSFER_BLOCKED"
	KindTransferOTPRequest  Kind = "TRANSFER_OTP_REQUEST"
	KindTransferOTPInvalid  Kind = "TRANSFER_OTP_INVALID"
	KindTransferConfirm     Kind = "TRANSFER_CONFIRM"
	KindConfirmationUnclear Kind = "CONFIRMATION_UNCLEAR"
	KindTransferExecuted    Kind = "TRANSFER_EXECUTED"
	KindTransferFailed      Kind = "TRANSFER_FAILED"
	KindTransferCancelled   Kind = "TRANSFER_CANCELLED"
	KindSessionEnded        Kind = "SESSION_ENDED"
	KindSessionCorrupted    Kind = "SESSION_CORRUPTED"
	KindSessionExpired      Kind = "SESSION_EXPIRED"
	KindRateLimited         Kind = "RATE_LIMITED"
	KindUnavailable         Kind = "UNAVAILABLE"
	KindInternalError       Kind = "INTERNAL_ERROR"
)

// Outcome is the result of handling one message: the stage the user is in
// afterwards and the facts needed to word the reply.
type Outcome struct {
	Kind      Kind
	Stage     session.Stage
	FirstName string
	Accounts  []string
	Account   string
	Transfer  *session.PendingTransfer
	Reply     string
	Reference string
	Reason    string
}

// Internal is the outcome used when handling failed unexpectedly.
func Internal(stage session.Stage) *Outcome {
	return &Outcome{Kind: KindInternalError, Stage: stage}
}
