// Package responder turns conversation outcomes into chat replies.
package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bankline/chat-gateway/internal/application/conversation"
)

var errNilOutcome = errors.New("nil outcome")

// Responder words the reply for an outcome.
type Responder interface {
	Render(ctx context.Context, out *conversation.Outcome) (string, error)
}

// TemplateResponder renders fixed English templates.
type TemplateResponder struct{}

func (TemplateResponder) Render(_ context.Context, out *conversation.Outcome) (string, error) {
	if out == nil {
		return "", errNilOutcome
	}
	return Template(out), nil
}

// Template returns the fixed English reply for an outcome.
func Template(out *conversation.Outcome) string {
	name := greetName(out.FirstName)
	switch out.Kind {
	case conversation.KindGreeting:
		return "Hello! Welcome to Bankline. To get started, please send your CNIC number in the format 12345-1234567-1."
	case conversation.KindIdentityFormat:
		return "I couldn't find a CNIC number in your message. Please send it in the format 12345-1234567-1."
	case conversation.KindIdentityRejected:
		return "I couldn't verify that CNIC. Please check the number and try again."
	case conversation.KindOTPRequest:
		return fmt.Sprintf("Thanks%s, your CNIC is verified. Please enter the one-time code (1 to 5 digits) we sent you.", name)
	case conversation.KindOTPInvalid, conversation.KindTransferOTPInvalid:
		return fmt.Sprintf("Sorry%s, that code doesn't look right. Please enter a code of 1 to 5 digits.", name)
	case conversation.KindAccountList:
		return fmt.Sprintf("You're verified%s. Which account would you like to use?\n%s\nYou can say things like \"my USD account\", \"the first one\" or the last 4 digits.", name, accountList(out.Accounts))
	case conversation.KindAccountGuidance:
		return fmt.Sprintf("I couldn't tell which account you meant. Your accounts are:\n%s\nReply with the last 4 digits, the currency or \"first\"/\"second\".", accountList(out.Accounts))
	case conversation.KindAccountRejected:
		return fmt.Sprintf("Account %s couldn't be selected right now. Please choose another account or try again.", out.Account)
	case conversation.KindAccountSelected:
		return fmt.Sprintf("Account %s is selected%s. How can I help you today? You can ask for your balance, recent transactions or make a transfer.", out.Account, name)
	case conversation.KindQueryReply:
		if strings.TrimSpace(out.Reply) == "" {
			return "I didn't get an answer for that. Could you rephrase your question?"
		}
		return out.Reply
	case conversation.KindTransferInvalid:
		return "Sorry, there was an error processing your transfer request. Please try again."
	case conversation.KindTransferBlocked:
		return fmt.Sprintf("A transfer of %s to %s can't be made through chat. Please visit a branch or use online banking.", money(out), recipient(out))
	case conversation.KindTransferOTPRequest:
		return fmt.Sprintf("To send %s to %s, please enter the one-time code we sent you.", money(out), recipient(out))
	case conversation.KindTransferConfirm:
		return fmt.Sprintf("Code accepted. Please confirm: send %s to %s? Reply yes to proceed or no to cancel.", money(out), recipient(out))
	case conversation.KindConfirmationUnclear:
		return fmt.Sprintf("Sorry, I didn't catch that. Do you want to send %s to %s? Please reply yes or no.", money(out), recipient(out))
	case conversation.KindTransferExecuted:
		if strings.TrimSpace(out.Reply) != "" {
			return out.Reply
		}
		msg := fmt.Sprintf("Done! %s has been sent to %s.", money(out), recipient(out))
		if out.Reference != "" {
			msg += " Reference: " + out.Reference + "."
		}
		return msg
	case conversation.KindTransferFailed:
		msg := fmt.Sprintf("The transfer of %s to %s could not be completed", money(out), recipient(out))
		if out.Reason != "" {
			msg += ": " + out.Reason
		}
		return msg + ". Reply yes to try again or no to cancel."
	case conversation.KindTransferCancelled:
		return fmt.Sprintf("No problem, the transfer of %s to %s has been cancelled.", money(out), recipient(out))
	case conversation.KindSessionEnded:
		msg := fmt.Sprintf("Goodbye%s! Your session has ended.", name)
		if out.Account != "" {
			msg += fmt.Sprintf(" Account %s has been logged out.", out.Account)
		}
		return msg + " Send a message any time to start again."
	case conversation.KindSessionCorrupted:
		return "Something went wrong with your session. Please send exit to start again."
	case conversation.KindSessionExpired:
		return "Your session expired due to inactivity. Please send your CNIC (format 12345-1234567-1) to start again."
	case conversation.KindRateLimited:
		return "I appreciate your enthusiasm! Please give me just a moment to process your previous message before sending another."
	case conversation.KindUnavailable:
		return "Sorry, our banking service is not responding right now. Please send your message again in a moment."
	default:
		return "Sorry, something went wrong on our side. Please try again."
	}
}

func greetName(first string) string {
	if first == "" {
		return ""
	}
	return " " + first
}

func accountList(accounts []string) string {
	lines := make([]string, 0, len(accounts))
	for i, a := range accounts {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, a))
	}
	return strings.Join(lines, "\n")
}

func money(out *conversation.Outcome) string {
	if out.Transfer == nil {
		return "the amount"
	}
	return out.Transfer.Amount.StringFixed(2) + " " + out.Transfer.Currency
}

func recipient(out *conversation.Outcome) string {
	if out.Transfer == nil || out.Transfer.Recipient == "" {
		return "the recipient"
	}
	return out.Transfer.Recipient
}

// Fallback substitutes the template reply when the wrapped responder fails
// or returns blank text.
type Fallback struct {
	primary Responder
	logger  zerolog.Logger
}

func NewFallback(primary Responder, logger zerolog.Logger) *Fallback {
	return &Fallback{
		primary: primary,
		logger:  logger.With().Str("service", "responder").Logger(),
	}
}

func (f *Fallback) Render(ctx context.Context, out *conversation.Outcome) (string, error) {
	if out == nil {
		return "", errNilOutcome
	}
	if f.primary != nil {
		text, err := f.primary.Render(ctx, out)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		f.logger.Warn().Err(err).Str("kind", string(out.Kind)).Msg("responder failed, using template")
	}
	return Template(out), nil
}
