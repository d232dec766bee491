package conversation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/bankline/chat-gateway/internal/domain/session"
)

// TransferPolicy is a boolean expression a transfer must satisfy before the
// user is asked for a code, e.g. `amount <= 500000 && currency != "USD"`.
// Variables: amount (float), currency (upper case), recipient.
type TransferPolicy struct {
	source string
	expr   *govaluate.EvaluableExpression
}

// ParseTransferPolicy compiles expression. An empty expression allows every transfer.
func ParseTransferPolicy(expression string) (*TransferPolicy, error) {
	src := strings.TrimSpace(expression)
	p := &TransferPolicy{source: src}
	if src == "" {
		return p, nil
	}
	expr, err := govaluate.NewEvaluableExpression(src)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer policy: %w", err)
	}
	p.expr = expr
	return p, nil
}

// String returns the policy source.
func (p *TransferPolicy) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Allows evaluates the policy against a transfer.
func (p *TransferPolicy) Allows(t session.PendingTransfer) (bool, error) {
	if p == nil || p.expr == nil {
		return true, nil
	}
	amount, _ := t.Amount.Float64()
	result, err := p.expr.Evaluate(map[string]interface{}{
		"amount":    amount,
		"currency":  strings.ToUpper(t.Currency),
		"recipient": t.Recipient,
	})
	if err != nil {
		return false, err
	}
	allowed, ok := result.(bool)
	if !ok {
		return false, errors.New("transfer policy did not evaluate to boolean")
	}
	return allowed, nil
}
