package intent

import (
	"strings"

	"github.com/bankline/chat-gateway/internal/domain/session"
)

const (
	CurrencyUSD = "USD"
	CurrencyPKR = "PKR"
)

var (
	usdWords     = []string{"usd"}
	pkrWords     = []string{"pkr", "rupee", "rupees", "pakistani"}
	ordinalWords = [][]string{{"first", "1st", "one"}, {"second", "2nd", "two"}, {"third", "3rd", "three"}}
	savingsWords = []string{"saving", "savings"}
	currentWords = []string{"current", "checking"}
)

// ResolveAccount maps free text to at most one account. Rules, first match wins:
// the text is a full account number or its last 4 digits; a currency keyword
// picks the first account in that currency; an ordinal picks by list position;
// "savings" prefers the first PKR account and "current"/"checking" the first
// account. Keywords match whole words only.
func ResolveAccount(text string, accounts []session.AccountDetail) (string, bool) {
	if len(accounts) == 0 {
		return "", false
	}
	trimmed := strings.TrimSpace(text)
	for _, a := range accounts {
		if trimmed != "" && a.Number == trimmed {
			return a.Number, true
		}
	}
	if fourDigits.MatchString(trimmed) {
		for _, a := range accounts {
			if strings.HasSuffix(a.Number, trimmed) {
				return a.Number, true
			}
		}
	}

	tokens := tokenize(text)
	if containsAnyPhrase(tokens, usdWords) {
		if n, ok := firstInCurrency(accounts, CurrencyUSD); ok {
			return n, true
		}
	}
	if containsAnyPhrase(tokens, pkrWords) {
		if n, ok := firstInCurrency(accounts, CurrencyPKR); ok {
			return n, true
		}
	}
	for i, words := range ordinalWords {
		if containsAnyPhrase(tokens, words) && len(accounts) > i {
			return accounts[i].Number, true
		}
	}
	if containsAnyPhrase(tokens, savingsWords) {
		if n, ok := firstInCurrency(accounts, CurrencyPKR); ok {
			return n, true
		}
	}
	if containsAnyPhrase(tokens, currentWords) {
		return accounts[0].Number, true
	}
	return "", false
}

func firstInCurrency(accounts []session.AccountDetail, currency string) (string, bool) {
	for _, a := range accounts {
		if strings.EqualFold(a.Currency, currency) {
			return a.Number, true
		}
	}
	return "", false
}
