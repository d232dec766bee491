// Package intent holds the stateless classifiers applied to inbound chat text.
package intent

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/bankline/chat-gateway/internal/domain/session"
)

// Confirmation is the sentiment of a reply to a transfer confirmation prompt.
type Confirmation string

const (
	ConfirmationPositive  Confirmation = "POSITIVE"
	ConfirmationNegative  Confirmation = "NEGATIVE"
	ConfirmationAmbiguous Confirmation = "AMBIGUOUS"
)

// ExitCommand ends a conversation from any stage.
const ExitCommand = "exit"

// Classifier groups the predicates the conversation flow depends on.
type Classifier interface {
	IsExit(text string) bool
	IsGreeting(text string) bool
	ExtractIdentityDocument(text string) (string, bool)
	IsOTPFormat(text string) bool
	ResolveAccount(text string, accounts []session.AccountDetail) (string, bool)
	ClassifyConfirmation(text string) Confirmation
}

// Default is the keyword and pattern based classifier.
type Default struct{}

func (Default) IsExit(text string) bool { return IsExit(text) }

func (Default) IsGreeting(text string) bool { return IsGreeting(text) }

func (Default) ExtractIdentityDocument(text string) (string, bool) {
	return ExtractIdentityDocument(text)
}

func (Default) IsOTPFormat(text string) bool { return IsOTPFormat(text) }

func (Default) ResolveAccount(text string, accounts []session.AccountDetail) (string, bool) {
	return ResolveAccount(text, accounts)
}

func (Default) ClassifyConfirmation(text string) Confirmation { return ClassifyConfirmation(text) }

var (
	greetingWords = []string{
		"hi", "hello", "hey", "greetings", "good morning", "good afternoon",
		"good evening", "good day", "howdy", "what's up", "whats up", "sup",
		"hola", "bonjour", "namaste", "salaam", "salam", "assalam", "start",
	}
	greetingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^hi+$`),
		regexp.MustCompile(`^hey+$`),
		regexp.MustCompile(`^hello+$`),
		regexp.MustCompile(`^good (morning|afternoon|evening|day)`),
		regexp.MustCompile(`^how are you`),
		regexp.MustCompile(`^what'?s up`),
	}

	identityDocumentPattern = regexp.MustCompile(`\b(\d{5}-\d{7}-\d)\b`)
	otpPattern              = regexp.MustCompile(`^\d{1,5}$`)
	fourDigits              = regexp.MustCompile(`^\d{4}$`)

	positiveWords = []string{
		"yes", "y", "yeah", "yep", "yup", "ok", "okay", "confirm", "proceed",
		"go ahead", "continue", "sure", "definitely", "absolutely", "correct",
		"right", "true", "confirm it", "do it", "send it", "transfer it",
	}
	negativeWords = []string{
		"no", "n", "nope", "cancel", "stop", "abort", "don't", "dont",
		"not", "wrong", "incorrect", "false", "refuse", "decline", "back",
	}
)

// IsExit reports whether text is the exit command.
func IsExit(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), ExitCommand)
}

// IsGreeting matches the greeting vocabulary exactly or as a leading word,
// plus a few greeting shapes such as "hiii" or "good evening".
func IsGreeting(text string) bool {
	msg := strings.ToLower(strings.TrimSpace(text))
	if msg == "" {
		return false
	}
	for _, g := range greetingWords {
		if msg == g || strings.HasPrefix(msg, g+" ") {
			return true
		}
	}
	for _, p := range greetingPatterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}

// ExtractIdentityDocument returns the first 5-7-1 digit group found in text.
func ExtractIdentityDocument(text string) (string, bool) {
	m := identityDocumentPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsOTPFormat checks the shape of a one-time code: 1 to 5 digits.
// It does not check the code against anything that was issued.
func IsOTPFormat(text string) bool {
	return otpPattern.MatchString(strings.TrimSpace(text))
}

// ClassifyConfirmation matches fixed keyword sets as whole words or
// phrases. Positive is checked first, so a message matching both is positive.
func ClassifyConfirmation(text string) Confirmation {
	tokens := tokenize(text)
	if containsAnyPhrase(tokens, positiveWords) {
		return ConfirmationPositive
	}
	if containsAnyPhrase(tokens, negativeWords) {
		return ConfirmationNegative
	}
	return ConfirmationAmbiguous
}

// tokenize lowercases text and splits it on anything that is not a letter,
// digit or apostrophe. Curly apostrophes are folded to '.
func tokenize(text string) []string {
	text = strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func containsAnyPhrase(tokens []string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(tokens, strings.Fields(p)) {
			return true
		}
	}
	return false
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, w := range phrase {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
