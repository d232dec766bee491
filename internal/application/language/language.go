// Package language detects the user's language and translates messages to
// and from English around the conversation flow.
package language

import (
	"context"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
)

// English is the language the conversation flow works in.
const English = "en"

// Translator is an external language detection and translation service.
type Translator interface {
	Detect(ctx context.Context, text string) (string, error)
	ToEnglish(ctx context.Context, text, from string) (string, error)
	FromEnglish(ctx context.Context, text, to string) (string, error)
	Healthy(ctx context.Context) error
}

// Cache remembers the last language seen per user.
type Cache interface {
	Set(userID, lang string)
	Last(userID string) string
	Clear(userID string)
	Retain(keep func(userID string) bool) int
}

// Service wraps a Translator with per-user language memory. Translation
// failures never block a message: the text is processed as English instead.
type Service struct {
	translator Translator
	cache      Cache
	logger     zerolog.Logger
}

func NewService(translator Translator, cache Cache, logger zerolog.Logger) *Service {
	return &Service{
		translator: translator,
		cache:      cache,
		logger:     logger.With().Str("service", "language").Logger(),
	}
}

// Inbound detects the language of text and returns its English form along
// with the language replies should be written in.
func (s *Service) Inbound(ctx context.Context, userID, text string) (string, string) {
	lang, err := s.detect(ctx, userID, text)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("language detection failed, using English")
		return text, English
	}
	s.cache.Set(userID, lang)
	if lang == English {
		return text, English
	}

	english, err := s.translator.ToEnglish(ctx, text, lang)
	if err != nil || strings.TrimSpace(english) == "" {
		s.logger.Warn().Err(err).Str("user_id", userID).Str("lang", lang).Msg("translation to English failed")
		return text, English
	}
	s.logger.Debug().Str("user_id", userID).Str("lang", lang).Msg("message translated to English")
	return english, lang
}

// Outbound translates an English reply into lang. The English text is
// returned if translation fails.
func (s *Service) Outbound(ctx context.Context, text, lang string) string {
	if lang == "" || lang == English {
		return text
	}
	translated, err := s.translator.FromEnglish(ctx, text, lang)
	if err != nil || strings.TrimSpace(translated) == "" {
		s.logger.Warn().Err(err).Str("lang", lang).Msg("translation from English failed")
		return text
	}
	return translated
}

// Last returns the user's remembered language.
func (s *Service) Last(userID string) string {
	return s.cache.Last(userID)
}

// Forget drops the user's remembered language.
func (s *Service) Forget(userID string) {
	s.cache.Clear(userID)
}

// Retain keeps remembered languages only for users keep accepts and returns
// how many were dropped.
func (s *Service) Retain(keep func(userID string) bool) int {
	return s.cache.Retain(keep)
}

// Status reports the translator state for health checks.
func (s *Service) Status(ctx context.Context) string {
	if err := s.translator.Healthy(ctx); err != nil {
		return "fallback_only"
	}
	return "enabled"
}

// detect reuses the user's last language for messages with no letters, such
// as one-time codes, which carry no language signal.
func (s *Service) detect(ctx context.Context, userID, text string) (string, error) {
	if !hasLetters(text) {
		return s.cache.Last(userID), nil
	}
	lang, err := s.translator.Detect(ctx, text)
	if err != nil {
		return "", err
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return English, nil
	}
	return lang, nil
}

func hasLetters(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
