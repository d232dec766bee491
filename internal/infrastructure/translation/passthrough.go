// Package translation provides language.Translator implementations.
package translation

import (
	"context"
	"errors"

	"github.com/bankline/chat-gateway/internal/application/language"
)

// ErrNotConfigured is reported by Passthrough health checks.
var ErrNotConfigured = errors.New("translation service not configured")

// Passthrough treats every message as English.
type Passthrough struct{}

func (Passthrough) Detect(context.Context, string) (string, error) { return language.English, nil }

func (Passthrough) ToEnglish(_ context.Context, text, _ string) (string, error) { return text, nil }

func (Passthrough) FromEnglish(_ context.Context, text, _ string) (string, error) { return text, nil }

func (Passthrough) Healthy(context.Context) error { return ErrNotConfigured }

var _ language.Translator = Passthrough{}
