package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankline/chat-gateway/internal/domain/session"
)

func TestNewEntry(t *testing.T) {
	e := NewEntry("user-1", EventStageChanged).
		WithStages(session.StageNotVerified, session.StageCNICVerified).
		WithDetail("accounts", 2)

	assert.NotEqual(t, uuid.Nil, e.EntryID)
	assert.Equal(t, "user-1", e.UserID)
	require.NotNil(t, e.FromStage)
	require.NotNil(t, e.ToStage)
	assert.Equal(t, session.StageNotVerified, *e.FromStage)
	assert.Equal(t, session.StageCNICVerified, *e.ToStage)
	assert.Equal(t, 2, e.Detail["accounts"])
	assert.False(t, e.CreatedAt.IsZero())
}

func TestFingerprint(t *testing.T) {
	key := []byte("audit-key")
	a := Fingerprint("12345-1234567-1", key)
	b := Fingerprint("12345-1234567-1", key)
	c := Fingerprint("12345-1234567-1", []byte("other-key"))

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "12345")
	assert.Empty(t, Fingerprint("", key))
	assert.Len(t, Fingerprint("doc", nil), 64)
}
