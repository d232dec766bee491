package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankline/chat-gateway/internal/domain/audit"
	"github.com/bankline/chat-gateway/internal/infrastructure/memory"
)

type failingRepo struct{}

func (failingRepo) Create(context.Context, *audit.Entry) error { return errors.New("database error") }

func (failingRepo) ListByUser(context.Context, string, int) ([]*audit.Entry, error) {
	return nil, nil
}

func TestService_LogAndHistory(t *testing.T) {
	repo := memory.NewAuditRepository(10)
	svc := NewService(repo, []byte("k"), zerolog.Nop())
	ctx := context.Background()

	svc.Log(ctx, audit.NewEntry("u1", audit.EventStageChanged))
	require.NoError(t, svc.LogSync(ctx, audit.NewEntry("u1", audit.EventSessionEnded)))
	svc.Wait()

	got, err := svc.History(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestService_LogSyncError(t *testing.T) {
	svc := NewService(failingRepo{}, nil, zerolog.Nop())

	err := svc.LogSync(context.Background(), audit.NewEntry("u1", audit.EventStageChanged))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database error")

	svc.Log(context.Background(), audit.NewEntry("u1", audit.EventStageChanged))
	svc.Wait()
}

func TestService_Fingerprint(t *testing.T) {
	svc := NewService(memory.NewAuditRepository(1), []byte("k"), zerolog.Nop())
	assert.Equal(t, audit.Fingerprint("12345-1234567-1", []byte("k")), svc.Fingerprint("12345-1234567-1"))
}

type collector struct {
	events []audit.Event
}

func (c *collector) Publish(e *audit.Entry) { c.events = append(c.events, e.Event) }

func TestService_ObserversSeeStoredEntries(t *testing.T) {
	c := &collector{}
	svc := NewService(memory.NewAuditRepository(10), nil, zerolog.Nop())
	svc.Subscribe(c)

	require.NoError(t, svc.LogSync(context.Background(), audit.NewEntry("u1", audit.EventTransferExecuted)))
	assert.Equal(t, []audit.Event{audit.EventTransferExecuted}, c.events)

	failing := NewService(failingRepo{}, nil, zerolog.Nop())
	failing.Subscribe(c)
	_ = failing.LogSync(context.Background(), audit.NewEntry("u1", audit.EventTransferFailed))
	assert.Len(t, c.events, 1, "failed writes are not published")
}
