package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
	"github.com/vaayushanti/bagspec/cmd/bagspec/repository"
	"github.com/vaayushanti/bagspec/common/db"
	"github.com/vaayushanti/bagspec/common/logger"
	"github.com/vaayushanti/bagspec/common/mail"
	"github.com/vaayushanti/bagspec/common/validation"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	ctx := context.Background()

	lite, err := db.OpenSQLite(ctx, ":memory:", logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })

	store := repository.NewSQLiteStore(lite)
	require.NoError(t, store.Migrate(ctx))
	return store
}

// recordingNotifier collects enqueued responses
type recordingNotifier struct {
	mu        sync.Mutex
	responses []*models.Response
}

func (n *recordingNotifier) EnqueueSubmissionNotices(ctx context.Context, resp *models.Response) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responses = append(n.responses, resp)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.responses)
}

// fixedTokens hands out tokens from a list
type fixedTokens struct {
	tokens []string
}

func (f *fixedTokens) Issue() (string, error) {
	tok := f.tokens[0]
	f.tokens = f.tokens[1:]
	return tok, nil
}

func newTestLifecycle(t *testing.T) (*LifecycleService, repository.Store, *recordingNotifier) {
	t.Helper()
	store := newTestStore(t)
	notifier := &recordingNotifier{}
	svc := NewLifecycleService(store, NewTokenIssuer(), validation.MustDefault(), notifier, logger.Discard())

	var mu sync.Mutex
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, store, notifier
}

func requestInput(quantity, size string) models.RequestInput {
	return models.RequestInput{
		RequestedQuantity: models.NewQuantityInput(quantity),
		RequestedSize:     size,
	}
}

// fakeMailer records messages and fails when err is set
type fakeMailer struct {
	mu      sync.Mutex
	enabled bool
	err     error
	delay   time.Duration
	sent    []mail.Message
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) (*mail.SendResult, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, msg)
	return &mail.SendResult{StatusCode: 200, MessageID: "msg-1"}, nil
}

func (m *fakeMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}
