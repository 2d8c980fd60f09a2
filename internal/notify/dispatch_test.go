package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (s *fakeSender) Send(ctx context.Context, profile, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("webhook down")
	}
	s.sent = append(s.sent, message)
	return nil
}

func newTestDispatcher(store Store, sender Sender, now time.Time) *Dispatcher {
	mock := clock.NewMock()
	mock.Set(now)
	return NewDispatcher(store, sender, testLogger(), DispatcherOptions{
		Clock: mock,
		Roles: map[string]string{"AK": "@Arknights"},
	})
}

func duePending(title string, notifyUnix int64) *Pending {
	return &Pending{
		Category:      "Banner",
		Profile:       "AK",
		Title:         title,
		TimingType:    TimingStart,
		NotifyUnix:    notifyUnix,
		EventTimeUnix: notifyUnix + 3600,
	}
}

func TestTickDeliversDueWithinLookahead(t *testing.T) {
	store := newMemStore()
	now := testNow

	// One overdue, one inside the lookahead, one beyond it.
	for _, p := range []*Pending{
		duePending("Overdue", now.Unix()-30),
		duePending("Soon", now.Unix()+45),
		duePending("Later", now.Unix()+600),
	} {
		_, err := store.Insert(context.Background(), p)
		require.NoError(t, err)
	}

	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, now)

	sent, failed, err := d.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Zero(t, failed)

	remaining, err := store.ListPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Later", remaining[0].Title)
}

func TestTickMarksSentBeforeDelivery(t *testing.T) {
	store := newMemStore()
	now := testNow
	_, err := store.Insert(context.Background(), duePending("Doomed", now.Unix()-30))
	require.NoError(t, err)

	sender := &fakeSender{fail: true}
	d := newTestDispatcher(store, sender, now)

	sent, failed, err := d.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, failed)

	// The row stays claimed: no retry on the next tick.
	sent, failed, err = d.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, failed)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTickRendersWithProfileRole(t *testing.T) {
	store := newMemStore()
	now := testNow
	_, err := store.Insert(context.Background(), duePending("Test Banner", now.Unix()-5))
	require.NoError(t, err)

	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, now)

	_, _, err = d.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "@Arknights")
	assert.Contains(t, sender.sent[0], "Test Banner")
}

func TestTickDeliversCustomMessageVerbatim(t *testing.T) {
	store := newMemStore()
	now := testNow
	_, err := store.Insert(context.Background(), duePending("Test Banner", now.Unix()-5))
	require.NoError(t, err)

	rows, err := store.ListPending(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, store.SetCustomMessage(context.Background(),
		rows[0].ID, "Maintenance moved up, check the notice board"))

	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, now)

	_, _, err = d.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Maintenance moved up, check the notice board", sender.sent[0])
}

func TestTickEmptyStoreNoop(t *testing.T) {
	store := newMemStore()
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, testNow)

	sent, failed, err := d.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, failed)
	assert.Empty(t, sender.sent)
}
