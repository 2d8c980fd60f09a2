package notify

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanamidev/gachatimer/internal/event"
	"github.com/kanamidev/gachatimer/internal/game"
)

type fakeEvents struct {
	byProfile map[string][]*event.Event
}

func (f fakeEvents) GetAll(ctx context.Context, profile string) ([]*event.Event, error) {
	return f.byProfile[profile], nil
}

func newTestReconciler(store Store, events EventSource, now time.Time) *Reconciler {
	mock := clock.NewMock()
	mock.Set(now)
	games := game.Default()
	sched := NewScheduler(games, store, mock, testLogger(), nil)
	return NewReconciler(games, events, store, sched, mock, testLogger())
}

func TestCleanupGhostsRemovesOrphanedRows(t *testing.T) {
	store := newMemStore()
	live := bannerEvent(testNow.Unix()+3*daySeconds, testNow.Unix()+17*daySeconds)

	_, err := store.Insert(context.Background(), &Pending{
		Category: live.Category, Profile: live.Profile, Title: live.Title,
		TimingType: TimingStart, NotifyUnix: testNow.Unix() + daySeconds,
	})
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), &Pending{
		Category: "Banner", Profile: "AK", Title: "Deleted Banner",
		TimingType: TimingStart, NotifyUnix: testNow.Unix() + daySeconds,
	})
	require.NoError(t, err)

	rec := newTestReconciler(store, fakeEvents{byProfile: map[string][]*event.Event{
		"AK": {live},
	}}, testNow)

	removed, err := rec.CleanupGhosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	refs, err := store.EventRefs(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, live.Title, refs[0].Title)
}

func TestValidateReschedulesMissingTimingTypes(t *testing.T) {
	store := newMemStore()
	live := bannerEvent(testNow.Unix()+3*daySeconds, testNow.Unix()+17*daySeconds)

	rec := newTestReconciler(store, fakeEvents{byProfile: map[string][]*event.Event{
		"AK": {live},
	}}, testNow)

	fixed, err := rec.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)
	assert.Len(t, store.all(), 4)

	// Idempotent: a second pass finds nothing missing.
	fixed, err = rec.Validate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fixed)
	assert.Len(t, store.all(), 4)
}

func TestValidateIgnoresFullyElapsedEvents(t *testing.T) {
	store := newMemStore()
	past := bannerEvent(testNow.Unix()-30*daySeconds, testNow.Unix()-10*daySeconds)

	rec := newTestReconciler(store, fakeEvents{byProfile: map[string][]*event.Event{
		"AK": {past},
	}}, testNow)

	fixed, err := rec.Validate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fixed)
	assert.Empty(t, store.all())
}

func TestReconcileClosure(t *testing.T) {
	store := newMemStore()
	liveBanner := bannerEvent(testNow.Unix()+3*daySeconds, testNow.Unix()+17*daySeconds)
	liveEvent := &event.Event{
		Key: uuid.New(), Profile: "STRI", Category: "Event", Title: "Season Opening",
		StartUnix: testNow.Unix() + 2*daySeconds, EndUnix: testNow.Unix() + 16*daySeconds,
	}
	events := fakeEvents{byProfile: map[string][]*event.Event{
		"AK":   {liveBanner},
		"STRI": {liveEvent},
	}}

	// Partially populated store plus a ghost.
	_, err := store.Insert(context.Background(), &Pending{
		Category: "Banner", Profile: "AK", Title: liveBanner.Title,
		TimingType: TimingStart, NotifyUnix: liveBanner.StartUnix - 3600,
	})
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), &Pending{
		Category: "Event", Profile: "STRI", Title: "Gone Event",
		TimingType: TimingEnd, NotifyUnix: testNow.Unix() + daySeconds,
	})
	require.NoError(t, err)

	rec := newTestReconciler(store, events, testNow)
	res, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Ghosts)
	assert.Equal(t, 2, res.Fixed)

	// Every remaining row references a live event.
	liveRefs := map[EventRef]bool{
		{Profile: "AK", Title: liveBanner.Title, Category: "Banner"}: true,
		{Profile: "STRI", Title: liveEvent.Title, Category: "Event"}: true,
	}
	refs, err := store.EventRefs(context.Background())
	require.NoError(t, err)
	for _, ref := range refs {
		assert.True(t, liveRefs[ref], "ref %+v has no live event", ref)
	}

	// Every live event has its full expected timing type set.
	for ref, want := range map[EventRef][]string{
		{Profile: "AK", Title: liveBanner.Title, Category: "Banner"}: {TimingStart, TimingEnd},
		{Profile: "STRI", Title: liveEvent.Title, Category: "Event"}: {TimingStart, TimingEnd},
	} {
		types, err := store.TimingTypes(context.Background(), ref)
		require.NoError(t, err)
		assert.ElementsMatch(t, want, types)
	}
}

func TestRunRemovesDuplicatesKeepingLowestID(t *testing.T) {
	store := newMemStore()
	live := bannerEvent(testNow.Unix()+3*daySeconds, testNow.Unix()+17*daySeconds)

	row := Pending{
		Category: live.Category, Profile: live.Profile, Title: live.Title,
		TimingType: TimingStart, NotifyUnix: live.StartUnix - 3600,
	}
	store.insertRaw(&row)
	store.insertRaw(&row)
	store.insertRaw(&row)

	rec := newTestReconciler(store, fakeEvents{byProfile: map[string][]*event.Event{
		"AK": {live},
	}}, testNow)

	res, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Duplicates)

	var kept []*Pending
	for _, p := range store.all() {
		if sameTuple(p, &row) {
			kept = append(kept, p)
		}
	}
	require.Len(t, kept, 1)
	assert.Equal(t, int64(1), kept[0].ID)
}

func TestRunDeletesExpiredRows(t *testing.T) {
	store := newMemStore()
	past := bannerEvent(testNow.Unix()-30*daySeconds, testNow.Unix()-20*daySeconds)
	stale := &Pending{
		Category: past.Category, Profile: past.Profile, Title: past.Title,
		TimingType: TimingEnd, NotifyUnix: past.EndUnix,
		EventTimeUnix: past.EndUnix, Sent: true,
	}
	store.insertRaw(stale)

	rec := newTestReconciler(store, fakeEvents{byProfile: map[string][]*event.Event{
		"AK": {past},
	}}, testNow)
	res, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Ghosts)
	assert.Equal(t, int64(1), res.Expired)
	assert.Empty(t, store.all())
}
