package event

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanamidev/gachatimer/internal/game"
)

type fakeStorage struct {
	nextID int64
	events map[int64]*Event
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{nextID: 1, events: make(map[int64]*Event)}
}

func (f *fakeStorage) GetAll(ctx context.Context, profile string) ([]*Event, error) {
	var out []*Event
	for _, e := range f.events {
		if e.Profile == profile {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStorage) GetByTitle(ctx context.Context, profile, title string) (*Event, error) {
	for _, e := range f.events {
		if e.Profile == profile && e.Title == title {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStorage) GetByID(ctx context.Context, id int64) (*Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStorage) Insert(ctx context.Context, e *Event) error {
	if e.Key == uuid.Nil {
		e.Key = uuid.New()
	}
	e.ID = f.nextID
	f.nextID++
	cp := *e
	f.events[e.ID] = &cp
	return nil
}

func (f *fakeStorage) Update(ctx context.Context, e *Event) error {
	if _, ok := f.events[e.ID]; !ok {
		return ErrNotFound
	}
	cp := *e
	f.events[e.ID] = &cp
	return nil
}

func (f *fakeStorage) Delete(ctx context.Context, id int64) error {
	if _, ok := f.events[id]; !ok {
		return ErrNotFound
	}
	delete(f.events, id)
	return nil
}

type fakeScheduler struct {
	scheduled []*Event
}

func (f *fakeScheduler) ScheduleEvent(ctx context.Context, e *Event) (int, error) {
	cp := *e
	f.scheduled = append(f.scheduled, &cp)
	return 1, nil
}

type fakeCascade struct {
	rows    bool
	deletes int
}

func (f *fakeCascade) DeleteForEvent(ctx context.Context, profile, title, category string) (int64, error) {
	f.deletes++
	return 1, nil
}

func (f *fakeCascade) HasRows(ctx context.Context, profile, title, category string) (bool, error) {
	return f.rows, nil
}

func serviceLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var serviceNow = time.Unix(1_760_000_000, 0)

func newTestService(store *fakeStorage, sched *fakeScheduler, cascade *fakeCascade) *Service {
	mock := clock.NewMock()
	mock.Set(serviceNow)
	return NewService(store, game.Default(), sched, cascade, mock, serviceLogger())
}

func sampleEvent() *Event {
	return &Event{
		Profile:   "AK",
		Category:  "Banner",
		Title:     "Sample Banner",
		StartUnix: serviceNow.Unix() + 3*86400,
		EndUnix:   serviceNow.Unix() + 17*86400,
	}
}

func TestAddOrUpdateInsertsAndSchedules(t *testing.T) {
	store := newFakeStorage()
	sched := &fakeScheduler{}
	svc := newTestService(store, sched, &fakeCascade{})

	e := sampleEvent()
	require.NoError(t, svc.AddOrUpdate(context.Background(), e))

	assert.NotZero(t, e.ID)
	assert.NotEqual(t, uuid.Nil, e.Key)
	require.Len(t, sched.scheduled, 1)
	assert.Equal(t, e.Title, sched.scheduled[0].Title)
}

func TestAddOrUpdateUnchangedIsNoop(t *testing.T) {
	store := newFakeStorage()
	sched := &fakeScheduler{}
	cascade := &fakeCascade{rows: true}
	svc := newTestService(store, sched, cascade)

	require.NoError(t, svc.AddOrUpdate(context.Background(), sampleEvent()))
	require.NoError(t, svc.AddOrUpdate(context.Background(), sampleEvent()))

	assert.Len(t, sched.scheduled, 1)
	assert.Zero(t, cascade.deletes)
}

func TestAddOrUpdateUnchangedSelfHealsMissingRows(t *testing.T) {
	store := newFakeStorage()
	sched := &fakeScheduler{}
	cascade := &fakeCascade{rows: false}
	svc := newTestService(store, sched, cascade)

	require.NoError(t, svc.AddOrUpdate(context.Background(), sampleEvent()))
	require.NoError(t, svc.AddOrUpdate(context.Background(), sampleEvent()))

	// Second pass reschedules because the rows went missing.
	assert.Len(t, sched.scheduled, 2)
	assert.Zero(t, cascade.deletes)
}

func TestAddOrUpdateTimestampChangeReschedules(t *testing.T) {
	store := newFakeStorage()
	sched := &fakeScheduler{}
	cascade := &fakeCascade{rows: true}
	svc := newTestService(store, sched, cascade)

	first := sampleEvent()
	require.NoError(t, svc.AddOrUpdate(context.Background(), first))

	moved := sampleEvent()
	moved.EndUnix += 86400
	require.NoError(t, svc.AddOrUpdate(context.Background(), moved))

	assert.Equal(t, first.ID, moved.ID)
	assert.Equal(t, first.Key, moved.Key)
	assert.Equal(t, 1, cascade.deletes)
	require.Len(t, sched.scheduled, 2)
	assert.Equal(t, first.EndUnix+86400, sched.scheduled[1].EndUnix)

	stored, err := store.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, moved.EndUnix, stored.EndUnix)
}

func TestAddOrUpdateDescriptionChangeReschedules(t *testing.T) {
	store := newFakeStorage()
	sched := &fakeScheduler{}
	cascade := &fakeCascade{rows: true}
	svc := newTestService(store, sched, cascade)

	require.NoError(t, svc.AddOrUpdate(context.Background(), sampleEvent()))

	updated := sampleEvent()
	updated.Description = "Rate-up details revised"
	require.NoError(t, svc.AddOrUpdate(context.Background(), updated))

	assert.Len(t, sched.scheduled, 2)
	assert.Equal(t, 1, cascade.deletes)
}

func TestAddOrUpdateTournamentIgnoresDescriptionOnlyChange(t *testing.T) {
	store := newFakeStorage()
	sched := &fakeScheduler{}
	cascade := &fakeCascade{rows: true}
	svc := newTestService(store, sched, cascade)

	meeting := func(desc string) *Event {
		return &Event{
			Profile:     "UMA",
			Category:    "Champions Meeting",
			Title:       "Taurus Cup",
			Description: desc,
			StartUnix:   serviceNow.Unix() + 86400,
			EndUnix:     serviceNow.Unix() + 8*86400,
		}
	}

	require.NoError(t, svc.AddOrUpdate(context.Background(), meeting("Initial announcement")))
	require.NoError(t, svc.AddOrUpdate(context.Background(), meeting("Announcement with banner art")))

	// Phases derive from the timestamps, so nothing needed rebuilding.
	assert.Len(t, sched.scheduled, 1)
	assert.Zero(t, cascade.deletes)
}

func TestEditRebuildsUnderOldCategory(t *testing.T) {
	store := newFakeStorage()
	sched := &fakeScheduler{}
	cascade := &fakeCascade{rows: true}
	svc := newTestService(store, sched, cascade)

	e := sampleEvent()
	require.NoError(t, svc.AddOrUpdate(context.Background(), e))

	edit := &Event{
		ID:        e.ID,
		Category:  "Event",
		Title:     e.Title,
		StartUnix: e.StartUnix,
		EndUnix:   e.EndUnix,
	}
	require.NoError(t, svc.Edit(context.Background(), edit))

	assert.Equal(t, "AK", edit.Profile)
	assert.Equal(t, e.Key, edit.Key)
	assert.Equal(t, 1, cascade.deletes)
	require.Len(t, sched.scheduled, 2)
	assert.Equal(t, "Event", sched.scheduled[1].Category)
}

func TestRemoveCascades(t *testing.T) {
	store := newFakeStorage()
	sched := &fakeScheduler{}
	cascade := &fakeCascade{rows: true}
	svc := newTestService(store, sched, cascade)

	e := sampleEvent()
	require.NoError(t, svc.AddOrUpdate(context.Background(), e))
	require.NoError(t, svc.Remove(context.Background(), e.ID))

	assert.Equal(t, 1, cascade.deletes)
	_, err := store.GetByID(context.Background(), e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveUnknownID(t *testing.T) {
	svc := newTestService(newFakeStorage(), &fakeScheduler{}, &fakeCascade{})
	err := svc.Remove(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeEndedRemovesElapsedOnly(t *testing.T) {
	store := newFakeStorage()
	sched := &fakeScheduler{}
	cascade := &fakeCascade{rows: true}
	svc := newTestService(store, sched, cascade)

	live := sampleEvent()
	require.NoError(t, svc.AddOrUpdate(context.Background(), live))

	ended := sampleEvent()
	ended.Title = "Finished Banner"
	ended.StartUnix = serviceNow.Unix() - 20*86400
	ended.EndUnix = serviceNow.Unix() - 6*86400
	require.NoError(t, svc.AddOrUpdate(context.Background(), ended))

	purged, err := svc.PurgeEnded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = store.GetByID(context.Background(), ended.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetByID(context.Background(), live.ID)
	assert.NoError(t, err)
}

func TestPurgeEndedRegionalWaitsForAllRegions(t *testing.T) {
	store := newFakeStorage()
	sched := &fakeScheduler{}
	svc := newTestService(store, sched, &fakeCascade{rows: true})

	e := &Event{
		Profile:   "HSR",
		Category:  "Banner",
		Title:     "Straggler Banner",
		StartUnix: serviceNow.Unix() - 20*86400,
		EndUnix:   serviceNow.Unix() - 86400,
	}
	e.SetRegionTimes(game.RegionAsia, serviceNow.Unix()-20*86400, serviceNow.Unix()-86400)
	e.SetRegionTimes(game.RegionAmerica, serviceNow.Unix()-20*86400, serviceNow.Unix()+3600)
	e.SetRegionTimes(game.RegionEurope, serviceNow.Unix()-20*86400, serviceNow.Unix()-43200)
	require.NoError(t, svc.AddOrUpdate(context.Background(), e))

	purged, err := svc.PurgeEnded(context.Background())
	require.NoError(t, err)
	assert.Zero(t, purged)
}
