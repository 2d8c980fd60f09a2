package notify

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

	"github.com/kanamidev/gachatimer/internal/event"
	"github.com/kanamidev/gachatimer/internal/game"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(store Store, now time.Time) *Scheduler {
	mock := clock.NewMock()
	mock.Set(now)
	return NewScheduler(game.Default(), store, mock, testLogger(), nil)
}

var testNow = time.Unix(1_760_000_000, 0)

func bannerEvent(start, end int64) *event.Event {
	return &event.Event{
		Key:       uuid.New(),
		Profile:   "AK",
		Category:  "Banner",
		Title:     "Test Banner",
		StartUnix: start,
		EndUnix:   end,
	}
}

func TestScheduleBannerFourRows(t *testing.T) {
	store := newMemStore()
	sched := newTestScheduler(store, testNow)

	start := testNow.Unix() + 3*daySeconds
	end := start + 1_209_600
	n, err := sched.ScheduleEvent(context.Background(), bannerEvent(start, end))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	want := map[int64]string{
		start - 3600:  TimingStart,
		start - 86400: TimingStart,
		end - 3600:    TimingEnd,
		end - 86400:   TimingEnd,
	}
	rows := store.all()
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Equal(t, want[row.NotifyUnix], row.TimingType, "notify_unix %d", row.NotifyUnix)
		assert.Empty(t, row.Region)
	}
}

func TestSchedulePastStartOnlyEndRows(t *testing.T) {
	store := newMemStore()
	sched := newTestScheduler(store, testNow)

	start := testNow.Unix() - 3*daySeconds
	end := start + 1_209_600
	n, err := sched.ScheduleEvent(context.Background(), bannerEvent(start, end))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	for _, row := range store.all() {
		assert.Equal(t, TimingEnd, row.TimingType)
	}
}

func TestScheduleIdempotent(t *testing.T) {
	store := newMemStore()
	sched := newTestScheduler(store, testNow)

	start := testNow.Unix() + 3*daySeconds
	e := bannerEvent(start, start+1_209_600)

	n, err := sched.ScheduleEvent(context.Background(), e)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	n, err = sched.ScheduleEvent(context.Background(), e)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, store.all(), 4)
}

func TestScheduleNoPastRows(t *testing.T) {
	store := newMemStore()
	sched := newTestScheduler(store, testNow)

	// End close enough that only one end offset is still in the future.
	start := testNow.Unix() - 10*daySeconds
	end := testNow.Unix() + 7200
	_, err := sched.ScheduleEvent(context.Background(), bannerEvent(start, end))
	require.NoError(t, err)

	rows := store.all()
	require.Len(t, rows, 1)
	for _, row := range rows {
		assert.Greater(t, row.NotifyUnix, testNow.Unix())
	}
}

func TestScheduleUnknownCategoryNoRows(t *testing.T) {
	store := newMemStore()
	sched := newTestScheduler(store, testNow)

	e := bannerEvent(testNow.Unix()+daySeconds, testNow.Unix()+10*daySeconds)
	e.Category = "Mystery"
	n, err := sched.ScheduleEvent(context.Background(), e)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.all())
}

func TestScheduleUnknownProfileNoRows(t *testing.T) {
	store := newMemStore()
	sched := newTestScheduler(store, testNow)

	e := bannerEvent(testNow.Unix()+daySeconds, testNow.Unix()+10*daySeconds)
	e.Profile = "NOPE"
	n, err := sched.ScheduleEvent(context.Background(), e)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScheduleRegionalIndependentRows(t *testing.T) {
	store := newMemStore()
	sched := newTestScheduler(store, testNow)

	start := testNow.Unix() + 3*daySeconds
	e := &event.Event{
		Key:      uuid.New(),
		Profile:  "HSR",
		Category: "Maintenance",
		Title:    "Version Update",
	}
	// Identical starts, different ends per region.
	e.SetRegionTimes(game.RegionAsia, start, start+6*3600)
	e.SetRegionTimes(game.RegionAmerica, start, start+7*3600)
	e.SetRegionTimes(game.RegionEurope, start, start+8*3600)

	n, err := sched.ScheduleEvent(context.Background(), e)
	require.NoError(t, err)
	// Maintenance has a start offset only, one row per region.
	require.Equal(t, 3, n)

	regions := map[string]bool{}
	for _, row := range store.all() {
		assert.Equal(t, TimingStart, row.TimingType)
		assert.Equal(t, start-3600, row.NotifyUnix)
		regions[row.Region] = true
	}
	assert.Len(t, regions, 3)
}

func TestScheduleRegionalEndRowsDiffer(t *testing.T) {
	store := newMemStore()
	sched := newTestScheduler(store, testNow)

	start := testNow.Unix() + 3*daySeconds
	e := &event.Event{
		Key:      uuid.New(),
		Profile:  "ZZZ",
		Category: "Banner",
		Title:    "Limited Banner",
	}
	e.SetRegionTimes(game.RegionAsia, start, start+10*daySeconds)
	e.SetRegionTimes(game.RegionAmerica, start, start+11*daySeconds)
	e.SetRegionTimes(game.RegionEurope, start, start+12*daySeconds)

	_, err := sched.ScheduleEvent(context.Background(), e)
	require.NoError(t, err)

	// 2 start offsets + 2 end offsets per region.
	rows := store.all()
	require.Len(t, rows, 12)

	endTimes := map[string]map[int64]bool{}
	for _, row := range rows {
		if row.TimingType != TimingEnd {
			continue
		}
		if endTimes[row.Region] == nil {
			endTimes[row.Region] = map[int64]bool{}
		}
		endTimes[row.Region][row.NotifyUnix] = true
	}
	// No cross-contamination between regions.
	for region, times := range endTimes {
		for other, otherTimes := range endTimes {
			if region == other {
				continue
			}
			for at := range times {
				assert.False(t, otherTimes[at],
					"region %s shares end notify_unix %d with %s", region, at, other)
			}
		}
	}
}

func TestScheduleRegionalFallsBackToSinglePair(t *testing.T) {
	store := newMemStore()
	sched := newTestScheduler(store, testNow)

	start := testNow.Unix() + 3*daySeconds
	e := &event.Event{
		Key:       uuid.New(),
		Profile:   "WUWA",
		Category:  "Maintenance",
		Title:     "Hotfix",
		StartUnix: start,
	}

	n, err := sched.ScheduleEvent(context.Background(), e)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	for _, row := range store.all() {
		assert.Equal(t, start-3600, row.NotifyUnix)
	}
}

func TestScheduleZeroTimestampsSkipped(t *testing.T) {
	store := newMemStore()
	sched := newTestScheduler(store, testNow)

	e := bannerEvent(0, 0)
	n, err := sched.ScheduleEvent(context.Background(), e)
	require.NoError(t, err)
	assert.Zero(t, n)
}
