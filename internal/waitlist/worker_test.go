package waitlist

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicahq/platform/internal/availability"
)

type captureSink struct {
	offers    []Result
	unmatched []Entry
}

func (s *captureSink) OfferMatches(_ context.Context, result Result) error {
	s.offers = append(s.offers, result)
	return nil
}

func (s *captureSink) ReportUnmatched(_ context.Context, entry Entry) error {
	s.unmatched = append(s.unmatched, entry)
	return nil
}

func expectSweep(t *testing.T, mock pgxmock.PgxPoolIface, entries ...Entry) {
	t.Helper()
	mock.ExpectQuery("SELECT DISTINCT org_id").
		WillReturnRows(pgxmock.NewRows([]string{"org_id"}).AddRow(testOrg))

	rows := pgxmock.NewRows([]string{
		"id", "org_id", "patient_id", "resources", "preferred_days",
		"time_band", "duration_minutes", "priority", "active", "created_at", "updated_at",
	})
	for _, e := range entries {
		resources, err := json.Marshal(e.Resources)
		require.NoError(t, err)
		rows.AddRow(e.ID, e.OrgID, e.PatientID, resources, daysToInts(e.PreferredDays),
			string(e.TimeBand), e.DurationMinutes, e.Priority, e.Active, e.CreatedAt, e.UpdatedAt)
	}
	mock.ExpectQuery("FROM waitlist_entries").
		WithArgs(testOrg).
		WillReturnRows(rows)
}

func testWorker(t *testing.T, rdb *redis.Client, sink MatchSink) (*Worker, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	src := newStubSource()
	src.addResource(provider, weekdayTemplate(time.Monday, time.Wednesday))
	matcher := NewMatcher(availability.NewEngine(src, nil, nil), nil)

	return NewWorker(NewStore(mock), matcher, rdb, sink, nil, 0, 0, time.Hour), mock
}

func TestSweepOffersOnceThenDedupes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sink := &captureSink{}
	worker, mock := testWorker(t, rdb, sink)

	entry := testEntry()
	entry.CreatedAt = monday
	entry.UpdatedAt = monday

	expectSweep(t, mock, entry)
	offered, err := worker.Sweep(context.Background(), monday)
	require.NoError(t, err)
	assert.Equal(t, 1, offered)
	require.Len(t, sink.offers, 1)
	assert.Equal(t, entry.ID, sink.offers[0].Entry.ID)
	assert.Len(t, sink.offers[0].Matches, DefaultMaxMatches)

	// The same slots again: redis remembers the offers.
	expectSweep(t, mock, entry)
	offered, err = worker.Sweep(context.Background(), monday)
	require.NoError(t, err)
	assert.Zero(t, offered)
	assert.Len(t, sink.offers, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepReoffersAfterTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sink := &captureSink{}
	worker, mock := testWorker(t, rdb, sink)

	entry := testEntry()

	expectSweep(t, mock, entry)
	_, err := worker.Sweep(context.Background(), monday)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	expectSweep(t, mock, entry)
	offered, err := worker.Sweep(context.Background(), monday)
	require.NoError(t, err)
	assert.Equal(t, 1, offered)
	assert.Len(t, sink.offers, 2)
}

func TestSweepWithoutRedisOffersEverySweep(t *testing.T) {
	sink := &captureSink{}
	worker, mock := testWorker(t, nil, sink)

	entry := testEntry()

	for range 2 {
		expectSweep(t, mock, entry)
		offered, err := worker.Sweep(context.Background(), monday)
		require.NoError(t, err)
		assert.Equal(t, 1, offered)
	}
	assert.Len(t, sink.offers, 2)
}

func TestSweepReportsUnmatched(t *testing.T) {
	sink := &captureSink{}
	worker, mock := testWorker(t, nil, sink)

	entry := testEntry()
	entry.PreferredDays = []time.Weekday{time.Sunday}

	expectSweep(t, mock, entry)
	offered, err := worker.Sweep(context.Background(), monday)
	require.NoError(t, err)
	assert.Zero(t, offered)
	assert.Empty(t, sink.offers)
	require.Len(t, sink.unmatched, 1)
	assert.Equal(t, entry.ID, sink.unmatched[0].ID)
}
