package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventpublisher/internal/domain"
)

func newTestEnricher(requests *fakeRequestRepo, stats *fakeStats) *eventEnricher {
	return NewEventEnricher(requests, stats, time.Second, discardLogger()).(*eventEnricher)
}

func TestEventEnricher_ViewsByEvent(t *testing.T) {
	ctx := context.Background()
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()

	t.Run("empty input never calls stats", func(t *testing.T) {
		stats := &fakeStats{}
		e := newTestEnricher(newFakeRequestRepo(newFakeEventRepo()), stats)
		views, err := e.ViewsByEvent(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, views)
		assert.NotNil(t, views)
		assert.Equal(t, 0, stats.queryCount())
	})

	t.Run("sums rows per event and defaults to zero", func(t *testing.T) {
		stats := &fakeStats{rows: []domain.ViewStats{
			{App: "main", URI: EventURI(a), Hits: 3},
			{App: "mobile", URI: EventURI(a), Hits: 2},
			{App: "main", URI: EventURI(b), Hits: 7},
			{App: "main", URI: "/events", Hits: 100},
			{App: "main", URI: "/events/not-a-uuid", Hits: 100},
			{App: "main", URI: EventURI(uuid.NewString()), Hits: 100},
		}}
		e := newTestEnricher(newFakeRequestRepo(newFakeEventRepo()), stats)
		now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		e.now = func() time.Time { return now }

		views, err := e.ViewsByEvent(ctx, []string{a, b, c})
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{a: 5, b: 7, c: 0}, views)

		require.Len(t, stats.queries, 1)
		q := stats.queries[0]
		assert.True(t, q.Unique)
		assert.Equal(t, time.Unix(0, 0).UTC(), q.Start)
		assert.Equal(t, now, q.End)
		assert.Equal(t, []string{"/events/" + a, "/events/" + b, "/events/" + c}, q.URIs)
	})

	t.Run("gateway error is stats unavailable", func(t *testing.T) {
		stats := &fakeStats{err: errors.New("connection refused")}
		e := newTestEnricher(newFakeRequestRepo(newFakeEventRepo()), stats)
		_, err := e.ViewsByEvent(ctx, []string{a})
		require.ErrorIs(t, err, domain.ErrStatsUnavailable)
	})

	t.Run("gateway call is bounded by timeout", func(t *testing.T) {
		stats := &fakeStats{block: true}
		e := newTestEnricher(newFakeRequestRepo(newFakeEventRepo()), stats)
		e.statsTimeout = 20 * time.Millisecond
		start := time.Now()
		_, err := e.ViewsByEvent(ctx, []string{a})
		require.ErrorIs(t, err, domain.ErrStatsUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestEventEnricher_ConfirmedCountByEvent(t *testing.T) {
	ctx := context.Background()
	events := newFakeEventRepo()
	requests := newFakeRequestRepo(events)
	a, b := uuid.NewString(), uuid.NewString()
	requests.add(a, "u1", domain.RequestStatusConfirmed)
	requests.add(a, "u2", domain.RequestStatusConfirmed)
	requests.add(a, "u3", domain.RequestStatusPending)
	requests.add(b, "u1", domain.RequestStatusCanceled)
	e := newTestEnricher(requests, &fakeStats{})

	counts, err := e.ConfirmedCountByEvent(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, counts)

	counts, err = e.ConfirmedCountByEvent(ctx, []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{a: 2, b: 0}, counts)

	requests.countErr = errors.New("db down")
	_, err = e.ConfirmedCountByEvent(ctx, []string{a})
	require.Error(t, err)
}

func TestEventEnricher_Enrich(t *testing.T) {
	ctx := context.Background()
	events := newFakeEventRepo()
	ev := events.put(&domain.Event{Title: "Go meetup", State: domain.EventStatePublished})
	requests := newFakeRequestRepo(events)
	requests.add(ev.ID, "u1", domain.RequestStatusConfirmed)

	t.Run("decorates events", func(t *testing.T) {
		stats := &fakeStats{rows: []domain.ViewStats{{App: "main", URI: EventURI(ev.ID), Hits: 4}}}
		views, err := newTestEnricher(requests, stats).Enrich(ctx, []*domain.Event{ev}, domain.StatsRequired)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "Go meetup", views[0].Title)
		assert.Equal(t, int64(4), views[0].Views)
		assert.Equal(t, int64(1), views[0].ConfirmedRequests)
	})

	t.Run("no events", func(t *testing.T) {
		stats := &fakeStats{}
		views, err := newTestEnricher(requests, stats).Enrich(ctx, nil, domain.StatsRequired)
		require.NoError(t, err)
		assert.Empty(t, views)
		assert.Equal(t, 0, stats.queryCount())
	})

	t.Run("best effort substitutes zero views", func(t *testing.T) {
		stats := &fakeStats{err: errors.New("boom")}
		views, err := newTestEnricher(requests, stats).Enrich(ctx, []*domain.Event{ev}, domain.StatsBestEffort)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, int64(0), views[0].Views)
		assert.Equal(t, int64(1), views[0].ConfirmedRequests)
	})

	t.Run("required propagates stats failure", func(t *testing.T) {
		stats := &fakeStats{err: errors.New("boom")}
		_, err := newTestEnricher(requests, stats).Enrich(ctx, []*domain.Event{ev}, domain.StatsRequired)
		require.ErrorIs(t, err, domain.ErrStatsUnavailable)
	})

	t.Run("count failure always propagates", func(t *testing.T) {
		failing := newFakeRequestRepo(events)
		failing.countErr = errors.New("db down")
		_, err := newTestEnricher(failing, &fakeStats{}).Enrich(ctx, []*domain.Event{ev}, domain.StatsBestEffort)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrStatsUnavailable)
	})
}
