package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"eventpublisher/internal/domain"
)

const eventURIPrefix = "/events/"

// EventURI is the public URI of an event; its hits are the event's views.
func EventURI(eventID string) string {
	return eventURIPrefix + eventID
}

func eventIDFromURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, eventURIPrefix)
	if !ok {
		return "", false
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

type eventEnricher struct {
	requestRepo  domain.ParticipationRequestRepository
	stats        domain.StatsGateway
	statsTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewEventEnricher returns an EventEnricher that reads views from stats and confirmed counts from requestRepo.
// Every stats query is bounded by statsTimeout.
func NewEventEnricher(requestRepo domain.ParticipationRequestRepository, stats domain.StatsGateway, statsTimeout time.Duration, logger *slog.Logger) domain.EventEnricher {
	return &eventEnricher{
		requestRepo:  requestRepo,
		stats:        stats,
		statsTimeout: statsTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

func (e *eventEnricher) ViewsByEvent(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	views := make(map[string]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return views, nil
	}

	uris := make([]string, len(eventIDs))
	for i, id := range eventIDs {
		uris[i] = EventURI(id)
		views[id] = 0
	}

	ctx, cancel := context.WithTimeout(ctx, e.statsTimeout)
	defer cancel()

	rows, err := e.stats.QueryHits(ctx, domain.StatsQuery{
		Start:  time.Unix(0, 0).UTC(),
		End:    e.now(),
		URIs:   uris,
		Unique: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStatsUnavailable, err)
	}

	// One row per app and URI; the same event may appear more than once.
	for _, row := range rows {
		id, ok := eventIDFromURI(row.URI)
		if !ok {
			continue
		}
		if _, wanted := views[id]; wanted {
			views[id] += row.Hits
		}
	}
	return views, nil
}

func (e *eventEnricher) ConfirmedCountByEvent(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}
	found, err := e.requestRepo.CountConfirmedByEvents(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("count confirmed requests: %w", err)
	}
	for _, id := range eventIDs {
		counts[id] = found[id]
	}
	return counts, nil
}

// Enrich fetches views and confirmed counts concurrently. Under StatsBestEffort a
// stats failure yields zero views; a failed local count always fails the call.
func (e *eventEnricher) Enrich(ctx context.Context, events []*domain.Event, policy domain.StatsPolicy) ([]*domain.EventView, error) {
	out := make([]*domain.EventView, 0, len(events))
	if len(events) == 0 {
		return out, nil
	}

	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}

	var views, confirmed map[string]int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := e.ViewsByEvent(gctx, ids)
		if err != nil {
			if policy == domain.StatsRequired {
				return err
			}
			e.logger.WarnContext(ctx, "stats unavailable, using zero views", "events", len(ids), "err", err)
			v = map[string]int64{}
		}
		views = v
		return nil
	})
	g.Go(func() error {
		c, err := e.ConfirmedCountByEvent(gctx, ids)
		if err != nil {
			return err
		}
		confirmed = c
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrStatsUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("enrich events: %w", err)
	}

	for _, ev := range events {
		out = append(out, &domain.EventView{
			Event:             *ev,
			ConfirmedRequests: confirmed[ev.ID],
			Views:             views[ev.ID],
		})
	}
	return out, nil
}
