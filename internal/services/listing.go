package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"eventpublisher/internal/domain"
)

type eventListingService struct {
	eventRepo      domain.EventRepository
	enricher       domain.EventEnricher
	stats          domain.StatsGateway
	appName        string
	statsTimeout   time.Duration
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewEventListingService returns the public and administrative event queries.
// Public reads are recorded as hits of appName on stats.
func NewEventListingService(eventRepo domain.EventRepository,
	enricher domain.EventEnricher,
	stats domain.StatsGateway,
	appName string,
	statsTimeout time.Duration,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventListingService {
	return &eventListingService{
		eventRepo:      eventRepo,
		enricher:       enricher,
		stats:          stats,
		appName:        appName,
		statsTimeout:   statsTimeout,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

// SearchPublic lists published events. Without a date range only future events are returned.
func (s *eventListingService) SearchPublic(ctx context.Context, filter domain.EventFilter, sortBy domain.EventSort, page domain.Page, visit domain.Visit) ([]*domain.EventView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.States = []domain.EventState{domain.EventStatePublished}
	filter.InitiatorIDs = nil
	if filter.RangeStart == nil && filter.RangeEnd == nil {
		now := s.now()
		filter.RangeStart = &now
	}

	s.recordHit(ctx, visit)

	switch sortBy {
	case domain.EventSortDate, "":
		events, err := s.eventRepo.Search(ctx, filter, &page)
		if err != nil {
			return nil, fmt.Errorf("search events: %w", err)
		}
		return s.enricher.Enrich(ctx, events, domain.StatsBestEffort)
	case domain.EventSortViews:
		events, err := s.eventRepo.Search(ctx, filter, nil)
		if err != nil {
			return nil, fmt.Errorf("search events: %w", err)
		}
		views, err := s.enricher.Enrich(ctx, events, domain.StatsBestEffort)
		if err != nil {
			return nil, err
		}
		sortByViews(views)
		start, end := page.Slice(len(views))
		return views[start:end], nil
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", domain.ErrValidation, sortBy)
	}
}

// sortByViews orders views by descending view count; ties go to the earlier event.
func sortByViews(views []*domain.EventView) {
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Views != views[j].Views {
			return views[i].Views > views[j].Views
		}
		return views[i].EventDate.Before(views[j].EventDate)
	})
}

func (s *eventListingService) GetPublished(ctx context.Context, eventID string, visit domain.Visit) (*domain.EventView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.State != domain.EventStatePublished {
		return nil, domain.ErrNotFound
	}

	s.recordHit(ctx, visit)

	views, err := s.enricher.Enrich(ctx, []*domain.Event{event}, domain.StatsBestEffort)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *eventListingService) SearchAdmin(ctx context.Context, filter domain.EventFilter, page domain.Page) ([]*domain.EventView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := filter.Validate(); err != nil {
		return nil, err
	}
	events, err := s.eventRepo.Search(ctx, filter, &page)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return s.enricher.Enrich(ctx, events, domain.StatsRequired)
}

// recordHit sends the visit to the stats service in the background.
// The send outlives the request and never reports back to the caller.
func (s *eventListingService) recordHit(ctx context.Context, visit domain.Visit) {
	hit := domain.Hit{
		App:       s.appName,
		URI:       visit.URI,
		IP:        visit.IP,
		Timestamp: s.now(),
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, s.statsTimeout)
		defer cancel()
		if err := s.stats.RecordHit(ctx, hit); err != nil {
			s.logger.WarnContext(ctx, "record hit failed", "uri", hit.URI, "err", err)
		}
	}()
}
