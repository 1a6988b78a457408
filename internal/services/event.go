package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventpublisher/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	categoryRepo   domain.CategoryRepository
	enricher       domain.EventEnricher
	contextTimeout time.Duration
	now            func() time.Time
}

func NewEventService(eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	categoryRepo domain.CategoryRepository,
	enricher domain.EventEnricher,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		categoryRepo:   categoryRepo,
		enricher:       enricher,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) (*domain.EventView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	if err := domain.CheckEventDate(event.EventDate, now, domain.MinInitiatorLeadTime); err != nil {
		return nil, err
	}
	if err := s.checkUser(ctx, event.InitiatorID); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, event.CategoryID); err != nil {
		return nil, err
	}

	event.State = domain.EventStatePending
	event.CreatedOn = now
	event.PublishedOn = nil
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return &domain.EventView{Event: *event}, nil
}

func (s *eventService) ListInitiatorEvents(ctx context.Context, initiatorID string, page domain.Page) ([]*domain.EventView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.checkUser(ctx, initiatorID); err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListByInitiator(ctx, initiatorID, page)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return s.enricher.Enrich(ctx, events, domain.StatsRequired)
}

func (s *eventService) GetInitiatorEvent(ctx context.Context, initiatorID, eventID string) (*domain.EventView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getOwnedEvent(ctx, initiatorID, eventID)
	if err != nil {
		return nil, err
	}
	return s.enrichOne(ctx, event)
}

// UpdateEventByInitiator applies update to an unpublished event of initiatorID.
// Events of other users are reported as not found.
func (s *eventService) UpdateEventByInitiator(ctx context.Context, initiatorID, eventID string, update domain.EventUpdate) (*domain.EventView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getOwnedEvent(ctx, initiatorID, eventID)
	if err != nil {
		return nil, err
	}
	if event.State == domain.EventStatePublished {
		return nil, fmt.Errorf("%w: only pending or canceled events can be changed", domain.ErrConflict)
	}
	if update.EventDate != nil {
		if err := domain.CheckEventDate(*update.EventDate, s.now(), domain.MinInitiatorLeadTime); err != nil {
			return nil, err
		}
	}
	if update.CategoryID != nil {
		if err := s.checkCategory(ctx, *update.CategoryID); err != nil {
			return nil, err
		}
	}

	updated := event.Merge(update)
	if update.StateAction != nil {
		updated, err = updated.ApplyInitiatorAction(*update.StateAction)
		if err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, &updated, event.State); err != nil {
		return nil, err
	}
	return s.enrichOne(ctx, &updated)
}

// UpdateEventByAdmin applies update and an optional moderation decision to any event.
func (s *eventService) UpdateEventByAdmin(ctx context.Context, eventID string, update domain.EventUpdate) (*domain.EventView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	now := s.now()
	if update.EventDate != nil {
		if err := domain.CheckEventDate(*update.EventDate, now, domain.MinAdminLeadTime); err != nil {
			return nil, err
		}
	}
	if update.CategoryID != nil {
		if err := s.checkCategory(ctx, *update.CategoryID); err != nil {
			return nil, err
		}
	}

	updated := event.Merge(update)
	if update.StateAction != nil {
		updated, err = updated.ApplyAdminAction(*update.StateAction, now)
		if err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, &updated, event.State); err != nil {
		return nil, err
	}
	return s.enrichOne(ctx, &updated)
}

func (s *eventService) getOwnedEvent(ctx context.Context, initiatorID, eventID string) (*domain.Event, error) {
	if err := s.checkUser(ctx, initiatorID); err != nil {
		return nil, err
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.InitiatorID != initiatorID {
		return nil, domain.ErrNotFound
	}
	return event, nil
}

func (s *eventService) checkUser(ctx context.Context, userID string) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
		}
		return fmt.Errorf("get user: %w", err)
	}
	return nil
}

func (s *eventService) checkCategory(ctx context.Context, categoryID string) error {
	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: category %s", domain.ErrNotFound, categoryID)
		}
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}

func (s *eventService) enrichOne(ctx context.Context, event *domain.Event) (*domain.EventView, error) {
	views, err := s.enricher.Enrich(ctx, []*domain.Event{event}, domain.StatsRequired)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// save writes updated if the stored state is still read.
func (s *eventService) save(ctx context.Context, updated *domain.Event, read domain.EventState) error {
	err := s.eventRepo.Update(ctx, updated, read)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return domain.ErrNotFound
	case errors.Is(err, domain.ErrConflict):
		return err
	default:
		return fmt.Errorf("update event: %w", err)
	}
}
