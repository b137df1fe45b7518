package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"pharmacrm/internal/calendar"
	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
)

type CalendarService struct {
	events repository.EventRepository
	logger *zap.SugaredLogger
}

func NewCalendarService(events repository.EventRepository, logger *zap.SugaredLogger) *CalendarService {
	return &CalendarService{events: events, logger: logger}
}

func prepareEvent(ev *models.CalendarEvent) error {
	ev.Participants = models.NewStringList(ev.Participants)
	if ev.Status == "" {
		ev.Status = models.EventScheduled
	}
	if _, err := models.ParseEventStatus(string(ev.Status)); err != nil {
		return invalidInput("%v", err)
	}
	if err := calendar.Validate(*ev); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// Create saves the event and returns the events it conflicts with. Conflicts
// never block creation.
func (s *CalendarService) Create(ctx context.Context, ev *models.CalendarEvent) (*models.CalendarEvent, []models.CalendarEvent, error) {
	ev.ID = primitive.NilObjectID
	if err := prepareEvent(ev); err != nil {
		return nil, nil, err
	}
	conflicts, err := s.CheckConflicts(ctx, *ev)
	if err != nil {
		return nil, nil, err
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, nil, fmt.Errorf("create event: %w", err)
	}
	s.logConflicts(ev, conflicts)
	return ev, conflicts, nil
}

func (s *CalendarService) Update(ctx context.Context, ev *models.CalendarEvent) (*models.CalendarEvent, []models.CalendarEvent, error) {
	existing, err := s.events.GetByID(ctx, ev.ID)
	if err != nil {
		return nil, nil, err
	}
	ev.CreatedAt = existing.CreatedAt
	ev.CreatedBy = existing.CreatedBy
	if err := prepareEvent(ev); err != nil {
		return nil, nil, err
	}
	conflicts, err := s.CheckConflicts(ctx, *ev)
	if err != nil {
		return nil, nil, err
	}
	if err := s.events.Update(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("update event: %w", err)
	}
	s.logConflicts(ev, conflicts)
	return ev, conflicts, nil
}

func (s *CalendarService) logConflicts(ev *models.CalendarEvent, conflicts []models.CalendarEvent) {
	if len(conflicts) == 0 {
		return
	}
	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, c.ID.Hex())
	}
	s.logger.Warnw("calendar event saved with conflicts", "event_id", ev.ID.Hex(), "conflicts", ids)
}

func (s *CalendarService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.events.Delete(ctx, id)
}

func (s *CalendarService) Get(ctx context.Context, id primitive.ObjectID) (*models.CalendarEvent, error) {
	return s.events.GetByID(ctx, id)
}

// List returns events intersecting [from, to). Zero bounds are open.
func (s *CalendarService) List(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, invalidInput("to must not be before from")
	}
	events, err := s.events.ListRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// CheckConflicts reports the stored events that overlap candidate in time and
// share a participant with it. candidate.ID, when set, is excluded.
func (s *CalendarService) CheckConflicts(ctx context.Context, candidate models.CalendarEvent) ([]models.CalendarEvent, error) {
	if len(candidate.Participants) == 0 || !candidate.Start.Before(candidate.End) {
		return []models.CalendarEvent{}, nil
	}
	existing, err := s.events.ListRange(ctx, candidate.Start, candidate.End)
	if err != nil {
		return nil, fmt.Errorf("check conflicts: %w", err)
	}
	return calendar.Conflicts(candidate, existing), nil
}
