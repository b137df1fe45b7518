// Package calendar holds the scheduling rules for staff calendar events.
//
// Conflicts are advisory: callers report them alongside the saved event and
// never refuse to schedule because of them.
package calendar

import (
	"errors"
	"strings"
	"time"

	"pharmacrm/internal/models"
)

var (
	ErrMissingTitle = errors.New("title is required")
	ErrInvalidRange = errors.New("start must not be after end")
)

// Overlaps treats both ranges as half-open, [start, end). A zero-length range
// is empty, so it never overlaps anything, and ranges that only touch at a
// boundary do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	if !s1.Before(e1) || !s2.Before(e2) {
		return false
	}
	return s1.Before(e2) && s2.Before(e1)
}

// SharesParticipant reports whether the two participant lists intersect.
func SharesParticipant(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}
	for _, p := range b {
		if _, ok := set[p]; ok {
			return true
		}
	}
	return false
}

// Conflicts returns the events in existing that overlap candidate in time and
// share at least one participant with it. The candidate itself and cancelled
// events are skipped.
func Conflicts(candidate models.CalendarEvent, existing []models.CalendarEvent) []models.CalendarEvent {
	out := make([]models.CalendarEvent, 0)
	for _, ev := range existing {
		if !candidate.ID.IsZero() && ev.ID == candidate.ID {
			continue
		}
		if ev.Status == models.EventCancelled {
			continue
		}
		if !Overlaps(candidate.Start, candidate.End, ev.Start, ev.End) {
			continue
		}
		if !SharesParticipant(candidate.Participants, ev.Participants) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Validate checks the structural invariants of an event.
func Validate(ev models.CalendarEvent) error {
	if strings.TrimSpace(ev.Title) == "" {
		return ErrMissingTitle
	}
	if ev.Start.IsZero() || ev.End.IsZero() {
		return ErrInvalidRange
	}
	if ev.Start.After(ev.End) {
		return ErrInvalidRange
	}
	return nil
}
