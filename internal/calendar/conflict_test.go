package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pharmacrm/internal/models"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func at(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

func event(start, end time.Time, participants ...string) models.CalendarEvent {
	return models.CalendarEvent{
		ID:           primitive.NewObjectID(),
		Title:        "consult",
		Start:        start,
		End:          end,
		Participants: models.NewStringList(participants),
		Status:       models.EventScheduled,
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"partial overlap", at(0), at(2), at(1), at(3), true},
		{"contained", at(0), at(4), at(1), at(2), true},
		{"identical", at(0), at(1), at(0), at(1), true},
		{"disjoint", at(0), at(1), at(2), at(3), false},
		{"back to back", at(0), at(1), at(1), at(2), false},
		{"back to back reversed", at(1), at(2), at(0), at(1), false},
		{"zero width inside other", at(1), at(1), at(0), at(2), false},
		{"zero width other", at(0), at(2), at(1), at(1), false},
		{"both zero width same instant", at(1), at(1), at(1), at(1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.s1, tc.e1, tc.s2, tc.e2))
		})
	}
}

func TestConflictsRequireSharedParticipant(t *testing.T) {
	candidate := event(at(0), at(2), "alice")
	existing := []models.CalendarEvent{
		event(at(0), at(2), "bob"),
		event(at(1), at(3), "carol", "dave"),
	}
	assert.Empty(t, Conflicts(candidate, existing))
}

func TestConflictsReportsOverlappingSharedEvents(t *testing.T) {
	candidate := event(at(0), at(2), "alice", "bob")
	hit := event(at(1), at(3), "bob")
	existing := []models.CalendarEvent{
		hit,
		event(at(2), at(3), "alice"),
		event(at(5), at(6), "alice"),
	}
	got := Conflicts(candidate, existing)
	if assert.Len(t, got, 1) {
		assert.Equal(t, hit.ID, got[0].ID)
	}
}

func TestConflictsSkipsSelfAndCancelled(t *testing.T) {
	candidate := event(at(0), at(2), "alice")
	cancelled := event(at(0), at(2), "alice")
	cancelled.Status = models.EventCancelled

	assert.Empty(t, Conflicts(candidate, []models.CalendarEvent{candidate, cancelled}))
}

func TestZeroDurationEventNeverConflicts(t *testing.T) {
	candidate := event(at(1), at(1), "alice")
	existing := []models.CalendarEvent{event(at(0), at(2), "alice")}
	assert.Empty(t, Conflicts(candidate, existing))
}

func TestValidate(t *testing.T) {
	ok := event(at(0), at(1), "alice")
	assert.NoError(t, Validate(ok))

	zero := event(at(1), at(1))
	assert.NoError(t, Validate(zero))

	backwards := event(at(2), at(1))
	assert.ErrorIs(t, Validate(backwards), ErrInvalidRange)

	untitled := ok
	untitled.Title = "  "
	assert.ErrorIs(t, Validate(untitled), ErrMissingTitle)
}
