package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/service"
)

type CalendarEventRequest struct {
	Title        string    `json:"title" binding:"required"`
	Description  string    `json:"description"`
	Start        time.Time `json:"start" binding:"required"`
	End          time.Time `json:"end" binding:"required"`
	Participants []string  `json:"participants"`
	Recurrence   string    `json:"recurrence"`
	Status       string    `json:"status"`
}

func (r CalendarEventRequest) toModel() (*models.CalendarEvent, error) {
	ev := &models.CalendarEvent{
		Title:        strings.TrimSpace(r.Title),
		Description:  r.Description,
		Start:        r.Start.UTC(),
		End:          r.End.UTC(),
		Participants: models.NewStringList(r.Participants),
		Recurrence:   strings.TrimSpace(r.Recurrence),
	}
	if r.Status != "" {
		status, err := models.ParseEventStatus(r.Status)
		if err != nil {
			return nil, err
		}
		ev.Status = status
	}
	return ev, nil
}

// eventResponse carries the saved event together with the overlapping events
// it shares participants with. Conflicts are advisory only.
func eventResponse(ev *models.CalendarEvent, conflicts []models.CalendarEvent) gin.H {
	if conflicts == nil {
		conflicts = []models.CalendarEvent{}
	}
	return gin.H{
		"event":     ev,
		"conflicts": conflicts,
	}
}

/*
GET /admin/api/calendar
- from, to (RFC3339); defaults to the next 30 days
*/
func AdminListEvents(calendar *service.CalendarService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/calendar"
		defer handlePanic(c, logger, route)

		from := time.Now().UTC()
		to := from.AddDate(0, 0, 30)
		var err error
		if raw := c.Query("from"); raw != "" {
			if from, err = time.Parse(time.RFC3339, raw); err != nil {
				respondWithError(c, logger, http.StatusBadRequest, route, "invalid from")
				return
			}
		}
		if raw := c.Query("to"); raw != "" {
			if to, err = time.Parse(time.RFC3339, raw); err != nil {
				respondWithError(c, logger, http.StatusBadRequest, route, "invalid to")
				return
			}
		}

		events, err := calendar.List(c.Request.Context(), from, to)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": events, "count": len(events)})
	}
}

func AdminCreateEvent(calendar *service.CalendarService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/calendar"
		defer handlePanic(c, logger, route)

		var req CalendarEventRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}
		ev, err := req.toModel()
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}
		ev.CreatedBy = currentActor(c)

		saved, conflicts, err := calendar.Create(c.Request.Context(), ev)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusCreated, eventResponse(saved, conflicts))
	}
}

func AdminUpdateEvent(calendar *service.CalendarService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/calendar/:id"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		var req CalendarEventRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}
		ev, err := req.toModel()
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}
		ev.ID = id

		saved, conflicts, err := calendar.Update(c.Request.Context(), ev)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, eventResponse(saved, conflicts))
	}
}

func AdminDeleteEvent(calendar *service.CalendarService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/calendar/:id"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		if err := calendar.Delete(c.Request.Context(), id); err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "event deleted"})
	}
}

/*
GET /admin/api/calendar/conflicts
- start, end (RFC3339, required)
- participants: comma separated
- excludeId: event being edited
*/
func AdminCheckConflicts(calendar *service.CalendarService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/calendar/conflicts"
		defer handlePanic(c, logger, route)

		start, err := time.Parse(time.RFC3339, c.Query("start"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid start")
			return
		}
		end, err := time.Parse(time.RFC3339, c.Query("end"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid end")
			return
		}

		candidate := models.CalendarEvent{
			Start:        start.UTC(),
			End:          end.UTC(),
			Participants: models.NewStringList(strings.Split(c.Query("participants"), ",")),
		}
		if raw := c.Query("excludeId"); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				respondWithError(c, logger, http.StatusBadRequest, route, "invalid excludeId")
				return
			}
			candidate.ID = id
		}

		conflicts, err := calendar.CheckConflicts(c.Request.Context(), candidate)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"hasConflicts": len(conflicts) > 0,
			"conflicts":    conflicts,
		})
	}
}
