package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharmacrm/internal/service"
)

type LeadStageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

type LeadNoteRequest struct {
	Text string `json:"text" binding:"required"`
}

func AdminListLeads(leads *service.LeadService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/leads"
		defer handlePanic(c, logger, route)

		list, err := leads.List(c.Request.Context(), c.Query("stage"))
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
	}
}

func AdminCreateLead(leads *service.LeadService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/leads"
		defer handlePanic(c, logger, route)

		var req service.CreateLeadRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}
		lead, err := leads.Create(c.Request.Context(), req, currentActor(c))
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusCreated, lead)
	}
}

func AdminGetLead(leads *service.LeadService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/leads/:id"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		lead, err := leads.Get(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, lead)
	}
}

func AdminUpdateLeadStage(leads *service.LeadService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /admin/api/leads/:id/stage"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		var req LeadStageRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}
		lead, err := leads.UpdateStage(c.Request.Context(), id, req.Stage)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, lead)
	}
}

func AdminAddLeadNote(leads *service.LeadService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/leads/:id/notes"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		var req LeadNoteRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}
		lead, err := leads.AddNote(c.Request.Context(), id, req.Text, currentActor(c))
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, lead)
	}
}
