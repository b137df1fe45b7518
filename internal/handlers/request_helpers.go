package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"pharmacrm/internal/mailer"
	"pharmacrm/internal/middleware"
	"pharmacrm/internal/service"
)

func handlePanic(c *gin.Context, logger *zap.SugaredLogger, route string) {
	if r := recover(); r != nil {
		logger.Errorw("panic recovered", "route", route, "panic", r, "request_id", middleware.GetRequestID(c))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondWithError(c *gin.Context, logger *zap.SugaredLogger, status int, route string, message string) {
	if status >= http.StatusInternalServerError {
		logger.Errorw("returning error", "route", route, "status", status, "error", message, "request_id", middleware.GetRequestID(c))
	} else {
		logger.Infow("returning error", "route", route, "status", status, "error", message, "request_id", middleware.GetRequestID(c))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// statusForError maps service errors onto the HTTP error taxonomy: bad input
// is 400, missing entities 404, everything unexpected 500.
func statusForError(err error) int {
	var stockErr service.InsufficientStockError
	var missingErr service.ProductNotFoundError
	switch {
	case errors.As(err, &missingErr), errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &stockErr),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrUnknownEvent),
		errors.Is(err, mailer.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(c *gin.Context, logger *zap.SugaredLogger, route string, err error) {
	status := statusForError(err)

	var stockErr service.InsufficientStockError
	if errors.As(err, &stockErr) {
		logger.Infow("returning error", "route", route, "status", status, "error", err.Error())
		c.AbortWithStatusJSON(status, gin.H{
			"error":     err.Error(),
			"productId": stockErr.ProductID,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
		return
	}
	var missingErr service.ProductNotFoundError
	if errors.As(err, &missingErr) {
		logger.Infow("returning error", "route", route, "status", status, "error", err.Error())
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "productId": missingErr.ProductID})
		return
	}

	respondWithError(c, logger, status, route, err.Error())
}

// bindJSON binds the request body and answers 400 with per-field messages
// when binding fails. It reports whether the handler should continue.
func bindJSON(c *gin.Context, logger *zap.SugaredLogger, route string, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondWithError(c, logger, http.StatusBadRequest, route, bindingMessage(err))
		return false
	}
	return true
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid body"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func parseIDParam(c *gin.Context, logger *zap.SugaredLogger, route string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondWithError(c, logger, http.StatusBadRequest, route, "invalid id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func currentActor(c *gin.Context) string {
	if staff, ok := middleware.CurrentStaff(c); ok {
		return staff.Email
	}
	return ""
}

func parseBoolQuery(c *gin.Context, name string) bool {
	v := strings.TrimSpace(c.Query(name))
	return strings.EqualFold(v, "true") || v == "1"
}
