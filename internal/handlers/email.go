package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharmacrm/internal/mailer"
)

// recipients accepts either a single address or a list.
type recipients []string

func (r *recipients) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*r = recipients{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*r = many
	return nil
}

type SendEmailRequest struct {
	To      recipients `json:"to" binding:"required"`
	Subject string     `json:"subject" binding:"required"`
	HTML    string     `json:"html" binding:"required"`
}

// SendEmail handles POST /api/send-email. Without SMTP settings the mailer
// only logs the message and the response says so.
func SendEmail(m mailer.Mailer, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/send-email"
		defer handlePanic(c, logger, route)

		var req SendEmailRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}

		to := make([]string, 0, len(req.To))
		for _, addr := range req.To {
			if addr = strings.TrimSpace(addr); addr != "" {
				to = append(to, addr)
			}
		}

		res, err := m.Send(c.Request.Context(), mailer.Message{To: to, Subject: req.Subject, HTML: req.HTML})
		if err != nil {
			respondWithError(c, logger, statusForError(err), route, err.Error())
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"messageId": res.MessageID,
			"simulated": res.Simulated,
		})
	}
}
