package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/northcampus/gradebook-backend/internal/audit"
	types "github.com/northcampus/gradebook-backend/internal/domain"
	"github.com/northcampus/gradebook-backend/internal/http/response"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

type AuditHandler struct {
	log   *logger.Logger
	trail *audit.Trail
}

func NewAuditHandler(log *logger.Logger, trail *audit.Trail) *AuditHandler {
	return &AuditHandler{
		log:   log.With("handler", "AuditHandler"),
		trail: trail,
	}
}

// RecentLogs serves the trail's in-memory ring, newest first. Filters:
// ?actor_id=&action=&target_id=&limit=. The ring answers even when the
// durable store is down, which is the point.
func (h *AuditHandler) RecentLogs(c *gin.Context) {
	q := audit.Query{
		ActionType: types.AuditActionType(c.Query("action")),
		TargetID:   c.Query("target_id"),
	}
	if raw := c.Query("actor_id"); raw != "" {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_actor_id", err)
			return
		}
		q.ActorID = actorID
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		q.Limit = limit
	}
	entries := h.trail.Recent(c.Request.Context(), q)
	response.RespondOK(c, gin.H{"logs": entries})
}
