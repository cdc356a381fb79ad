package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/northcampus/gradebook-backend/internal/certificates"
	"github.com/northcampus/gradebook-backend/internal/http/response"
	"github.com/northcampus/gradebook-backend/internal/modules/grading"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

type CertificateHandler struct {
	log      *logger.Logger
	grading  grading.Usecases
	renderer certificates.Renderer
}

func NewCertificateHandler(log *logger.Logger, grading grading.Usecases, renderer certificates.Renderer) *CertificateHandler {
	return &CertificateHandler{
		log:      log.With("handler", "CertificateHandler"),
		grading:  grading,
		renderer: renderer,
	}
}

// RenderCertificate serves a completion certificate PNG. It refuses unless
// an official snapshot exists with every module graded and an overall pass.
// The gradebook stores no learner profile, so the display name comes from
// the caller via ?learner_name=.
func (h *CertificateHandler) RenderCertificate(c *gin.Context) {
	learnerID, courseID, ok := learnerCoursePair(c)
	if !ok {
		return
	}
	learnerName := strings.TrimSpace(c.Query("learner_name"))
	if learnerName == "" {
		response.RespondError(c, http.StatusBadRequest, "learner_name_required", nil)
		return
	}
	if h.renderer == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "certificates_disabled", nil)
		return
	}
	snap, course, err := h.grading.CertificateSnapshot(c.Request.Context(), learnerID, courseID)
	if err != nil {
		h.log.Warn("RenderCertificate refused", "error", err, "learner_id", learnerID, "course_id", courseID)
		response.RespondDomainError(c, err)
		return
	}
	png, err := h.renderer.Render(certificates.Certificate{
		LearnerName:  learnerName,
		CourseTitle:  course.Title,
		CourseCode:   course.Code,
		OverallScore: snap.OverallScore,
		CompletedAt:  snap.CalculatedAt,
		SerialID:     snap.ID,
	})
	if err != nil {
		h.log.Error("RenderCertificate failed", "error", err, "learner_id", learnerID, "course_id", courseID)
		response.RespondError(c, http.StatusInternalServerError, "render_failed", err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
