package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/northcampus/gradebook-backend/internal/http/response"
	"github.com/northcampus/gradebook-backend/internal/modules/grading"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

type CourseGradeHandler struct {
	log     *logger.Logger
	grading grading.Usecases
}

func NewCourseGradeHandler(log *logger.Logger, grading grading.Usecases) *CourseGradeHandler {
	return &CourseGradeHandler{
		log:     log.With("handler", "CourseGradeHandler"),
		grading: grading,
	}
}

func learnerCoursePair(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	learnerID, err := uuid.Parse(c.Param("learnerID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_learner_id", err)
		return uuid.Nil, uuid.Nil, false
	}
	courseID, err := uuid.Parse(c.Param("courseID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return uuid.Nil, uuid.Nil, false
	}
	return learnerID, courseID, true
}

// PreviewCourseGrade computes the weighted course grade without persisting
// anything. Incomplete courses preview fine; the result says so.
func (h *CourseGradeHandler) PreviewCourseGrade(c *gin.Context) {
	learnerID, courseID, ok := learnerCoursePair(c)
	if !ok {
		return
	}
	calc, err := h.grading.CalculateCourseGrade(c.Request.Context(), learnerID, courseID)
	if err != nil {
		h.log.Warn("PreviewCourseGrade failed", "error", err, "learner_id", learnerID, "course_id", courseID)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"calculation": calc})
}

// SaveCourseGrade persists an official snapshot of the current course grade.
func (h *CourseGradeHandler) SaveCourseGrade(c *gin.Context) {
	ad := actorOrAbort(c)
	if ad == nil {
		return
	}
	learnerID, courseID, ok := learnerCoursePair(c)
	if !ok {
		return
	}
	out, err := h.grading.CalculateAndSaveCourseGrade(c.Request.Context(), grading.SaveCourseGradeInput{
		LearnerID: learnerID,
		CourseID:  courseID,
		ActorID:   ad.ActorID,
		ActorName: ad.ActorName,
	})
	if err != nil {
		h.log.Warn("SaveCourseGrade failed", "error", err, "learner_id", learnerID, "course_id", courseID)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"snapshot": out.Snapshot, "calculation": out.Calculation})
}

// GetCourseGrade serves the saved official snapshot when one exists, or a
// fresh calculation otherwise. `?recalculate=true` bypasses the snapshot.
func (h *CourseGradeHandler) GetCourseGrade(c *gin.Context) {
	learnerID, courseID, ok := learnerCoursePair(c)
	if !ok {
		return
	}
	force := c.Query("recalculate") == "true"
	view, err := h.grading.GetCourseGrade(c.Request.Context(), learnerID, courseID, force)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// VerifiedCourseGrade proxies the trusted registrar source and cross-checks
// it against the local calculation.
func (h *CourseGradeHandler) VerifiedCourseGrade(c *gin.Context) {
	learnerID, courseID, ok := learnerCoursePair(c)
	if !ok {
		return
	}
	res, err := h.grading.VerifiedCourseGrade(c.Request.Context(), learnerID, courseID)
	if err != nil {
		h.log.Warn("VerifiedCourseGrade failed", "error", err, "learner_id", learnerID, "course_id", courseID)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grade": res})
}
