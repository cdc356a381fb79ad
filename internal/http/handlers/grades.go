package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/northcampus/gradebook-backend/internal/http/response"
	"github.com/northcampus/gradebook-backend/internal/modules/grading"
	"github.com/northcampus/gradebook-backend/internal/platform/ctxutil"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

type GradeHandler struct {
	log     *logger.Logger
	grading grading.Usecases
}

func NewGradeHandler(log *logger.Logger, grading grading.Usecases) *GradeHandler {
	return &GradeHandler{
		log:     log.With("handler", "GradeHandler"),
		grading: grading,
	}
}

// actorOrAbort pulls the authenticated grader out of the request context.
// The actor middleware guarantees it on protected routes; a nil here means
// the route was wired without RequireActor.
func actorOrAbort(c *gin.Context) *ctxutil.ActorData {
	ad := ctxutil.GetActorData(c.Request.Context())
	if ad == nil || ad.ActorID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil
	}
	return ad
}

type enterGradeRequest struct {
	LearnerID    string  `json:"learner_id" binding:"required,uuid"`
	CourseID     string  `json:"course_id" binding:"omitempty,uuid"`
	ModuleID     string  `json:"module_id" binding:"required,uuid"`
	Score        float64 `json:"score"`
	PassingScore *int    `json:"passing_score"`
	Notes        string  `json:"notes"`
}

func (h *GradeHandler) EnterGrade(c *gin.Context) {
	ad := actorOrAbort(c)
	if ad == nil {
		return
	}
	var req enterGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := grading.EnterGradeInput{
		LearnerID:    uuid.MustParse(req.LearnerID),
		ModuleID:     uuid.MustParse(req.ModuleID),
		Score:        req.Score,
		PassingScore: req.PassingScore,
		GraderID:     ad.ActorID,
		GraderName:   ad.ActorName,
		Notes:        req.Notes,
	}
	if req.CourseID != "" {
		in.CourseID = uuid.MustParse(req.CourseID)
	}
	rec, err := h.grading.EnterGrade(c.Request.Context(), in)
	if err != nil {
		h.log.Warn("EnterGrade failed", "error", err, "learner_id", req.LearnerID, "module_id", req.ModuleID)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"grade": rec})
}

type correctGradeRequest struct {
	NewScore         float64 `json:"new_score"`
	PassingScore     *int    `json:"passing_score"`
	CorrectionReason string  `json:"correction_reason" binding:"required,notblank"`
	Notes            string  `json:"notes"`
}

func (h *GradeHandler) CorrectGrade(c *gin.Context) {
	ad := actorOrAbort(c)
	if ad == nil {
		return
	}
	originalID := c.Param("id")
	var req correctGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.grading.CorrectGrade(c.Request.Context(), grading.CorrectGradeInput{
		OriginalGradeID:  originalID,
		NewScore:         req.NewScore,
		PassingScore:     req.PassingScore,
		CorrectionReason: req.CorrectionReason,
		GraderID:         ad.ActorID,
		GraderName:       ad.ActorName,
		Notes:            req.Notes,
	})
	if err != nil {
		h.log.Warn("CorrectGrade failed", "error", err, "original_id", originalID, "attempts", out.Attempts)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"grade": out.Record, "superseded_id": out.SupersededID})
}

type setVisibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

func (h *GradeHandler) SetGradeVisibility(c *gin.Context) {
	ad := actorOrAbort(c)
	if ad == nil {
		return
	}
	gradeID := c.Param("id")
	var req setVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rec, err := h.grading.SetGradeVisibility(c.Request.Context(), grading.SetGradeVisibilityInput{
		GradeID:   gradeID,
		Visible:   *req.Visible,
		ActorID:   ad.ActorID,
		ActorName: ad.ActorName,
	})
	if err != nil {
		h.log.Warn("SetGradeVisibility failed", "error", err, "grade_id", gradeID)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grade": rec})
}

func (h *GradeHandler) GetCurrentGrade(c *gin.Context) {
	learnerID, err := uuid.Parse(c.Param("learnerID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_learner_id", err)
		return
	}
	moduleID, err := uuid.Parse(c.Param("moduleID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}
	rec, err := h.grading.GetCurrentGrade(c.Request.Context(), learnerID, moduleID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grade": rec})
}

func (h *GradeHandler) GetGradeHistory(c *gin.Context) {
	learnerID, err := uuid.Parse(c.Param("learnerID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_learner_id", err)
		return
	}
	moduleID, err := uuid.Parse(c.Param("moduleID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}
	records, err := h.grading.GetGradeHistory(c.Request.Context(), learnerID, moduleID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grades": records})
}

func (h *GradeHandler) ListLearnerGrades(c *gin.Context) {
	learnerID, err := uuid.Parse(c.Param("learnerID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_learner_id", err)
		return
	}
	records, err := h.grading.GetLearnerGrades(c.Request.Context(), learnerID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grades": records})
}

func (h *GradeHandler) ListModuleGrades(c *gin.Context) {
	moduleID, err := uuid.Parse(c.Param("moduleID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}
	records, err := h.grading.GetModuleGrades(c.Request.Context(), moduleID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grades": records})
}
