package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/northcampus/gradebook-backend/internal/http/response"
	"github.com/northcampus/gradebook-backend/internal/modules/grading"
	"github.com/northcampus/gradebook-backend/internal/modules/grading/quickscore"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

type QuizHandler struct {
	log     *logger.Logger
	grading grading.Usecases
}

func NewQuizHandler(log *logger.Logger, grading grading.Usecases) *QuizHandler {
	return &QuizHandler{
		log:     log.With("handler", "QuizHandler"),
		grading: grading,
	}
}

type scoreQuizRequest struct {
	Questions []quickscore.QuestionSpec    `json:"questions" binding:"required,min=1"`
	Answers   map[string]quickscore.Answer `json:"answers"`

	// Enter, when present, records the resulting percentage as a grade for
	// the named learner/module.
	Enter *scoreQuizEnter `json:"enter"`
}

type scoreQuizEnter struct {
	LearnerID    string `json:"learner_id" binding:"required,uuid"`
	CourseID     string `json:"course_id" binding:"omitempty,uuid"`
	ModuleID     string `json:"module_id" binding:"required,uuid"`
	PassingScore *int   `json:"passing_score"`
	Notes        string `json:"notes"`
}

func (h *QuizHandler) ScoreQuiz(c *gin.Context) {
	ad := actorOrAbort(c)
	if ad == nil {
		return
	}
	var req scoreQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := grading.ScoreQuizInput{
		Questions: req.Questions,
		Answers:   req.Answers,
	}
	if req.Enter != nil {
		spec := grading.QuizGradeSpec{
			LearnerID:    uuid.MustParse(req.Enter.LearnerID),
			ModuleID:     uuid.MustParse(req.Enter.ModuleID),
			PassingScore: req.Enter.PassingScore,
			GraderID:     ad.ActorID,
			GraderName:   ad.ActorName,
			Notes:        req.Enter.Notes,
		}
		if req.Enter.CourseID != "" {
			spec.CourseID = uuid.MustParse(req.Enter.CourseID)
		}
		in.Enter = &spec
	}
	out, err := h.grading.ScoreQuiz(c.Request.Context(), in)
	if err != nil {
		h.log.Warn("ScoreQuiz failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}
