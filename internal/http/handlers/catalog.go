package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/northcampus/gradebook-backend/internal/data/repos"
	"github.com/northcampus/gradebook-backend/internal/http/response"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

// CatalogHandler serves the read-only course catalog the gradebook grades
// against. Catalog writes belong to the registrar system, not this API.
type CatalogHandler struct {
	log         *logger.Logger
	courses     repos.CourseRepo
	modules     repos.CourseModuleRepo
	enrollments repos.EnrollmentRepo
}

func NewCatalogHandler(log *logger.Logger, courses repos.CourseRepo, modules repos.CourseModuleRepo, enrollments repos.EnrollmentRepo) *CatalogHandler {
	return &CatalogHandler{
		log:         log.With("handler", "CatalogHandler"),
		courses:     courses,
		modules:     modules,
		enrollments: enrollments,
	}
}

func (h *CatalogHandler) ListCourses(c *gin.Context) {
	publishedOnly := c.Query("published") == "true"
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	courses, err := h.courses.List(dbc, publishedOnly)
	if err != nil {
		h.log.Error("ListCourses failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_courses_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

func (h *CatalogHandler) GetCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	course, err := h.courses.GetByID(dbc, courseID)
	if err != nil {
		h.log.Error("GetCourse failed", "error", err, "course_id", courseID)
		response.RespondError(c, http.StatusInternalServerError, "get_course_failed", err)
		return
	}
	if course == nil {
		response.RespondError(c, http.StatusNotFound, "course_not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

func (h *CatalogHandler) ListCourseModules(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	modules, err := h.modules.ListByCourseID(dbc, courseID)
	if err != nil {
		h.log.Error("ListCourseModules failed", "error", err, "course_id", courseID)
		response.RespondError(c, http.StatusInternalServerError, "list_modules_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"modules": modules})
}

func (h *CatalogHandler) ListLearnerEnrollments(c *gin.Context) {
	learnerID, err := uuid.Parse(c.Param("learnerID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_learner_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	enrollments, err := h.enrollments.ListByLearner(dbc, learnerID)
	if err != nil {
		h.log.Error("ListLearnerEnrollments failed", "error", err, "learner_id", learnerID)
		response.RespondError(c, http.StatusInternalServerError, "list_enrollments_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"enrollments": enrollments})
}
