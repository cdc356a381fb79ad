package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/northcampus/gradebook-backend/internal/http/handlers"
	httpMW "github.com/northcampus/gradebook-backend/internal/http/middleware"
	"github.com/northcampus/gradebook-backend/internal/observability"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	// CORSOrigins overrides the middleware's development defaults.
	CORSOrigins []string

	ActorMiddleware *httpMW.ActorMiddleware

	GradeHandler       *httpH.GradeHandler
	CourseGradeHandler *httpH.CourseGradeHandler
	QuizHandler        *httpH.QuizHandler
	CertificateHandler *httpH.CertificateHandler
	CatalogHandler     *httpH.CatalogHandler
	AuditHandler       *httpH.AuditHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("gradebook-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins...))
	r.Use(httpMW.Metrics(cfg.Metrics))
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	api := r.Group("/api")

	protected := api.Group("/")
	{
		// Middleware
		if cfg.ActorMiddleware != nil {
			protected.Use(cfg.ActorMiddleware.RequireActor())
		}

		// Grade ledger
		if cfg.GradeHandler != nil {
			protected.POST("/grades", cfg.GradeHandler.EnterGrade)
			protected.POST("/grades/:id/corrections", cfg.GradeHandler.CorrectGrade)
			protected.PATCH("/grades/:id/visibility", cfg.GradeHandler.SetGradeVisibility)
			protected.GET("/learners/:learnerID/modules/:moduleID/grade", cfg.GradeHandler.GetCurrentGrade)
			protected.GET("/learners/:learnerID/modules/:moduleID/grade/history", cfg.GradeHandler.GetGradeHistory)
			protected.GET("/learners/:learnerID/grades", cfg.GradeHandler.ListLearnerGrades)
			protected.GET("/modules/:moduleID/grades", cfg.GradeHandler.ListModuleGrades)
		}

		// Course grades
		if cfg.CourseGradeHandler != nil {
			protected.POST("/learners/:learnerID/courses/:courseID/grade/preview", cfg.CourseGradeHandler.PreviewCourseGrade)
			protected.POST("/learners/:learnerID/courses/:courseID/grade", cfg.CourseGradeHandler.SaveCourseGrade)
			protected.GET("/learners/:learnerID/courses/:courseID/grade", cfg.CourseGradeHandler.GetCourseGrade)
			protected.GET("/learners/:learnerID/courses/:courseID/grade/verified", cfg.CourseGradeHandler.VerifiedCourseGrade)
		}

		// Quiz scoring
		if cfg.QuizHandler != nil {
			protected.POST("/quizzes/score", cfg.QuizHandler.ScoreQuiz)
		}

		// Certificates
		if cfg.CertificateHandler != nil {
			protected.GET("/learners/:learnerID/courses/:courseID/certificate", cfg.CertificateHandler.RenderCertificate)
		}

		// Catalog (read only)
		if cfg.CatalogHandler != nil {
			protected.GET("/courses", cfg.CatalogHandler.ListCourses)
			protected.GET("/courses/:id", cfg.CatalogHandler.GetCourse)
			protected.GET("/courses/:id/modules", cfg.CatalogHandler.ListCourseModules)
			protected.GET("/learners/:learnerID/enrollments", cfg.CatalogHandler.ListLearnerEnrollments)
		}

		// Audit trail (registrar only)
		if cfg.AuditHandler != nil {
			logs := protected.Group("/audit")
			if cfg.ActorMiddleware != nil {
				logs.Use(cfg.ActorMiddleware.RequireRole("registrar"))
			}
			logs.GET("/logs", cfg.AuditHandler.RecentLogs)
		}
	}

	return r
}
