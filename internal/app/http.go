package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/northcampus/gradebook-backend/internal/http"
	httpH "github.com/northcampus/gradebook-backend/internal/http/handlers"
	httpMW "github.com/northcampus/gradebook-backend/internal/http/middleware"
	"github.com/northcampus/gradebook-backend/internal/observability"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

type Middleware struct {
	Actor *httpMW.ActorMiddleware
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Grade       *httpH.GradeHandler
	CourseGrade *httpH.CourseGradeHandler
	Quiz        *httpH.QuizHandler
	Certificate *httpH.CertificateHandler
	Catalog     *httpH.CatalogHandler
	Audit       *httpH.AuditHandler
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Actor: httpMW.NewActorMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services, reposet Repos) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Grade:       httpH.NewGradeHandler(log, services.Grading),
		CourseGrade: httpH.NewCourseGradeHandler(log, services.Grading),
		Quiz:        httpH.NewQuizHandler(log, services.Grading),
		Certificate: httpH.NewCertificateHandler(log, services.Grading, services.Renderer),
		Catalog:     httpH.NewCatalogHandler(log, reposet.Course, reposet.CourseModule, reposet.Enrollment),
		Audit:       httpH.NewAuditHandler(log, services.Trail),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:     log,
		Metrics: metrics,

		CORSOrigins: cfg.CORSOrigins,

		ActorMiddleware: middleware.Actor,

		GradeHandler:       handlers.Grade,
		CourseGradeHandler: handlers.CourseGrade,
		QuizHandler:        handlers.Quiz,
		CertificateHandler: handlers.Certificate,
		CatalogHandler:     handlers.Catalog,
		AuditHandler:       handlers.Audit,

		HealthHandler: handlers.Health,
	})
}
