package app

import (
	"gorm.io/gorm"

	"github.com/northcampus/gradebook-backend/internal/audit"
	"github.com/northcampus/gradebook-backend/internal/certificates"
	dataagg "github.com/northcampus/gradebook-backend/internal/data/aggregates"
	domainagg "github.com/northcampus/gradebook-backend/internal/domain/aggregates"
	"github.com/northcampus/gradebook-backend/internal/modules/grading"
	"github.com/northcampus/gradebook-backend/internal/modules/grading/policy"
	"github.com/northcampus/gradebook-backend/internal/observability"
	"github.com/northcampus/gradebook-backend/internal/platform/authority"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
	"github.com/northcampus/gradebook-backend/internal/realtime/bus"
)

type Services struct {
	Policy policy.Policy

	Ledger      domainagg.GradeLedgerAggregate
	CourseGrade domainagg.CourseGradeAggregate

	Trail     *audit.Trail
	Bus       bus.Bus
	Publisher *bus.Publisher
	Authority authority.TrustedCourseGradeSource
	Renderer  certificates.Renderer

	Grading grading.Usecases
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, metrics *observability.Metrics, reposet Repos) Services {
	log.Info("Wiring services...")

	pol := policy.Current(log)

	base := aggregateBase(db, log, metrics, pol)
	ledger := dataagg.NewGradeLedgerAggregate(dataagg.GradeLedgerAggregateDeps{
		Base:   base,
		Grades: reposet.GradeRecord,
	})
	courseGrade := dataagg.NewCourseGradeAggregate(dataagg.CourseGradeAggregateDeps{
		Base:      base,
		Modules:   reposet.CourseModule,
		Grades:    reposet.GradeRecord,
		Snapshots: reposet.CourseGradeSnapshot,
		Policy:    pol.CalcPolicy(),
	})

	trail := audit.NewTrail(reposet.AuditLog, log, metrics, trailConfig(cfg.Trail, pol))

	// Redis, the registrar source and certificate fonts are all optional
	// per deployment. Missing config degrades the feature, never the app.
	var gradeBus bus.Bus
	var publisher *bus.Publisher
	if b, err := bus.NewRedisBus(log); err != nil {
		log.Warn("Grade event bus disabled", "error", err)
	} else {
		gradeBus = b
		publisher = bus.NewPublisher(b, log, metrics)
	}

	trusted, err := authority.NewFromEnv(log, metrics)
	if err != nil {
		log.Warn("Trusted grade source disabled", "error", err)
		trusted = nil
	}

	renderer, err := certificates.NewRenderer(log, metrics)
	if err != nil {
		log.Warn("Certificate rendering disabled", "error", err)
		renderer = nil
	}

	usecases := grading.New(grading.UsecasesDeps{
		DB:          db,
		Log:         log,
		Ledger:      ledger,
		CourseGrade: courseGrade,
		Grades:      reposet.GradeRecord,
		Snapshots:   reposet.CourseGradeSnapshot,
		Courses:     reposet.Course,
		Modules:     reposet.CourseModule,
		Enrollments: reposet.Enrollment,
		Trail:       trail,
		Publisher:   publisher,
		Metrics:     metrics,
		Authority:   trusted,
		Policy:      pol,
	})

	return Services{
		Policy:      pol,
		Ledger:      ledger,
		CourseGrade: courseGrade,
		Trail:       trail,
		Bus:         gradeBus,
		Publisher:   publisher,
		Authority:   trusted,
		Renderer:    renderer,
		Grading:     usecases,
	}
}

// aggregateBase builds the shared write-protocol deps: ledger hooks feed the
// aggregate metric families, and the optimistic retry budget comes from the
// deployed grading policy.
func aggregateBase(db *gorm.DB, log *logger.Logger, metrics *observability.Metrics, pol policy.Policy) dataagg.BaseDeps {
	return dataagg.BaseDeps{
		DB:            db,
		Log:           log,
		Hooks:         dataagg.NewObservabilityHooks(metrics),
		MaxTxAttempts: pol.Correction.MaxAttempts,
	}
}

// trailConfig fills unset audit trail knobs from the deployed grading policy.
// Explicit env configuration wins over the policy file.
func trailConfig(env audit.Config, pol policy.Policy) audit.Config {
	if env.RingCapacity <= 0 {
		env.RingCapacity = pol.Audit.RingCapacity
	}
	if env.QueueDepth <= 0 {
		env.QueueDepth = pol.Audit.QueueDepth
	}
	return env
}
