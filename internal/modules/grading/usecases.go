// Package grading exposes the grading module's application operations:
// grade entry, correction, visibility, course aggregation and quiz
// scoring. Operations delegate invariant-owning writes to the ledger and
// course-grade aggregates and layer the side effects (audit events, bus
// publishes, metrics) that must never influence the write outcome.
package grading

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/northcampus/gradebook-backend/internal/audit"
	dataagg "github.com/northcampus/gradebook-backend/internal/data/aggregates"
	"github.com/northcampus/gradebook-backend/internal/data/repos"
	types "github.com/northcampus/gradebook-backend/internal/domain"
	domainagg "github.com/northcampus/gradebook-backend/internal/domain/aggregates"
	domainaudit "github.com/northcampus/gradebook-backend/internal/domain/audit"
	domaingrading "github.com/northcampus/gradebook-backend/internal/domain/grading"
	"github.com/northcampus/gradebook-backend/internal/modules/grading/policy"
	"github.com/northcampus/gradebook-backend/internal/modules/grading/quickscore"
	"github.com/northcampus/gradebook-backend/internal/observability"
	"github.com/northcampus/gradebook-backend/internal/platform/authority"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
	"github.com/northcampus/gradebook-backend/internal/realtime/bus"
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Ledger      domainagg.GradeLedgerAggregate
	CourseGrade domainagg.CourseGradeAggregate

	Grades      repos.GradeRecordRepo
	Snapshots   repos.CourseGradeSnapshotRepo
	Courses     repos.CourseRepo
	Modules     repos.CourseModuleRepo
	Enrollments repos.EnrollmentRepo

	Trail     *audit.Trail
	Publisher *bus.Publisher
	Metrics   *observability.Metrics

	// Authority is the server-side course grade source used by the
	// verified read path. Optional; unset disables that path.
	Authority authority.TrustedCourseGradeSource

	Policy policy.Policy
}

type Usecases struct {
	deps UsecasesDeps

	// calcFlights collapses concurrent on-demand recalculations of the
	// same (learner, course) pair into one ledger read.
	calcFlights *singleflight.Group
}

func New(deps UsecasesDeps) Usecases {
	if deps.Policy.Version == 0 {
		deps.Policy = policy.Default()
	}
	return Usecases{deps: deps, calcFlights: &singleflight.Group{}}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type (
	SetGradeVisibilityInput = domainagg.SetGradeVisibilityInput

	CorrectGradeResult    = domainagg.CorrectGradeResult
	SaveCourseGradeInput  = domainagg.CalculateAndSaveInput
	SaveCourseGradeResult = domainagg.CalculateAndSaveResult
)

type EnterGradeInput struct {
	LearnerID uuid.UUID
	CourseID  uuid.UUID
	ModuleID  uuid.UUID
	Score     float64
	// PassingScore overrides the module's configured threshold; nil keeps it.
	PassingScore *int
	GraderID     uuid.UUID
	GraderName   string
	Notes        string
}

type CorrectGradeInput struct {
	OriginalGradeID string
	NewScore        float64
	// PassingScore overrides the threshold; nil carries the original's over.
	PassingScore     *int
	CorrectionReason string
	GraderID         uuid.UUID
	GraderName       string
	Notes            string
}

// EnterGrade appends a brand-new current grade record. The module must
// exist; its configured passing score applies unless the caller overrides
// it. Audit and bus emission happen after the write and cannot fail it.
func (u Usecases) EnterGrade(ctx context.Context, in EnterGradeInput) (*types.GradeRecord, error) {
	const op = "Grading.EnterGrade"
	if in.ModuleID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing module_id", nil)
	}
	mod, err := u.deps.Modules.GetByID(dbctx.Context{Ctx: ctx}, in.ModuleID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if mod == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("module not found: %s", in.ModuleID), nil)
	}
	if in.CourseID == uuid.Nil {
		in.CourseID = mod.CourseID
	} else if in.CourseID != mod.CourseID {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "module does not belong to course", nil)
	}
	passingScore := mod.PassingScore
	if in.PassingScore != nil {
		passingScore = *in.PassingScore
	}

	res, err := u.deps.Ledger.EnterGrade(ctx, domainagg.EnterGradeInput{
		LearnerID:    in.LearnerID,
		CourseID:     in.CourseID,
		ModuleID:     in.ModuleID,
		Score:        in.Score,
		PassingScore: passingScore,
		GraderID:     in.GraderID,
		GraderName:   in.GraderName,
		Notes:        in.Notes,
	})
	if err != nil {
		return nil, err
	}
	rec := res.Record

	u.deps.Metrics.IncGradeEntered(rec.Passed)
	u.deps.Trail.Submit(audit.Event{
		ActorID:    rec.GraderID,
		ActorName:  rec.GraderName,
		ActionType: domainaudit.ActionGradeEntry,
		TargetID:   rec.ID,
		Details:    fmt.Sprintf("entered grade %d for module %s", rec.Score, rec.ModuleID),
		Metadata: map[string]any{
			"learner_id": rec.LearnerID.String(),
			"module_id":  rec.ModuleID.String(),
			"course_id":  rec.CourseID.String(),
			"score":      rec.Score,
			"passed":     rec.Passed,
		},
	})
	u.deps.Publisher.GradeEntered(ctx, rec)
	return rec, nil
}

// CorrectGrade retires the original record and installs its replacement in
// one atomic unit, bounded-retried under contention.
func (u Usecases) CorrectGrade(ctx context.Context, in CorrectGradeInput) (CorrectGradeResult, error) {
	const op = "Grading.CorrectGrade"
	var out CorrectGradeResult
	originalID := strings.TrimSpace(in.OriginalGradeID)
	if originalID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing original_grade_id", nil)
	}

	var passingScore int
	if in.PassingScore != nil {
		passingScore = *in.PassingScore
	} else {
		orig, err := u.deps.Grades.GetByID(dbctx.Context{Ctx: ctx}, originalID)
		if err != nil {
			return out, dataagg.MapError(op, err)
		}
		if orig == nil {
			return out, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("grade record not found: %s", originalID), nil)
		}
		passingScore = orig.PassingScore
	}

	out, err := u.deps.Ledger.CorrectGrade(ctx, domainagg.CorrectGradeInput{
		OriginalGradeID:  originalID,
		NewScore:         in.NewScore,
		PassingScore:     passingScore,
		CorrectionReason: in.CorrectionReason,
		GraderID:         in.GraderID,
		GraderName:       in.GraderName,
		Notes:            in.Notes,
	})
	if err != nil {
		if domainagg.IsCode(err, domainagg.CodeConflict) {
			u.deps.Metrics.IncGradeCorrected("conflict")
		}
		return out, err
	}
	rec := out.Record

	u.deps.Metrics.IncGradeCorrected("applied")
	u.deps.Trail.Submit(audit.Event{
		ActorID:    rec.GraderID,
		ActorName:  rec.GraderName,
		ActionType: domainaudit.ActionGradeChange,
		TargetID:   rec.ID,
		Details:    fmt.Sprintf("corrected grade %s to %d", out.SupersededID, rec.Score),
		Metadata: map[string]any{
			"learner_id":    rec.LearnerID.String(),
			"module_id":     rec.ModuleID.String(),
			"superseded_id": out.SupersededID,
			"score":         rec.Score,
			"passed":        rec.Passed,
			"reason":        rec.CorrectionReason,
			"attempts":      out.Attempts,
		},
	})
	u.deps.Publisher.GradeCorrected(ctx, rec)
	return out, nil
}

// SetGradeVisibility flips the student-facing flag on one record. Scoring
// and supersession state are untouched.
func (u Usecases) SetGradeVisibility(ctx context.Context, in SetGradeVisibilityInput) (*types.GradeRecord, error) {
	res, err := u.deps.Ledger.SetGradeVisibility(ctx, in)
	if err != nil {
		return nil, err
	}
	rec := res.Record

	u.deps.Metrics.IncGradeVisibilityFlip()
	u.deps.Trail.Submit(audit.Event{
		ActorID:    in.ActorID,
		ActorName:  in.ActorName,
		ActionType: domainaudit.ActionGradeChange,
		TargetID:   rec.ID,
		Details:    fmt.Sprintf("set grade visibility to %t", in.Visible),
		Metadata: map[string]any{
			"learner_id": rec.LearnerID.String(),
			"module_id":  rec.ModuleID.String(),
			"visible":    in.Visible,
		},
	})
	u.deps.Publisher.VisibilityChanged(ctx, rec)
	return rec, nil
}

// GetCurrentGrade resolves the single non-superseded record for the pair.
func (u Usecases) GetCurrentGrade(ctx context.Context, learnerID, moduleID uuid.UUID) (*types.GradeRecord, error) {
	const op = "Grading.GetCurrentGrade"
	if learnerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing learner_id", nil)
	}
	if moduleID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing module_id", nil)
	}
	rec, err := u.deps.Grades.GetCurrent(dbctx.Context{Ctx: ctx}, learnerID, moduleID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if rec == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "no grade recorded for learner/module", nil)
	}
	return rec, nil
}

// GetGradeHistory returns every record for the pair, superseded included,
// newest first.
func (u Usecases) GetGradeHistory(ctx context.Context, learnerID, moduleID uuid.UUID) ([]*types.GradeRecord, error) {
	const op = "Grading.GetGradeHistory"
	if learnerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing learner_id", nil)
	}
	if moduleID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing module_id", nil)
	}
	rows, err := u.deps.Grades.ListHistory(dbctx.Context{Ctx: ctx}, learnerID, moduleID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return rows, nil
}

// GetLearnerGrades returns the learner's current records across modules.
func (u Usecases) GetLearnerGrades(ctx context.Context, learnerID uuid.UUID) ([]*types.GradeRecord, error) {
	const op = "Grading.GetLearnerGrades"
	if learnerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing learner_id", nil)
	}
	rows, err := u.deps.Grades.ListCurrentByLearner(dbctx.Context{Ctx: ctx}, learnerID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return rows, nil
}

// GetModuleGrades returns every learner's current record for one module.
func (u Usecases) GetModuleGrades(ctx context.Context, moduleID uuid.UUID) ([]*types.GradeRecord, error) {
	const op = "Grading.GetModuleGrades"
	if moduleID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing module_id", nil)
	}
	rows, err := u.deps.Grades.ListCurrentByModule(dbctx.Context{Ctx: ctx}, moduleID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return rows, nil
}

// CalculateCourseGrade runs the course grade rule without persisting
// anything. Weight warnings come back on the calculation, never as errors.
func (u Usecases) CalculateCourseGrade(ctx context.Context, learnerID, courseID uuid.UUID) (*types.CourseGradeCalculation, error) {
	const op = "Grading.CalculateCourseGrade"
	calc, err := u.buildCalculation(ctx, op, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	u.deps.Metrics.ObserveCourseCalculation("preview", calc.OverallPassed)
	return calc, nil
}

// CalculateAndSaveCourseGrade recomputes and upserts the official snapshot,
// then emits the COURSE_UPDATE audit event and the snapshot bus message.
func (u Usecases) CalculateAndSaveCourseGrade(ctx context.Context, in SaveCourseGradeInput) (SaveCourseGradeResult, error) {
	res, err := u.deps.CourseGrade.CalculateAndSave(ctx, in)
	if err != nil {
		return res, err
	}
	snap := res.Snapshot

	u.deps.Metrics.ObserveCourseCalculation("official", snap.OverallPassed)
	u.deps.Trail.Submit(audit.Event{
		ActorID:    in.ActorID,
		ActorName:  in.ActorName,
		ActionType: domainaudit.ActionCourseUpdate,
		TargetID:   snap.ID,
		Details: fmt.Sprintf("saved official course grade %d (passed=%t, critical %d/%d)",
			snap.OverallScore, snap.OverallPassed, snap.CriticalModulesPassed, snap.TotalCriticalModules),
		Metadata: map[string]any{
			"learner_id":     snap.LearnerID.String(),
			"course_id":      snap.CourseID.String(),
			"overall_score":  snap.OverallScore,
			"overall_passed": snap.OverallPassed,
			"completion":     snap.CompletionPercent,
		},
	})
	u.deps.Publisher.SnapshotSaved(ctx, snap)
	return res, nil
}

// CourseGradeView is the read-through result: a persisted snapshot or a
// fresh unpersisted calculation, with its provenance.
type CourseGradeView struct {
	Source      string                        `json:"source"`
	Snapshot    *types.CourseGradeSnapshot    `json:"snapshot,omitempty"`
	Calculation *types.CourseGradeCalculation `json:"calculation,omitempty"`
}

// GetCourseGrade serves the persisted snapshot unless forceRecalculate is
// set or none exists; the fallback computes fresh without persisting.
func (u Usecases) GetCourseGrade(ctx context.Context, learnerID, courseID uuid.UUID, forceRecalculate bool) (CourseGradeView, error) {
	const op = "Grading.GetCourseGrade"
	var out CourseGradeView
	if learnerID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing learner_id", nil)
	}
	if courseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}

	if !forceRecalculate {
		snap, err := u.deps.Snapshots.GetByPair(dbctx.Context{Ctx: ctx}, learnerID, courseID)
		if err != nil {
			return out, dataagg.MapError(op, err)
		}
		if snap != nil {
			u.deps.Metrics.IncSnapshotRead("snapshot")
			return CourseGradeView{Source: "snapshot", Snapshot: snap}, nil
		}
	}

	calc, err := u.sharedCalculation(ctx, op, learnerID, courseID)
	if err != nil {
		return out, err
	}
	u.deps.Metrics.IncSnapshotRead("calculated")
	return CourseGradeView{Source: "calculated", Calculation: calc}, nil
}

// sharedCalculation collapses concurrent recalculations of one pair into a
// single ledger read; results are never cached past the in-flight call.
func (u Usecases) sharedCalculation(ctx context.Context, op string, learnerID, courseID uuid.UUID) (*types.CourseGradeCalculation, error) {
	if u.calcFlights == nil {
		return u.buildCalculation(ctx, op, learnerID, courseID)
	}
	v, err, _ := u.calcFlights.Do(domaingrading.SnapshotID(learnerID, courseID), func() (interface{}, error) {
		return u.buildCalculation(ctx, op, learnerID, courseID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.CourseGradeCalculation), nil
}

// VerifiedCourseGrade fetches the server-authoritative course grade for
// contexts that must not trust a locally cached result. The local rule is
// recomputed alongside and any disagreement is reported as a data quality
// defect; the remote result always wins.
func (u Usecases) VerifiedCourseGrade(ctx context.Context, learnerID, courseID uuid.UUID) (*authority.CourseGradeResult, error) {
	const op = "Grading.VerifiedCourseGrade"
	if u.deps.Authority == nil {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, "trusted grade source not configured", nil)
	}
	if learnerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing learner_id", nil)
	}
	if courseID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}

	remote, err := u.deps.Authority.FetchCourseGrade(ctx, learnerID, courseID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	if calc, calcErr := u.buildCalculation(ctx, op, learnerID, courseID); calcErr == nil {
		if calc.OverallScore != remote.OverallScore || calc.OverallPassed != remote.OverallPassed {
			if u.deps.Log != nil {
				u.deps.Log.Warn("trusted and local course grades disagree",
					"learner_id", learnerID,
					"course_id", courseID,
					"local_score", calc.OverallScore,
					"remote_score", remote.OverallScore,
					"local_passed", calc.OverallPassed,
					"remote_passed", remote.OverallPassed,
				)
			}
			u.deps.Metrics.IncDataQuality("authority", "grade_mismatch", domaingrading.SnapshotID(learnerID, courseID))
		}
	}
	return remote, nil
}

type ScoreQuizInput struct {
	Questions []quickscore.QuestionSpec
	Answers   map[string]quickscore.Answer

	// Enter, when set, records the resulting percentage as a module grade.
	Enter *QuizGradeSpec
}

type QuizGradeSpec struct {
	LearnerID    uuid.UUID
	CourseID     uuid.UUID
	ModuleID     uuid.UUID
	PassingScore *int
	GraderID     uuid.UUID
	GraderName   string
	Notes        string
}

type ScoreQuizResult struct {
	Result quickscore.Result  `json:"result"`
	Record *types.GradeRecord `json:"record,omitempty"`
}

// ScoreQuiz auto-scores an objective answer sheet and optionally feeds the
// percentage straight into grade entry.
func (u Usecases) ScoreQuiz(ctx context.Context, in ScoreQuizInput) (ScoreQuizResult, error) {
	const op = "Grading.ScoreQuiz"
	var out ScoreQuizResult
	questions, err := quickscore.BuildQuestions(in.Questions)
	if err != nil {
		return out, domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	result, err := quickscore.ScoreSheet(questions, in.Answers)
	if err != nil {
		return out, domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	for _, q := range result.Questions {
		u.deps.Metrics.IncQuickScoreAnswered(q.Kind, q.Correct)
	}
	out.Result = result

	if in.Enter == nil {
		return out, nil
	}
	rec, err := u.EnterGrade(ctx, EnterGradeInput{
		LearnerID:    in.Enter.LearnerID,
		CourseID:     in.Enter.CourseID,
		ModuleID:     in.Enter.ModuleID,
		Score:        float64(result.Percent),
		PassingScore: in.Enter.PassingScore,
		GraderID:     in.Enter.GraderID,
		GraderName:   in.Enter.GraderName,
		Notes:        in.Enter.Notes,
	})
	if err != nil {
		return out, err
	}
	out.Record = rec
	return out, nil
}

// CertificateSnapshot gathers what certificate rendering needs and enforces
// the issue preconditions: enrolled learner, saved official snapshot, all
// modules graded, overall pass.
func (u Usecases) CertificateSnapshot(ctx context.Context, learnerID, courseID uuid.UUID) (*types.CourseGradeSnapshot, *types.Course, error) {
	const op = "Grading.CertificateSnapshot"
	if learnerID == uuid.Nil {
		return nil, nil, domainagg.NewError(domainagg.CodeValidation, op, "missing learner_id", nil)
	}
	if courseID == uuid.Nil {
		return nil, nil, domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}

	enr, err := u.deps.Enrollments.GetByPair(dbc, learnerID, courseID)
	if err != nil {
		return nil, nil, dataagg.MapError(op, err)
	}
	if enr == nil {
		return nil, nil, domainagg.NewError(domainagg.CodeNotFound, op, "learner is not enrolled in course", nil)
	}
	course, err := u.deps.Courses.GetByID(dbc, courseID)
	if err != nil {
		return nil, nil, dataagg.MapError(op, err)
	}
	if course == nil {
		return nil, nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("course not found: %s", courseID), nil)
	}
	snap, err := u.deps.Snapshots.GetByPair(dbc, learnerID, courseID)
	if err != nil {
		return nil, nil, dataagg.MapError(op, err)
	}
	if snap == nil {
		return nil, nil, domainagg.NewError(domainagg.CodeNotFound, op, "no official course grade saved", nil)
	}
	if !snap.IsComplete {
		return nil, nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, "course is not complete", nil)
	}
	if !snap.OverallPassed {
		return nil, nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, "course grade is not a pass", nil)
	}
	return snap, course, nil
}

func (u Usecases) buildCalculation(ctx context.Context, op string, learnerID, courseID uuid.UUID) (*types.CourseGradeCalculation, error) {
	if learnerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing learner_id", nil)
	}
	if courseID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	modules, err := u.deps.Modules.ListByCourseID(dbc, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	current, err := u.deps.Grades.ListCurrentByLearnerCourse(dbc, learnerID, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	calc, err := domaingrading.BuildCalculation(learnerID, courseID, modules, current, u.deps.Policy.CalcPolicy(), time.Now())
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return calc, nil
}
