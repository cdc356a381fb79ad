package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/northcampus/gradebook-backend/internal/data/repos"
	types "github.com/northcampus/gradebook-backend/internal/domain"
	domainagg "github.com/northcampus/gradebook-backend/internal/domain/aggregates"
	domaingrading "github.com/northcampus/gradebook-backend/internal/domain/grading"
	"github.com/northcampus/gradebook-backend/internal/http/response"
	"github.com/northcampus/gradebook-backend/internal/modules/grading"
	"github.com/northcampus/gradebook-backend/internal/platform/ctxutil"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

// echoLedger accepts every write and reflects the input as a record, so
// handler tests exercise decoding, actor plumbing and response shape
// without a database.
type echoLedger struct {
	lastEnter *domainagg.EnterGradeInput
}

func (l *echoLedger) Contract() domainagg.Contract {
	return domainagg.GradeLedgerAggregateContract
}

func (l *echoLedger) EnterGrade(ctx context.Context, in domainagg.EnterGradeInput) (domainagg.EnterGradeResult, error) {
	l.lastEnter = &in
	now := time.Now().UTC()
	score := domaingrading.ClampScore(in.Score)
	return domainagg.EnterGradeResult{Record: &types.GradeRecord{
		ID:           domaingrading.NewGradeRecordID(in.LearnerID, in.ModuleID, now),
		LearnerID:    in.LearnerID,
		ModuleID:     in.ModuleID,
		CourseID:     in.CourseID,
		Score:        score,
		PassingScore: in.PassingScore,
		Passed:       score >= in.PassingScore,
		GraderID:     in.GraderID,
		GraderName:   in.GraderName,
		GradedAt:     now,
	}}, nil
}

func (l *echoLedger) CorrectGrade(ctx context.Context, in domainagg.CorrectGradeInput) (domainagg.CorrectGradeResult, error) {
	return domainagg.CorrectGradeResult{}, domainagg.NewError(domainagg.CodeNotFound, "Grading.Ledger.CorrectGrade", "grade not found", nil)
}

func (l *echoLedger) SetGradeVisibility(ctx context.Context, in domainagg.SetGradeVisibilityInput) (domainagg.SetGradeVisibilityResult, error) {
	return domainagg.SetGradeVisibilityResult{Record: &types.GradeRecord{ID: in.GradeID, VisibleToStudent: in.Visible}}, nil
}

type fixedModuleRepo struct {
	repos.CourseModuleRepo
	mod *types.CourseModule
}

func (r fixedModuleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CourseModule, error) {
	if r.mod != nil && r.mod.ID == id {
		return r.mod, nil
	}
	return nil, nil
}

func testActor() *ctxutil.ActorData {
	return &ctxutil.ActorData{
		ActorID:   uuid.New(),
		ActorName: "Prof. Okafor",
		Roles:     []string{"grader"},
	}
}

// withActor injects an authenticated actor without going through JWT.
func withActor(ad *ctxutil.ActorData) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ad != nil {
			c.Request = c.Request.WithContext(ctxutil.WithActorData(c.Request.Context(), ad))
		}
		c.Next()
	}
}

func gradeRouter(t *testing.T, ledger *echoLedger, mod *types.CourseModule, ad *ctxutil.ActorData) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	u := grading.New(grading.UsecasesDeps{
		Log:     log,
		Ledger:  ledger,
		Modules: fixedModuleRepo{mod: mod},
	})
	h := NewGradeHandler(log, u)

	r := gin.New()
	r.POST("/api/grades", withActor(ad), h.EnterGrade)
	r.POST("/api/grades/:id/corrections", withActor(ad), h.CorrectGrade)
	r.GET("/api/learners/:learnerID/modules/:moduleID/grade", h.GetCurrentGrade)
	return r
}

func TestEnterGradeEndpoint(t *testing.T) {
	courseID := uuid.New()
	mod := &types.CourseModule{ID: uuid.New(), CourseID: courseID, Title: "Midterm", Weight: 40, PassingScore: 70}
	ledger := &echoLedger{}
	ad := testActor()
	r := gradeRouter(t, ledger, mod, ad)

	learnerID := uuid.New()
	body, _ := json.Marshal(gin.H{
		"learner_id": learnerID.String(),
		"module_id":  mod.ID.String(),
		"score":      84.2,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/grades", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if ledger.lastEnter == nil {
		t.Fatal("ledger never called")
	}
	if ledger.lastEnter.GraderID != ad.ActorID || ledger.lastEnter.GraderName != ad.ActorName {
		t.Fatalf("grader identity not taken from actor context: %+v", ledger.lastEnter)
	}
	if ledger.lastEnter.CourseID != courseID {
		t.Fatalf("course id not resolved from module: got=%s want=%s", ledger.lastEnter.CourseID, courseID)
	}
	if ledger.lastEnter.PassingScore != 70 {
		t.Fatalf("passing score not defaulted from module: got=%d", ledger.lastEnter.PassingScore)
	}

	var payload struct {
		Grade *types.GradeRecord `json:"grade"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Grade == nil || payload.Grade.Score != 84 {
		t.Fatalf("unexpected grade payload: %+v", payload.Grade)
	}
}

func TestEnterGradeRequiresActor(t *testing.T) {
	r := gradeRouter(t, &echoLedger{}, nil, nil)

	body := []byte(`{"learner_id":"` + uuid.NewString() + `","module_id":"` + uuid.NewString() + `","score":50}`)
	req := httptest.NewRequest(http.MethodPost, "/api/grades", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
}

func TestEnterGradeRejectsMalformedBody(t *testing.T) {
	r := gradeRouter(t, &echoLedger{}, nil, testActor())

	req := httptest.NewRequest(http.MethodPost, "/api/grades", bytes.NewReader([]byte(`{"learner_id":"not-a-uuid"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func TestEnterGradeUnknownModuleMapsToNotFound(t *testing.T) {
	r := gradeRouter(t, &echoLedger{}, nil, testActor())

	body := []byte(`{"learner_id":"` + uuid.NewString() + `","module_id":"` + uuid.NewString() + `","score":50}`)
	req := httptest.NewRequest(http.MethodPost, "/api/grades", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusNotFound, rec.Body.String())
	}
	var envelope response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error.Code != string(domainagg.CodeNotFound) {
		t.Fatalf("unexpected code: got=%q", envelope.Error.Code)
	}
}

func TestCorrectGradeRejectsBlankReason(t *testing.T) {
	r := gradeRouter(t, &echoLedger{}, nil, testActor())

	orig := domaingrading.NewGradeRecordID(uuid.New(), uuid.New(), time.Now())
	body := []byte(`{"new_score":91,"passing_score":70,"correction_reason":"   "}`)
	req := httptest.NewRequest(http.MethodPost, "/api/grades/"+orig+"/corrections", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank reason must fail binding: got=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCorrectGradeEndpointMapsDomainError(t *testing.T) {
	r := gradeRouter(t, &echoLedger{}, nil, testActor())

	// echoLedger reports not_found for corrections so we can assert the
	// domain error passes through the handler untouched.
	orig := domaingrading.NewGradeRecordID(uuid.New(), uuid.New(), time.Now())
	body := []byte(`{"new_score":91,"passing_score":70,"correction_reason":"transcription error"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/grades/"+orig+"/corrections", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGetCurrentGradeValidatesIDs(t *testing.T) {
	r := gradeRouter(t, &echoLedger{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/learners/nope/modules/"+uuid.NewString()+"/grade", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
}
