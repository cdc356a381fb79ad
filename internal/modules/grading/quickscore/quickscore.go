// Package quickscore turns an answered objective quiz into the 0-100
// percentage a grader feeds into grade entry. Question kinds form a closed
// set behind a sealed interface: dispatch is polymorphic, and the only
// place a wire kind string is interpreted is BuildQuestion, which rejects
// unknown kinds instead of defaulting.
package quickscore

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Answer is one learner response. Single-valued kinds read Value;
// multi select reads Values.
type Answer struct {
	Value  string   `json:"value"`
	Values []string `json:"values"`
}

// Kind evaluates one question kind. Implementations live in kinds.go and
// the set is sealed: external packages cannot add kinds, so every kind the
// scorer can meet is one it can evaluate.
type Kind interface {
	// Evaluate returns the credit fraction earned in [0,1].
	Evaluate(ans Answer) float64
	// kind seals the interface and names the wire identifier.
	kind() string
}

// Question is one scored quiz item.
type Question struct {
	ID     string
	Points float64
	Kind   Kind
}

// QuestionResult is the per-item outcome of a scoring run.
type QuestionResult struct {
	QuestionID string  `json:"question_id"`
	Kind       string  `json:"kind"`
	Points     float64 `json:"points"`
	Earned     float64 `json:"earned"`
	Correct    bool    `json:"correct"`
	Answered   bool    `json:"answered"`
}

// Result is the outcome of scoring a whole sheet. Percent is what grade
// entry consumes.
type Result struct {
	TotalPoints  float64          `json:"total_points"`
	EarnedPoints float64          `json:"earned_points"`
	Percent      int              `json:"percent"`
	Questions    []QuestionResult `json:"questions"`
}

// ErrNoQuestions is returned when a sheet has nothing to score.
var ErrNoQuestions = errors.New("sheet has no questions")

// ScoreSheet evaluates every question against the supplied answers, keyed
// by question id. Unanswered questions earn zero credit.
func ScoreSheet(questions []Question, answers map[string]Answer) (Result, error) {
	if len(questions) == 0 {
		return Result{}, ErrNoQuestions
	}

	res := Result{Questions: make([]QuestionResult, 0, len(questions))}
	for _, q := range questions {
		if q.Kind == nil {
			return Result{}, fmt.Errorf("question %s has no kind", q.ID)
		}
		qr := QuestionResult{
			QuestionID: q.ID,
			Kind:       q.Kind.kind(),
			Points:     q.Points,
		}
		if ans, ok := answers[q.ID]; ok {
			qr.Answered = true
			fraction := clampFraction(q.Kind.Evaluate(ans))
			qr.Earned = q.Points * fraction
			qr.Correct = fraction == 1
		}
		res.TotalPoints += q.Points
		res.EarnedPoints += qr.Earned
		res.Questions = append(res.Questions, qr)
	}

	if res.TotalPoints <= 0 {
		return Result{}, errors.New("sheet has no points")
	}
	res.Percent = int(math.Round(res.EarnedPoints / res.TotalPoints * 100))
	return res, nil
}

func clampFraction(f float64) float64 {
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func normalizeToken(s string) string {
	return strings.TrimSpace(s)
}
