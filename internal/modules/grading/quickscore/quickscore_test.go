package quickscore

import (
	"errors"
	"strings"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

func TestBuildQuestionEveryKind(t *testing.T) {
	specs := []QuestionSpec{
		{ID: "q1", Kind: KindMultipleChoice, CorrectOption: "b"},
		{ID: "q2", Kind: KindMultiSelect, CorrectOptions: []string{"a", "c"}},
		{ID: "q3", Kind: KindTrueFalse, CorrectBool: boolPtr(true)},
		{ID: "q4", Kind: KindShortAnswer, AcceptedAnswers: []string{"mitochondria"}},
		{ID: "q5", Kind: KindNumeric, CorrectValue: floatPtr(9.81), Tolerance: 0.05},
	}
	questions, err := BuildQuestions(specs)
	if err != nil {
		t.Fatalf("BuildQuestions: %v", err)
	}
	if len(questions) != len(specs) {
		t.Fatalf("questions: want=%d got=%d", len(specs), len(questions))
	}
	for i, q := range questions {
		if q.Kind.kind() != specs[i].Kind {
			t.Fatalf("question %s: kind want=%s got=%s", q.ID, specs[i].Kind, q.Kind.kind())
		}
		if q.Points != 1 {
			t.Fatalf("question %s: default points want=1 got=%g", q.ID, q.Points)
		}
	}
}

func TestBuildQuestionRejectsUnknownKind(t *testing.T) {
	_, err := BuildQuestion(QuestionSpec{ID: "q1", Kind: "essay"})
	if err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Fatalf("expected unknown-kind error, got %v", err)
	}
}

func TestBuildQuestionValidatesKindFields(t *testing.T) {
	cases := []QuestionSpec{
		{ID: "q1", Kind: KindMultipleChoice},
		{ID: "q2", Kind: KindMultiSelect},
		{ID: "q3", Kind: KindTrueFalse},
		{ID: "q4", Kind: KindShortAnswer},
		{ID: "q5", Kind: KindNumeric},
		{ID: "q6", Kind: KindNumeric, CorrectValue: floatPtr(1), Tolerance: -1},
		{ID: "", Kind: KindMultipleChoice, CorrectOption: "a"},
		{ID: "q7", Kind: KindMultipleChoice, CorrectOption: "a", Points: -2},
	}
	for _, spec := range cases {
		if _, err := BuildQuestion(spec); err == nil {
			t.Fatalf("expected error for spec %+v", spec)
		}
	}
}

func TestMultipleChoiceEvaluate(t *testing.T) {
	k := MultipleChoice{CorrectOption: "b"}
	if k.Evaluate(Answer{Value: " b "}) != 1 {
		t.Fatalf("trimmed match should earn full credit")
	}
	if k.Evaluate(Answer{Value: "a"}) != 0 {
		t.Fatalf("wrong option should earn zero")
	}
	if k.Evaluate(Answer{Value: "B"}) != 0 {
		t.Fatalf("option keys are case-sensitive")
	}
}

func TestMultiSelectEvaluateExactSet(t *testing.T) {
	k := MultiSelect{CorrectOptions: []string{"a", "c"}}
	if k.Evaluate(Answer{Values: []string{"c", "a"}}) != 1 {
		t.Fatalf("order must not matter")
	}
	if k.Evaluate(Answer{Values: []string{"a", "a", "c"}}) != 1 {
		t.Fatalf("duplicates must not matter")
	}
	if k.Evaluate(Answer{Values: []string{"a"}}) != 0 {
		t.Fatalf("missing selection earns zero")
	}
	if k.Evaluate(Answer{Values: []string{"a", "c", "d"}}) != 0 {
		t.Fatalf("extra selection earns zero")
	}
}

func TestTrueFalseEvaluateParsesBoolForms(t *testing.T) {
	k := TrueFalse{CorrectAnswer: true}
	for _, v := range []string{"true", "TRUE", "True", "1", "t"} {
		if k.Evaluate(Answer{Value: v}) != 1 {
			t.Fatalf("%q should parse as true", v)
		}
	}
	if k.Evaluate(Answer{Value: "false"}) != 0 {
		t.Fatalf("wrong answer earns zero")
	}
	if k.Evaluate(Answer{Value: "yes"}) != 0 {
		t.Fatalf("unparseable answer earns zero")
	}
}

func TestShortAnswerEvaluate(t *testing.T) {
	k := ShortAnswer{Accepted: []string{"Mitochondria", "mitochondrion"}}
	if k.Evaluate(Answer{Value: "mitochondria"}) != 1 {
		t.Fatalf("case-insensitive by default")
	}
	if k.Evaluate(Answer{Value: "  mitochondrion  "}) != 1 {
		t.Fatalf("trimmed match expected")
	}
	if k.Evaluate(Answer{Value: "chloroplast"}) != 0 {
		t.Fatalf("wrong answer earns zero")
	}

	strict := ShortAnswer{Accepted: []string{"pH"}, CaseSensitive: true}
	if strict.Evaluate(Answer{Value: "ph"}) != 0 {
		t.Fatalf("case-sensitive mismatch earns zero")
	}
	if strict.Evaluate(Answer{Value: "pH"}) != 1 {
		t.Fatalf("exact match earns full credit")
	}
}

func TestNumericEvaluateTolerance(t *testing.T) {
	k := Numeric{CorrectValue: 9.81, Tolerance: 0.05}
	if k.Evaluate(Answer{Value: "9.8"}) != 1 {
		t.Fatalf("within tolerance earns full credit")
	}
	if k.Evaluate(Answer{Value: "9.7"}) != 0 {
		t.Fatalf("outside tolerance earns zero")
	}
	if k.Evaluate(Answer{Value: "about ten"}) != 0 {
		t.Fatalf("unparseable answer earns zero")
	}
}

func TestScoreSheetPercent(t *testing.T) {
	questions := []Question{
		{ID: "q1", Points: 2, Kind: MultipleChoice{CorrectOption: "b"}},
		{ID: "q2", Points: 1, Kind: TrueFalse{CorrectAnswer: false}},
		{ID: "q3", Points: 1, Kind: Numeric{CorrectValue: 42, Tolerance: 0}},
	}
	answers := map[string]Answer{
		"q1": {Value: "b"},
		"q2": {Value: "true"},
		"q3": {Value: "42"},
	}

	res, err := ScoreSheet(questions, answers)
	if err != nil {
		t.Fatalf("ScoreSheet: %v", err)
	}
	if res.TotalPoints != 4 || res.EarnedPoints != 3 {
		t.Fatalf("points: total=%g earned=%g", res.TotalPoints, res.EarnedPoints)
	}
	if res.Percent != 75 {
		t.Fatalf("percent: want=75 got=%d", res.Percent)
	}
	if len(res.Questions) != 3 {
		t.Fatalf("per-question results: want=3 got=%d", len(res.Questions))
	}
	if !res.Questions[0].Correct || res.Questions[1].Correct || !res.Questions[2].Correct {
		t.Fatalf("correctness flags wrong: %+v", res.Questions)
	}
}

func TestScoreSheetUnansweredEarnsZero(t *testing.T) {
	questions := []Question{
		{ID: "q1", Points: 1, Kind: MultipleChoice{CorrectOption: "a"}},
		{ID: "q2", Points: 1, Kind: MultipleChoice{CorrectOption: "b"}},
	}
	res, err := ScoreSheet(questions, map[string]Answer{"q1": {Value: "a"}})
	if err != nil {
		t.Fatalf("ScoreSheet: %v", err)
	}
	if res.Percent != 50 {
		t.Fatalf("percent: want=50 got=%d", res.Percent)
	}
	if res.Questions[1].Answered {
		t.Fatalf("q2 must be reported unanswered")
	}
}

func TestScoreSheetEmpty(t *testing.T) {
	if _, err := ScoreSheet(nil, nil); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}
