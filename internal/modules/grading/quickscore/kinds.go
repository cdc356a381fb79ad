package quickscore

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Wire identifiers of the closed kind set.
const (
	KindMultipleChoice = "multiple_choice"
	KindMultiSelect    = "multi_select"
	KindTrueFalse      = "true_false"
	KindShortAnswer    = "short_answer"
	KindNumeric        = "numeric"
)

// QuestionSpec is the wire form of one question. Kind selects which answer
// fields are read; BuildQuestion validates the selected fields.
type QuestionSpec struct {
	ID     string  `json:"id" binding:"required"`
	Kind   string  `json:"kind" binding:"required"`
	Points float64 `json:"points"`

	CorrectOption   string   `json:"correct_option,omitempty"`
	CorrectOptions  []string `json:"correct_options,omitempty"`
	CorrectBool     *bool    `json:"correct_bool,omitempty"`
	AcceptedAnswers []string `json:"accepted_answers,omitempty"`
	CaseSensitive   bool     `json:"case_sensitive,omitempty"`
	CorrectValue    *float64 `json:"correct_value,omitempty"`
	Tolerance       float64  `json:"tolerance,omitempty"`
}

// BuildQuestion maps a wire spec onto a concrete kind. This is the single
// mapping point from kind strings to behavior; an unknown kind is an error
// here, never a silent zero-credit branch at evaluation time.
func BuildQuestion(spec QuestionSpec) (Question, error) {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return Question{}, fmt.Errorf("question id is required")
	}
	points := spec.Points
	if points == 0 {
		points = 1
	}
	if points < 0 {
		return Question{}, fmt.Errorf("question %s: points must be positive", id)
	}

	var kind Kind
	switch spec.Kind {
	case KindMultipleChoice:
		opt := normalizeToken(spec.CorrectOption)
		if opt == "" {
			return Question{}, fmt.Errorf("question %s: correct_option is required", id)
		}
		kind = MultipleChoice{CorrectOption: opt}
	case KindMultiSelect:
		opts := dedupeTokens(spec.CorrectOptions)
		if len(opts) == 0 {
			return Question{}, fmt.Errorf("question %s: correct_options is required", id)
		}
		kind = MultiSelect{CorrectOptions: opts}
	case KindTrueFalse:
		if spec.CorrectBool == nil {
			return Question{}, fmt.Errorf("question %s: correct_bool is required", id)
		}
		kind = TrueFalse{CorrectAnswer: *spec.CorrectBool}
	case KindShortAnswer:
		accepted := dedupeTokens(spec.AcceptedAnswers)
		if len(accepted) == 0 {
			return Question{}, fmt.Errorf("question %s: accepted_answers is required", id)
		}
		kind = ShortAnswer{Accepted: accepted, CaseSensitive: spec.CaseSensitive}
	case KindNumeric:
		if spec.CorrectValue == nil {
			return Question{}, fmt.Errorf("question %s: correct_value is required", id)
		}
		if spec.Tolerance < 0 {
			return Question{}, fmt.Errorf("question %s: tolerance must be non-negative", id)
		}
		kind = Numeric{CorrectValue: *spec.CorrectValue, Tolerance: spec.Tolerance}
	default:
		return Question{}, fmt.Errorf("question %s: unknown kind %q", id, spec.Kind)
	}

	return Question{ID: id, Points: points, Kind: kind}, nil
}

// BuildQuestions maps a whole sheet, failing on the first invalid spec.
func BuildQuestions(specs []QuestionSpec) ([]Question, error) {
	out := make([]Question, 0, len(specs))
	for _, spec := range specs {
		q, err := BuildQuestion(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// MultipleChoice awards full credit for selecting the one correct option.
type MultipleChoice struct {
	CorrectOption string
}

func (k MultipleChoice) Evaluate(ans Answer) float64 {
	if normalizeToken(ans.Value) == k.CorrectOption {
		return 1
	}
	return 0
}

func (MultipleChoice) kind() string { return KindMultipleChoice }

// MultiSelect awards full credit for selecting exactly the correct option
// set; any missing or extra selection earns zero.
type MultiSelect struct {
	CorrectOptions []string
}

func (k MultiSelect) Evaluate(ans Answer) float64 {
	picked := dedupeTokens(ans.Values)
	if len(picked) != len(k.CorrectOptions) {
		return 0
	}
	want := make(map[string]bool, len(k.CorrectOptions))
	for _, opt := range k.CorrectOptions {
		want[opt] = true
	}
	for _, opt := range picked {
		if !want[opt] {
			return 0
		}
	}
	return 1
}

func (MultiSelect) kind() string { return KindMultiSelect }

// TrueFalse accepts any strconv.ParseBool form of the answer.
type TrueFalse struct {
	CorrectAnswer bool
}

func (k TrueFalse) Evaluate(ans Answer) float64 {
	got, err := strconv.ParseBool(strings.ToLower(normalizeToken(ans.Value)))
	if err != nil {
		return 0
	}
	if got == k.CorrectAnswer {
		return 1
	}
	return 0
}

func (TrueFalse) kind() string { return KindTrueFalse }

// ShortAnswer matches the trimmed response against any accepted answer,
// case-insensitively unless CaseSensitive is set.
type ShortAnswer struct {
	Accepted      []string
	CaseSensitive bool
}

func (k ShortAnswer) Evaluate(ans Answer) float64 {
	got := normalizeToken(ans.Value)
	if got == "" {
		return 0
	}
	for _, want := range k.Accepted {
		if k.CaseSensitive {
			if got == want {
				return 1
			}
		} else if strings.EqualFold(got, want) {
			return 1
		}
	}
	return 0
}

func (ShortAnswer) kind() string { return KindShortAnswer }

// Numeric parses the answer as a float and accepts it within the absolute
// tolerance around the correct value.
type Numeric struct {
	CorrectValue float64
	Tolerance    float64
}

func (k Numeric) Evaluate(ans Answer) float64 {
	got, err := strconv.ParseFloat(normalizeToken(ans.Value), 64)
	if err != nil {
		return 0
	}
	if math.Abs(got-k.CorrectValue) <= k.Tolerance {
		return 1
	}
	return 0
}

func (Numeric) kind() string { return KindNumeric }

func dedupeTokens(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = normalizeToken(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
