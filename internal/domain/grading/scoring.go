package grading

import "math"

// ClampScore rounds a raw mark to the nearest integer and clamps it into
// [0,100].
func ClampScore(raw float64) int {
	score := int(math.Round(raw))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// EvaluatePassed applies the pass rule frozen into each record at write
// time.
func EvaluatePassed(score, passingScore int) bool {
	return score >= passingScore
}
