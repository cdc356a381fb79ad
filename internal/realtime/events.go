// Package realtime defines the grade events broadcast to UI and event
// consumers. Delivery is strictly fire-and-forget: the ledger never waits
// on, or fails because of, a subscriber.
package realtime

import "github.com/google/uuid"

// Event names one grade-ledger happening.
type Event string

const (
	EventGradeEntered    Event = "grading.entered"
	EventGradeCorrected  Event = "grading.corrected"
	EventGradeVisibility Event = "grading.visibility"
	EventSnapshotSaved   Event = "grading.snapshot_saved"
)

// Message is one bus payload. Channel scopes delivery; Data carries the
// event-specific body.
type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

// LearnerChannel scopes messages to one learner's subscribers.
func LearnerChannel(learnerID uuid.UUID) string {
	return "learner." + learnerID.String()
}

// ModuleChannel scopes messages to subscribers watching one module's
// grading activity (grader queue screens).
func ModuleChannel(moduleID uuid.UUID) string {
	return "module." + moduleID.String()
}
