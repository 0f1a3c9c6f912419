// Package decision defines the decision engine's output types and the
// aggregator that reduces rule-sourced candidates into one final,
// conflict-resolved record per subject.
package decision

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is an unresolved, rule-sourced suggestion: one rule firing
// for one subject. Candidates are produced fresh per evaluation and
// never mutated.
type Candidate struct {
	// SubjectID is the subject the rule fired for.
	SubjectID string `json:"subject_id"`

	// RuleID is the rule that produced the candidate.
	RuleID string `json:"rule_id"`

	// ActionID is the suggested action template.
	ActionID string `json:"action_id"`

	// Score is the rule's base score times the confidence multiplier.
	Score float64 `json:"score"`

	// Rationale is the resolved explanation string.
	Rationale string `json:"rationale"`
}

// ActionScore is one selected action in a record, with its winning
// score and rationale.
type ActionScore struct {
	ActionID  string  `json:"action_id"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale,omitempty"`
}

// Record is the final, conflict-resolved output for one subject: an
// ordered action sequence, best first. An empty Actions slice is a
// valid outcome ("no applicable action"), not an error. Records are
// immutable once emitted.
type Record struct {
	// RunID identifies the engine run that produced the record.
	RunID uuid.UUID `json:"run_id"`

	// SubjectID is the subject the record was computed for.
	SubjectID string `json:"subject_id"`

	// Actions are the selected actions in rank order.
	Actions []ActionScore `json:"actions"`

	// EvaluatedAt is when the subject's evaluation completed.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Empty reports whether the record selects no action.
func (r *Record) Empty() bool {
	return len(r.Actions) == 0
}
