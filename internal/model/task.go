package model

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

// Task status constants. PENDING is initial; COMPLETED and FAILED are terminal.
const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusVerifying Status = "VERIFYING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusVerifying, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// hasStarted reports whether a task in this status must carry a start time.
func (s Status) hasStarted() bool {
	return s == StatusActive || s == StatusVerifying || s.IsTerminal()
}

// Points awarded by the judge under the fixed scoring contract.
const (
	PointsSuccess = 10
	PointsFailure = -5
)

// DefaultDurationMinutes is used when a task is created without a positive duration.
const DefaultDurationMinutes = 25

// Task is a single unit of accountable, time-boxed work.
type Task struct {
	// ID is the opaque unique identifier assigned at creation.
	ID string `json:"id"`

	// Title is the user-supplied summary. Never empty.
	Title string `json:"title"`

	// Description is optional free text shown to the judge.
	Description string `json:"description"`

	// DurationMinutes is the countdown length. Always positive.
	DurationMinutes int `json:"durationMinutes"`

	// Status is the lifecycle state (use Status* constants).
	Status Status `json:"status"`

	// ScheduledDate is the day the task is due. Nil means "today".
	ScheduledDate *Date `json:"scheduledDate,omitempty"`

	// Notified is set once the reminder for ScheduledDate has fired.
	Notified bool `json:"notified"`

	// StartTime is set exactly once, on PENDING -> ACTIVE.
	StartTime *time.Time `json:"startTime,omitempty"`

	// ProofImageURL holds the submitted proof as a data URL.
	ProofImageURL *string `json:"proofImageUrl,omitempty"`

	// PointsEarned is the verdict's point delta.
	PointsEarned *int `json:"pointsEarned,omitempty"`

	// AIFeedback is the judge's explanation.
	AIFeedback *string `json:"aiFeedback,omitempty"`

	// CreatedAt orders tasks newest first.
	CreatedAt time.Time `json:"createdAt"`
}

// Duration returns the countdown length.
func (t Task) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// IsFinalized reports whether the verdict fields have been recorded.
func (t Task) IsFinalized() bool {
	return t.ProofImageURL != nil && t.PointsEarned != nil && t.AIFeedback != nil
}

// Clone returns a deep copy so callers cannot mutate tracker-owned state.
func (t Task) Clone() Task {
	c := t
	if t.ScheduledDate != nil {
		d := *t.ScheduledDate
		c.ScheduledDate = &d
	}
	if t.StartTime != nil {
		st := *t.StartTime
		c.StartTime = &st
	}
	if t.ProofImageURL != nil {
		p := *t.ProofImageURL
		c.ProofImageURL = &p
	}
	if t.PointsEarned != nil {
		p := *t.PointsEarned
		c.PointsEarned = &p
	}
	if t.AIFeedback != nil {
		f := *t.AIFeedback
		c.AIFeedback = &f
	}
	return c
}

// Validate checks the data invariants that tie fields to the status.
func (t Task) Validate() error {
	var errs []error

	if t.ID == "" {
		errs = append(errs, errors.New("missing id"))
	}
	if t.DurationMinutes <= 0 {
		errs = append(errs, fmt.Errorf("non-positive duration %d", t.DurationMinutes))
	}
	if !t.Status.IsValid() {
		errs = append(errs, fmt.Errorf("unknown status %q", t.Status))
	}
	if t.Status.hasStarted() != (t.StartTime != nil) {
		errs = append(errs, fmt.Errorf("start time presence does not match status %s", t.Status))
	}

	anySet := t.ProofImageURL != nil || t.PointsEarned != nil || t.AIFeedback != nil
	if t.Status.IsTerminal() && !t.IsFinalized() {
		errs = append(errs, fmt.Errorf("status %s without verdict fields", t.Status))
	}
	if !t.Status.IsTerminal() && anySet {
		errs = append(errs, fmt.Errorf("verdict fields set on status %s", t.Status))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("task %s: %w", t.ID, errors.Join(errs...))
}

// UserStats is the process-wide aggregate of finalized tasks.
type UserStats struct {
	Points         int `json:"points"`
	CompletedCount int `json:"completedCount"`
	FailedCount    int `json:"failedCount"`
}

// VerificationResult is the judge's verdict on a proof.
type VerificationResult struct {
	IsSuccessful     bool   `json:"isSuccessful"`
	Explanation      string `json:"explanation"`
	PointsAdjustment int    `json:"pointsAdjustment"`
}

// Mood drives the companion's expression.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodSad     Mood = "sad"
	MoodNeutral Mood = "neutral"
)

// MoodFor maps a verdict to the companion mood it should produce.
func MoodFor(r VerificationResult) Mood {
	if r.IsSuccessful {
		return MoodHappy
	}
	return MoodSad
}
