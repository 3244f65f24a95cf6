package model

import "time"

// Notification records a reminder that was fired for a scheduled task.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// TaskID links this notification to the reminded task.
	TaskID string `json:"task_id"`

	// ForDate is the scheduled date the reminder was fired for.
	ForDate Date `json:"for_date"`

	// Title and Message are the localized texts that were shown.
	Title   string `json:"title"`
	Message string `json:"message"`

	// CreatedAt is when the reminder fired.
	CreatedAt time.Time `json:"created_at"`
}
