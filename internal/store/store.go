package store

import (
	"context"

	"github.com/nhle/focusproof/internal/model"
)

// Store defines the persistence interface: whole-state snapshots of the
// task collection and the stats record, plus the reminder log and a small
// key/value area for companion state.
type Store interface {
	// === Snapshot records ===

	LoadTasks(ctx context.Context) ([]model.Task, error)
	LoadStats(ctx context.Context) (model.UserStats, error)

	// SaveSnapshot writes both records in one transaction.
	SaveSnapshot(ctx context.Context, tasks []model.Task, stats model.UserStats) error

	// === Reminder log ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetNotifications(ctx context.Context, limit int) ([]model.Notification, error)

	// === Key/value ===

	GetValue(ctx context.Context, key string) ([]byte, error)
	SetValue(ctx context.Context, key string, value []byte) error
}
