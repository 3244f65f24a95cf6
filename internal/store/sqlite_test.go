package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/store"
	"github.com/nhle/focusproof/tests/testutil"
)

func ptr[T any](v T) *T { return &v }

func sampleTasks() []model.Task {
	created := testutil.FixedTime
	start := created.Add(time.Minute)
	tomorrow := model.DateOf(created).AddDays(1)

	return []model.Task{
		{
			ID:              "b",
			Title:           "Clean desk",
			Description:     "Everything off the desk",
			DurationMinutes: 1,
			Status:          model.StatusCompleted,
			StartTime:       &start,
			ProofImageURL:   ptr("data:image/png;base64,AAAA"),
			PointsEarned:    ptr(model.PointsSuccess),
			AIFeedback:      ptr("Desk is clean."),
			CreatedAt:       created.Add(time.Hour),
		},
		{
			ID:              "a",
			Title:           "Write report",
			DurationMinutes: 25,
			Status:          model.StatusPending,
			ScheduledDate:   &tomorrow,
			CreatedAt:       created,
		},
	}
}

func TestSaveAndLoadTasks(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	tasks := sampleTasks()
	require.NoError(t, s.SaveSnapshot(ctx, tasks, model.UserStats{}))

	got, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].ID, "stored order must be preserved")
	assert.Equal(t, "a", got[1].ID)

	done := got[0]
	assert.Equal(t, model.StatusCompleted, done.Status)
	require.NotNil(t, done.StartTime)
	assert.True(t, tasks[0].StartTime.Equal(*done.StartTime))
	require.True(t, done.IsFinalized())
	assert.Equal(t, model.PointsSuccess, *done.PointsEarned)
	assert.Equal(t, "Desk is clean.", *done.AIFeedback)
	assert.NoError(t, done.Validate())

	pending := got[1]
	assert.Nil(t, pending.StartTime)
	require.NotNil(t, pending.ScheduledDate)
	assert.Equal(t, *tasks[1].ScheduledDate, *pending.ScheduledDate)
	assert.False(t, pending.Notified)
	assert.NoError(t, pending.Validate())
}

func TestSnapshotReplacesCollection(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, sampleTasks(), model.UserStats{}))
	require.NoError(t, s.SaveSnapshot(ctx, sampleTasks()[1:], model.UserStats{}))

	got, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	require.NoError(t, s.SaveSnapshot(ctx, nil, model.UserStats{}))
	got, err = s.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStatsDefaultsToZero(t *testing.T) {
	s := testutil.NewTestStore(t)

	stats, err := s.LoadStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.UserStats{}, stats)
}

func TestSaveSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	stats := model.UserStats{Points: 5, CompletedCount: 1, FailedCount: 1}
	require.NoError(t, s.SaveSnapshot(ctx, sampleTasks(), stats))

	got, err := s.LoadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, got)

	stats.Points = 15
	require.NoError(t, s.SaveSnapshot(ctx, sampleTasks(), stats))
	got, err = s.LoadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Points)

	tasks, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestNotifications(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day := model.DateOf(testutil.FixedTime)

	for i, title := range []string{"first", "second"} {
		require.NoError(t, s.CreateNotification(ctx, model.Notification{
			TaskID:    "a",
			ForDate:   day,
			Title:     title,
			Message:   "Time for your task",
			CreatedAt: testutil.FixedTime.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.GetNotifications(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Title)
	assert.Equal(t, day, all[0].ForDate)
	assert.NotEmpty(t, all[0].ID)

	latest, err := s.GetNotifications(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "second", latest[0].Title)
}

func TestKeyValue(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.GetValue(ctx, "avatar")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetValue(ctx, "avatar", []byte{1, 2, 3}))
	require.NoError(t, s.SetValue(ctx, "avatar", []byte{4, 5}))

	v, err := s.GetValue(ctx, "avatar")
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, v)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focusproof.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, sampleTasks(), model.UserStats{Points: 10, CompletedCount: 1}))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	tasks, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	stats, err := s.LoadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Points)
}
