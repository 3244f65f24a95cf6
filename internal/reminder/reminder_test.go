package reminder_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/reminder"
	"github.com/nhle/focusproof/internal/tracker"
	"github.com/nhle/focusproof/tests/testutil"
)

type recordingNotifier struct {
	got []reminder.Reminder
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, rem reminder.Reminder) error {
	r.got = append(r.got, rem)
	return r.err
}

func setup(t *testing.T) (*tracker.Tracker, *recordingNotifier, *reminder.Checker, model.Date) {
	t.Helper()
	s := testutil.NewTestStore(t)
	c := testutil.NewFakeClock()
	tr := tracker.New(s, c, zerolog.Nop())
	n := &recordingNotifier{}
	checker := reminder.NewChecker(tr, n, s, locale.English, zerolog.Nop())
	return tr, n, checker, model.DateOf(c.Now())
}

func TestCheckFiresOncePerDay(t *testing.T) {
	ctx := context.Background()
	tr, n, checker, today := setup(t)

	task, err := tr.AddTask(ctx, tracker.NewTask{Title: "Call the bank", ScheduledDate: &today})
	require.NoError(t, err)

	now := testutil.FixedTime
	fired := checker.Check(ctx, now)
	require.Len(t, fired, 1)
	assert.Equal(t, task.ID, fired[0].TaskID)
	assert.Equal(t, "Task reminder", fired[0].Title)
	assert.Equal(t, "Today is the day for: Call the bank", fired[0].Body)

	for i := range 5 {
		assert.Empty(t, checker.Check(ctx, now.Add(time.Duration(i+1)*time.Second)))
	}
	assert.Len(t, n.got, 1)

	got, _ := tr.Get(task.ID)
	assert.True(t, got.Notified)
}

func TestCheckIsDateExact(t *testing.T) {
	ctx := context.Background()
	tr, n, checker, today := setup(t)

	yesterday := today.AddDays(-1)
	tomorrow := today.AddDays(1)
	_, err := tr.AddTask(ctx, tracker.NewTask{Title: "Missed", ScheduledDate: &yesterday})
	require.NoError(t, err)
	future, err := tr.AddTask(ctx, tracker.NewTask{Title: "Dentist", ScheduledDate: &tomorrow})
	require.NoError(t, err)
	_, err = tr.AddTask(ctx, tracker.NewTask{Title: "Undated"})
	require.NoError(t, err)

	assert.Empty(t, checker.Check(ctx, testutil.FixedTime))
	assert.Empty(t, n.got)

	// The next day the future task becomes due.
	fired := checker.Check(ctx, testutil.FixedTime.Add(24*time.Hour))
	require.Len(t, fired, 1)
	assert.Equal(t, future.ID, fired[0].TaskID)
}

func TestCheckMarksEvenWhenDeliveryFails(t *testing.T) {
	ctx := context.Background()
	tr, n, checker, today := setup(t)
	n.err = errors.New("smtp down")

	task, err := tr.AddTask(ctx, tracker.NewTask{Title: "Pay rent", ScheduledDate: &today})
	require.NoError(t, err)

	require.Len(t, checker.Check(ctx, testutil.FixedTime), 1)
	assert.Empty(t, checker.Check(ctx, testutil.FixedTime))

	got, _ := tr.Get(task.ID)
	assert.True(t, got.Notified)
}

func TestCheckRecordsLog(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	tr := tracker.New(s, testutil.NewFakeClock(), zerolog.Nop())
	checker := reminder.NewChecker(tr, nil, s, locale.Arabic, zerolog.Nop())
	today := model.DateOf(testutil.FixedTime)

	_, err := tr.AddTask(ctx, tracker.NewTask{Title: "قراءة", ScheduledDate: &today})
	require.NoError(t, err)
	checker.Check(ctx, testutil.FixedTime)

	log, err := s.GetNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "تذكير بمهمة", log[0].Title)
	assert.Contains(t, log[0].Message, "قراءة")
	assert.Equal(t, today, log[0].ForDate)
}

func TestMulti(t *testing.T) {
	a := &recordingNotifier{err: errors.New("a failed")}
	b := &recordingNotifier{}

	err := reminder.Multi{a, b}.Notify(context.Background(), reminder.Reminder{TaskID: "x"})
	assert.ErrorContains(t, err, "a failed")
	assert.Len(t, b.got, 1, "later notifiers still run")
}

func TestBell(t *testing.T) {
	var buf bytes.Buffer
	bell := reminder.NewBell(&buf, true)

	require.NoError(t, bell.Notify(context.Background(), reminder.Reminder{}))
	bell.Play(reminder.CueTimeUp)
	assert.Equal(t, "\a\a\a", buf.String())

	buf.Reset()
	bell.SetEnabled(false)
	bell.Play(reminder.CueSuccess)
	assert.Empty(t, buf.String())

	bell.SetEnabled(true)
	bell.Play(reminder.CueSuccess)
	assert.Equal(t, "\a", buf.String())

	var nilBell *reminder.Bell
	nilBell.Play(reminder.CueSuccess)
}

func TestAsync(t *testing.T) {
	n := &recordingNotifier{}
	a := reminder.NewAsync(n, zerolog.Nop())

	require.NoError(t, a.Notify(context.Background(), reminder.Reminder{TaskID: "x"}))
	a.Wait()
	require.Len(t, n.got, 1)
	assert.Equal(t, "x", n.got[0].TaskID)
}
