package sync_test

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/proof"
	appsync "github.com/nhle/focusproof/internal/sync"
)

type staticTasks []model.Task

func (s staticTasks) Tasks() []model.Task { return s }

type stubFinder struct {
	mu    gosync.Mutex
	found map[string]proof.Proof
	err   error
	asked [][]string
}

func (f *stubFinder) FindAll(_ context.Context, tasks []model.Task) (map[string]proof.Proof, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	f.asked = append(f.asked, ids)
	return f.found, f.err
}

func receive(t *testing.T, p *appsync.Poller, cmd func() any) appsync.PollResultMsg {
	t.Helper()
	done := make(chan any, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		res, ok := msg.(appsync.PollResultMsg)
		require.True(t, ok, "unexpected message %T", msg)
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for poll result")
		return appsync.PollResultMsg{}
	}
}

func TestPollerDeliversProofsForVerifyingTasks(t *testing.T) {
	tasks := staticTasks{
		{ID: "v1", Status: model.StatusVerifying},
		{ID: "a1", Status: model.StatusActive},
		{ID: "v2", Status: model.StatusVerifying},
	}
	finder := &stubFinder{found: map[string]proof.Proof{
		"v2": {MIMEType: "image/png", DataURL: "data:image/png;base64,AAAA"},
	}}

	p := appsync.New(finder, tasks, time.Hour, zerolog.Nop())
	cmd := p.Start()
	require.NotNil(t, cmd)
	defer p.Stop()

	assert.Nil(t, p.Start(), "second start is a no-op")

	p.Refresh()
	res := receive(t, p, func() any { return cmd() })

	require.NoError(t, res.Error)
	assert.Equal(t, 2, res.Checked)
	require.Len(t, res.Found, 1)
	assert.Equal(t, "v2", res.Found[0].TaskID)

	finder.mu.Lock()
	assert.Equal(t, []string{"v1", "v2"}, finder.asked[0])
	finder.mu.Unlock()

	assert.Equal(t, appsync.SyncIdle, p.Status().State)
}

func TestPollerReportsErrors(t *testing.T) {
	tasks := staticTasks{{ID: "v1", Status: model.StatusVerifying}}
	finder := &stubFinder{err: errors.New("login failed")}

	p := appsync.New(finder, tasks, time.Hour, zerolog.Nop())
	p.Start()
	defer p.Stop()

	p.Refresh()
	res := receive(t, p, func() any { return p.WaitForNextResult()() })
	assert.EqualError(t, res.Error, "login failed")
	assert.Equal(t, appsync.SyncError, p.Status().State)
}
