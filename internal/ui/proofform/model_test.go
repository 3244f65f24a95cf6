package proofform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/proof"
)

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "desk.jpg")
	require.NoError(t, os.WriteFile(file, []byte{0xff, 0xd8, 0xff}, 0o644))

	assert.NoError(t, validatePath(file))
	assert.NoError(t, validatePath("~/desk.jpg"))
	assert.Error(t, validatePath("  "))
	assert.Error(t, validatePath(filepath.Join(dir, "missing.jpg")))
	assert.Error(t, validatePath(dir))
}

func TestLoadFileReportsProof(t *testing.T) {
	file := filepath.Join(t.TempDir(), "desk.png")
	require.NoError(t, os.WriteFile(file, []byte("\x89PNG\r\n\x1a\n0000"), 0o644))

	msg := loadFile("t1", file)().(SubmittedMsg)
	require.NoError(t, msg.Err)
	assert.Equal(t, "t1", msg.TaskID)
	assert.Equal(t, "image/png", msg.Proof.MIMEType)

	msg = loadFile("t1", filepath.Join(t.TempDir(), "none.png"))().(SubmittedMsg)
	assert.Error(t, msg.Err)
}

func TestStartShowsTask(t *testing.T) {
	m := New(true, 80, 24)
	m.Start(model.Task{ID: "0123abcd-ffff", Title: "Clean desk"})

	assert.Equal(t, "0123abcd-ffff", m.TaskID())
	view := m.View()
	assert.Contains(t, view, "Clean desk")
	assert.Contains(t, view, proof.Tag("0123abcd-ffff"))
}
