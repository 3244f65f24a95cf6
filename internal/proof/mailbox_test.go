package proof

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/focusproof/internal/model"
)

const testMailbox = "Proofs"

// startIMAP serves an in-memory mailbox holding msgs in append order and
// returns a Mailbox connected to it.
func startIMAP(t *testing.T, msgs ...[]byte) *Mailbox {
	t.Helper()

	user := imapmemserver.NewUser("yahya", "secret")
	require.NoError(t, user.Create(testMailbox, nil))
	for _, raw := range msgs {
		_, err := user.Append(testMailbox, bytes.NewReader(raw), &imap.AppendOptions{})
		require.NoError(t, err)
	}

	mem := imapmemserver.New()
	mem.AddUser(user)

	server := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Caps:         imap.CapSet{imap.CapIMAP4rev1: {}},
		InsecureAuth: true,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = server.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return NewMailbox(MailboxConfig{
		Host:     host,
		Port:     port,
		Username: "yahya",
		Password: "secret",
		Mailbox:  testMailbox,
		Insecure: true,
	})
}

func mailTask(id, title string) model.Task {
	start := time.Now().Add(-24 * time.Hour)
	return model.Task{
		ID:              id,
		Title:           title,
		DurationMinutes: 1,
		Status:          model.StatusVerifying,
		StartTime:       &start,
	}
}

func TestMailboxFindAll(t *testing.T) {
	tagged := mailTask("aaaa1111-0000", "Clean desk")
	titled := mailTask("bbbb2222-0000", "Water plants")
	repeated := mailTask("cccc3333-0000", "Read chapter")
	missing := mailTask("dddd4444-0000", "Call mom")

	mb := startIMAP(t,
		composeProofMail(t, "Proof "+Tag(tagged.ID), "desk.png"),
		composeProofMail(t, "Water plants done", "plants.png"),
		composeProofMail(t, "Read chapter "+Tag(repeated.ID), "old.png"),
		composeProofMail(t, "Read chapter again "+Tag(repeated.ID), "new.png"),
		composeProofMail(t, "Read chapter, forgot the photo", ""),
		composeProofMail(t, "Call mom", ""),
	)

	found, err := mb.FindAll(context.Background(), []model.Task{tagged, titled, repeated, missing})
	require.NoError(t, err)
	require.Len(t, found, 3)

	assert.Contains(t, found[tagged.ID].Source, "desk.png")
	assert.Contains(t, found[titled.ID].Source, "plants.png", "title in the subject is enough")
	assert.Contains(t, found[repeated.ID].Source, "new.png", "newest message with an image wins")
	assert.Equal(t, "image/png", found[tagged.ID].MIMEType)
	assert.NotContains(t, found, missing.ID, "messages without an image are skipped")
}

func TestMailboxFindReportsNoProof(t *testing.T) {
	mb := startIMAP(t, composeProofMail(t, "Unrelated", "cat.png"))

	_, err := mb.Find(context.Background(), mailTask("eeee5555-0000", "Stretch"))
	assert.ErrorIs(t, err, ErrNoProof)
}

func TestMailboxRejectsBadLogin(t *testing.T) {
	mb := startIMAP(t)
	mb.cfg.Password = "wrong"

	_, err := mb.Find(context.Background(), mailTask("ffff6666-0000", "Stretch"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoProof)
}
