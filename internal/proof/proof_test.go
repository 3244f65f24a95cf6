package proof

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desk.png")
	require.NoError(t, os.WriteFile(path, pngBytes, 0o644))

	p, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.MIMEType)
	assert.True(t, strings.HasPrefix(p.DataURL, "data:image/png;base64,iVBORw0KGgo"))
	assert.Equal(t, path, p.Source)
}

func TestFromFileRejectsNonImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a photo"), 0o644))

	_, err := FromFile(path)
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = FromFile(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)

	_, err = FromFile(dir)
	assert.Error(t, err)
}

func TestFromBytes(t *testing.T) {
	_, err := FromBytes(nil, "image/png", "empty")
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = FromBytes(make([]byte, MaxImageBytes+1), "image/png", "huge")
	assert.ErrorIs(t, err, ErrTooLarge)

	// Undetectable bytes fall back to a supported declared type.
	p, err := FromBytes([]byte{1, 2, 3, 4}, "image/webp; name=x", "mail")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", p.MIMEType)
}

func TestEncodeDataURL(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,AQID", EncodeDataURL("image/jpeg", []byte{1, 2, 3}))
}

func TestTag(t *testing.T) {
	assert.Equal(t, "[fp-0123abcd]", Tag("0123abcd-4567-89ef"))
	assert.Equal(t, "[fp-abc]", Tag("abc"))
}

// composeProofMail builds a message with a text part and, when filename is
// set, a PNG attachment.
func composeProofMail(t *testing.T, subject, filename string) []byte {
	t.Helper()

	var h mail.Header
	h.SetSubject(subject)
	h.SetAddressList("From", []*mail.Address{{Address: "me@example.com"}})

	var buf bytes.Buffer
	w, err := mail.CreateWriter(&buf, h)
	require.NoError(t, err)

	tw, err := w.CreateInline()
	require.NoError(t, err)
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	pw, err := tw.CreatePart(th)
	require.NoError(t, err)
	_, err = io.WriteString(pw, "Desk is clean, see attached.")
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	require.NoError(t, tw.Close())

	if filename != "" {
		var ah mail.AttachmentHeader
		ah.SetFilename(filename)
		ah.SetContentType("image/png", nil)
		ah.Set("Content-Transfer-Encoding", "base64")
		aw, err := w.CreateAttachment(ah)
		require.NoError(t, err)
		_, err = aw.Write(pngBytes)
		require.NoError(t, err)
		require.NoError(t, aw.Close())
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractImage(t *testing.T) {
	mimeType, data, name, ok := extractImage(composeProofMail(t, "Done "+Tag("0123abcd-4567"), "desk.png"))
	require.True(t, ok)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, "desk.png", name)
	assert.Equal(t, pngBytes, data)

	_, _, _, ok = extractImage(composeProofMail(t, "Done "+Tag("0123abcd-4567"), ""))
	assert.False(t, ok)

	_, _, _, ok = extractImage([]byte("garbage"))
	assert.False(t, ok)
}
