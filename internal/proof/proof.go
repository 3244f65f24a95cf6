// Package proof loads proof photos and encodes them as data URLs, the form
// in which they are judged and stored on the task.
package proof

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxImageBytes caps the size of a proof image.
const MaxImageBytes = 20 << 20

var (
	// ErrNotImage is returned when the content is not a supported image.
	ErrNotImage = errors.New("proof is not a supported image")

	// ErrTooLarge is returned when the image exceeds MaxImageBytes.
	ErrTooLarge = errors.New("proof image is too large")

	// ErrNoProof is returned when a mailbox holds no proof for the task.
	ErrNoProof = errors.New("no proof found")
)

var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Proof is an image ready to be judged.
type Proof struct {
	MIMEType string
	DataURL  string

	// Source describes where the image came from (a path or a message).
	Source string
}

// EncodeDataURL returns data as a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// FromBytes validates data as an image and wraps it in a Proof. The
// declared type is only used when sniffing is inconclusive.
func FromBytes(data []byte, declaredType, source string) (Proof, error) {
	if len(data) == 0 {
		return Proof{}, ErrNotImage
	}
	if len(data) > MaxImageBytes {
		return Proof{}, fmt.Errorf("%s: %w", source, ErrTooLarge)
	}

	mimeType := sniff(data, declaredType)
	if !supportedTypes[mimeType] {
		return Proof{}, fmt.Errorf("%s (%s): %w", source, mimeType, ErrNotImage)
	}

	return Proof{
		MIMEType: mimeType,
		DataURL:  EncodeDataURL(mimeType, data),
		Source:   source,
	}, nil
}

func sniff(data []byte, declared string) string {
	detected, _, _ := strings.Cut(http.DetectContentType(data), ";")
	if supportedTypes[detected] {
		return detected
	}
	declared, _, _ = strings.Cut(strings.ToLower(strings.TrimSpace(declared)), ";")
	if supportedTypes[declared] {
		return declared
	}
	return detected
}

// FromFile reads an image from path. A leading ~ is expanded.
func FromFile(path string) (Proof, error) {
	path = expandHome(strings.TrimSpace(path))

	info, err := os.Stat(path)
	if err != nil {
		return Proof{}, fmt.Errorf("reading proof: %w", err)
	}
	if info.IsDir() {
		return Proof{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxImageBytes {
		return Proof{}, fmt.Errorf("%s: %w", path, ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Proof{}, fmt.Errorf("reading proof: %w", err)
	}
	return FromBytes(data, "", path)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
