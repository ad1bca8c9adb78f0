package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smart-meal-be/pkg/llm"

	"github.com/gabriel-vasile/mimetype"
)

// LocalStore keeps uploaded images in a single flat directory. A ref is the
// path of the stored file relative to the process working directory.
type LocalStore struct {
	Dir string
	now func() time.Time
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, now: time.Now}, nil
}

// Save writes data as <dir>/<session>_<unixmillis>_<basename> and returns the ref.
func (s *LocalStore) Save(sessionID, filename string, data []byte) (string, error) {
	base := sanitizeName(filename)
	name := fmt.Sprintf("%s_%d_%s", sanitizeName(sessionID), s.now().UnixMilli(), base)
	ref := filepath.Join(s.Dir, name)

	if err := os.WriteFile(ref, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return filepath.ToSlash(ref), nil
}

// Resolve loads the image behind ref. Missing files and content that does not
// sniff as image/* do not resolve.
func (s *LocalStore) Resolve(ref string) (llm.Image, bool) {
	data, err := os.ReadFile(filepath.FromSlash(ref))
	if err != nil || len(data) == 0 {
		return llm.Image{}, false
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return llm.Image{}, false
	}
	return llm.Image{MimeType: mtype.String(), Data: data}, true
}

func sanitizeName(name string) string {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "upload"
	}
	return base
}

// Remove deletes a stored file. Removing a missing file is not an error.
func (s *LocalStore) Remove(ref string) error {
	if err := os.Remove(filepath.FromSlash(ref)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
