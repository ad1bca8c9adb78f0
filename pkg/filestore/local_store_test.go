package filestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Smallest valid PNG header plus IHDR chunk, enough for content sniffing.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde,
}

func newStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestSaveNamesFileBySessionAndTime(t *testing.T) {
	s := newStore(t)

	ref, err := s.Save("abc", "fridge.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "abc_1700000000000_fridge.png", filepath.Base(ref))

	data, err := os.ReadFile(ref)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestSaveStripsDirectoryComponents(t *testing.T) {
	s := newStore(t)

	ref, err := s.Save("abc", "../../etc/passwd", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, s.Dir, filepath.Dir(ref))
	assert.Equal(t, "abc_1700000000000_passwd", filepath.Base(ref))
}

func TestResolve(t *testing.T) {
	s := newStore(t)

	ref, err := s.Save("abc", "fridge.png", pngBytes)
	require.NoError(t, err)
	img, ok := s.Resolve(ref)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MimeType)

	textRef, err := s.Save("abc", "notes.txt", []byte("just some text"))
	require.NoError(t, err)
	_, ok = s.Resolve(textRef)
	assert.False(t, ok)

	_, ok = s.Resolve(filepath.Join(s.Dir, "missing.png"))
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	s := newStore(t)

	ref, err := s.Save("abc", "fridge.png", pngBytes)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ref))
	_, ok := s.Resolve(ref)
	assert.False(t, ok)

	assert.NoError(t, s.Remove(ref))
}
