package docstore

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestSaveAndPath(t *testing.T) {
	store := newTestStore(t)

	path, err := store.Save("CERT-1", "transcript.pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "CERT-1.pdf"))

	require.True(t, store.Exists("CERT-1"))

	got, ok := store.Path("CERT-1")
	require.True(t, ok)
	require.Equal(t, path, got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(data))
}

func TestSaveReplacesAcrossExtensions(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Save("CERT-1", "scan.png", strings.NewReader("png bytes"))
	require.NoError(t, err)

	second, err := store.Save("CERT-1", "transcript.pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)

	// The old file is gone, not orphaned beside the new one
	_, err = os.Stat(first)
	require.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	require.Equal(t, "pdf bytes", string(data))
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestFailedUploadKeepsExistingDocument(t *testing.T) {
	store := newTestStore(t)

	original, err := store.Save("CERT-1", "transcript.pdf", strings.NewReader("original"))
	require.NoError(t, err)

	_, err = store.Save("CERT-1", "replacement.pdf", brokenReader{})
	require.Error(t, err)

	path, ok := store.Path("CERT-1")
	require.True(t, ok)
	require.Equal(t, original, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "original", string(data))
}

func TestSaveLeavesExactlyOneFile(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"a.png", "b.pdf", "c.pdf", "d.jpeg"} {
		_, err := store.Save("CERT-1", name, strings.NewReader(name))
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "CERT-1.jpeg", entries[0].Name())
}

func TestSaveDefaultsExtension(t *testing.T) {
	store := newTestStore(t)

	path, err := store.Save("CERT-1", "noextension", strings.NewReader("x"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "CERT-1.bin"))
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save("CERT-1", "a.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete("CERT-1"))
	require.False(t, store.Exists("CERT-1"))

	// Deleting again is fine
	require.NoError(t, store.Delete("CERT-1"))
}

func TestRejectsUnsafeIDs(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"", "../etc/passwd", "a/b", "a.b", "CERT 1"} {
		_, err := store.Save(id, "a.pdf", strings.NewReader("x"))
		require.Error(t, err, "id %q", id)
	}

	require.False(t, store.Exists("../CERT-1"))
}

func TestMissingDocument(t *testing.T) {
	store := newTestStore(t)

	require.False(t, store.Exists("CERT-none"))
	_, ok := store.Path("CERT-none")
	require.False(t, ok)
}
