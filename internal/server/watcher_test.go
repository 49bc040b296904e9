package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accordion.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: one\n"), 0644))

	changed := make(chan string, 4)
	w, err := NewWatcher(path, func(p string) error {
		changed <- p
		return nil
	})
	require.NoError(t, err)
	w.Start()
	t.Cleanup(func() { w.Stop() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("title: two\n"), 0644))

	select {
	case p := <-changed:
		abs, _ := filepath.Abs(path)
		require.Equal(t, abs, p)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accordion.yaml")
	w, err := NewWatcher(path, func(string) error { return nil })
	require.NoError(t, err)
	w.Start()

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
