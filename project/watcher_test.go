package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherCoalescesEditBursts(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]*Program{{Name: "burst", Dir: dir}})
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "image.frag")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("// edit"), 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-w.Reload():
	case <-time.After(2 * time.Second):
		t.Fatal("no reload signal after an edit burst")
	}

	// The whole burst collapses into that one signal.
	select {
	case <-w.Reload():
		t.Fatal("unexpected second reload signal")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherIgnoresCompiledArtifacts(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]*Program{{Name: "artifacts", Dir: dir}})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.spv"), []byte{1, 2, 3}, 0o644))

	select {
	case <-w.Reload():
		t.Fatal("compiler output must not trigger a reload")
	case <-time.After(600 * time.Millisecond):
	}
}
