package pagestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReportsSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".xpdf.pages")
	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, New(path, DefaultCapacity).Save([]Record{{Path: "/a", Page: 3}}))

	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification after save")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(filepath.Join(dir, ".xpdf.pages"))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated"), []byte("x"), 0644))

	select {
	case <-w.Changes():
		t.Fatal("unexpected notification for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}
