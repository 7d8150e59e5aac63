package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"puck-scanner/internal/domain/entity"
)

func TestRenderReport(t *testing.T) {
	out := renderReport("plate.png", entity.PlateReport{
		PlateID:    "abc",
		Kind:       "unipuck",
		Complete:   true,
		ValidCount: 1,
		Slots: []entity.SlotReport{
			{Number: 2, State: "empty"},
			{Number: 1, State: "valid", Data: "P01"},
		},
	})
	require.Contains(t, out, "plate.png")
	require.Contains(t, out, "готов")
	require.Contains(t, out, "P01")
	require.Contains(t, out, "1/2")
	require.Less(t, strings.Index(out, "P01"), strings.Index(out, "empty"))
}

func TestWatchLoop_HandlesNewImages(t *testing.T) {
	dir := t.TempDir()
	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	done := make(chan error, 1)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- watchLoop(ctx, w, 20*time.Millisecond, func(_ context.Context, path string) {
			got <- path
		}, log)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	image := filepath.Join(dir, "plate.png")
	require.NoError(t, os.WriteFile(image, []byte("png"), 0o644))

	select {
	case path := <-got:
		require.Equal(t, image, path)
	case <-time.After(5 * time.Second):
		t.Fatal("image was not handled")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch loop did not stop")
	}
}
