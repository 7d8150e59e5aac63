package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"puck-scanner/config"
	app "puck-scanner/internal/application"
	"puck-scanner/internal/container"
	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
	"puck-scanner/internal/domain/port"
	"puck-scanner/internal/infrastructure/camera"
	"puck-scanner/internal/infrastructure/notify"
)

var (
	watchPlate    string
	watchJSON     bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Сканировать новые снимки в каталоге",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchPlate, "plate", string(geometry.KindUnipuck), "plate type: unipuck or unconstrained")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print completed plates as JSON lines")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "wait for writes to settle")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	dir := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	kind, err := geometry.ParseKind(watchPlate)
	if err != nil {
		return err
	}

	var extra []port.PlateSink
	if watchJSON {
		extra = append(extra, notify.NewJSONLinesSink(cmd.OutOrStdout()))
	}
	c, err := container.New(cfg, logger, extra...)
	if err != nil {
		log.Fatalf("Failed to build services: %v", err)
	}
	defer c.Close()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sizes := c.Config.Cameras[string(entity.CameraTop)].BarcodeSizes
	if len(sizes) == 0 {
		sizes = []int{14}
	}
	still := c.NewStillService(kind, sizes)
	out := cmd.OutOrStdout()
	if watchJSON {
		out = io.Discard
	}
	h := &watchHandler{still: still, dispatcher: c.Dispatcher, out: out, log: logger}

	logger.Info("watch: waiting for images", "dir", dir)
	return watchLoop(ctx, w, watchDebounce, h.handle, logger)
}

// watchLoop вызывает handle для каждого нового изображения после паузы в записи.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, handle func(context.Context, string), log *slog.Logger) error {
	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !camera.IsImage(event.Name) {
				continue
			}
			name := event.Name
			if t, exists := timers[name]; exists {
				t.Stop()
			}
			timers[name] = time.AfterFunc(debounce, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})

		case name := <-ready:
			delete(timers, name)
			handle(ctx, name)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch: watcher error", "error", err)
		}
	}
}

type watchHandler struct {
	still      *app.StillScanService
	dispatcher *app.ResultDispatcher
	out        io.Writer
	log        *slog.Logger
}

func (h *watchHandler) handle(ctx context.Context, path string) {
	img, err := imaging.Open(path)
	if err != nil {
		h.log.Error("watch: failed to open image", "path", path, "error", err)
		return
	}
	res, err := h.still.Scan(ctx, img)
	if err != nil {
		if !errors.Is(err, entity.ErrNoBarcodesDetected) {
			h.log.Warn("watch: scan failed", "path", path, "error", err)
		}
		fmt.Fprintf(h.out, "%s: %s\n", filepath.Base(path), mutedStyle.Render("держатель не найден"))
		return
	}
	// Готовые держатели уходят получателям один раз.
	h.dispatcher.HandleResult(ctx, res.Result)
	fmt.Fprintln(h.out, renderReport(filepath.Base(path), *res.Report))
}
