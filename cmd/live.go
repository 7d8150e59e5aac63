package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"puck-scanner/config"
	"puck-scanner/internal/container"
	"puck-scanner/internal/domain/entity"
)

var liveCamera string

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Сканирование с камер, метрики и Telegram-бот",
	Args:  cobra.NoArgs,
	RunE:  runLive,
}

func init() {
	liveCmd.Flags().StringVar(&liveCamera, "camera", "", "start scanning right away: top or side")
}

func runLive(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	c, err := container.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build services: %v", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Pipeline.Run(ctx) })
	g.Go(func() error {
		return c.Dispatcher.Run(ctx, c.Pipeline.Results(), c.Pipeline.Messages())
	})

	if cfg.TelegramToken != "" {
		bot, err := c.NewBot()
		if err != nil {
			log.Fatalf("Failed to create bot: %v", err)
		}
		g.Go(func() error { return bot.Run(ctx) })
	} else {
		logger.Warn("live: TELEGRAM_TOKEN is empty, bot disabled")
	}

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(c), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("live: metrics listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if liveCamera != "" {
		pos, err := entity.ParseCameraPosition(liveCamera)
		if err != nil {
			return err
		}
		if err := c.Pipeline.Send(ctx, entity.StartCommand(pos)); err != nil {
			return err
		}
	}

	logger.Info("live: scanner is running")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func metricsMux(c *container.Container) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
