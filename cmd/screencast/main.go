package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"screencast/internal/adapters/capture"
	"screencast/internal/adapters/decoders/control"
	"screencast/internal/adapters/encoder"
	"screencast/internal/adapters/input"
	"screencast/internal/adapters/storage/memory"
	cfgpkg "screencast/internal/infrastructure/config"
	httpapi "screencast/internal/infrastructure/httpapi"
	obs "screencast/internal/infrastructure/observability"
	"screencast/internal/usecase"
)

func main() {
	cfg, err := cfgpkg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := obs.NewLogger(cfg.LogLevel)
	logger.Info().Str("addr", cfg.Addr).Str("source", cfg.CaptureSource).Str("input", cfg.InputBackend).Msg("starting screencast")

	metrics := obs.NewMetrics()

	store := memory.NewStore(cfg.HistoryMax, cfg.HistoryTTL)
	svc := usecase.NewSessionService(store)
	monitor := httpapi.NewMonitorHub()
	sessions := httpapi.NewSessionManager(cfg.SessionPolicy, newFactory(cfg, logger, metrics), logger, metrics, svc, monitor)
	deps := &httpapi.Deps{Cfg: cfg, Logger: logger, Metrics: metrics, Svc: svc, Monitor: monitor, Sessions: sessions}

	srv := httpapi.NewServer(deps)
	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("server start failed")
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
}

// newFactory picks the capture source and input backend named in cfg. Every
// viewer gets its own surface and backend.
func newFactory(cfg cfgpkg.Config, logger *zerolog.Logger, metrics *obs.Metrics) httpapi.SessionFactory {
	return httpapi.SessionFactory{
		NewSource: func() usecase.FrameSource {
			return capture.NewSurface(newGrabber(cfg), cfg.CaptureInterval(), logger,
				capture.WithDropHook(metrics.CaptureDropsTotal.Inc))
		},
		NewBackend: func() usecase.InputBackend { return newBackend(cfg, logger) },
		Encoder:    encoder.NewJPEG(cfg.JPEGQuality),
		Parser:     control.Parser{},
		Options: usecase.SessionOptions{
			FrameInterval: cfg.FrameInterval(),
			WriteTimeout:  cfg.WriteTimeout(),
			DispatchQueue: cfg.DispatchQueue,
		},
	}
}

func newGrabber(cfg cfgpkg.Config) capture.Grabber {
	switch cfg.CaptureSource {
	case cfgpkg.SourceADB:
		return capture.NewADBGrabber(cfg.ADBPath, cfg.ADBSerial)
	case cfgpkg.SourceSynthetic:
		return capture.NewSyntheticGrabber(cfg.SyntheticWidth, cfg.SyntheticHeight, cfg.SyntheticPadding)
	default:
		return capture.NewScreenshotGrabber(cfg.DisplayIndex)
	}
}

func newBackend(cfg cfgpkg.Config, logger *zerolog.Logger) usecase.InputBackend {
	switch cfg.InputBackend {
	case cfgpkg.BackendSu:
		return input.NewSuBackend(cfg.SuPath, logger)
	case cfgpkg.BackendADB:
		return input.NewADBBackend(cfg.ADBPath, cfg.ADBSerial, logger)
	default:
		return input.NewLogBackend(logger)
	}
}
