// Command framepipe plays a video through the three-stage frame pipeline:
// decode, transform (grayscale by default) and display, paced to the
// configured frame rate. Type q and Enter, or close the window, to stop.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/keyboard"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/logging"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/metrics"
)

// Version information
const version = "v0.1.0"

const metricsShutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	args := os.Args[1:]
	if len(args) > 1 || (len(args) == 1 && strings.HasPrefix(args[0], "-")) {
		fmt.Fprintf(os.Stderr, "Usage: framepipe [input-path]\n\n")
		fmt.Fprintf(os.Stderr, "Settings come from the YAML file named by %s and %s_* variables.\n",
			config.EnvConfigPath, config.EnvPrefix)
		return 2
	}

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(args) == 1 {
		cfg.Input = args[0]
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("starting framepipe",
		zap.String("version", version),
		zap.String("input", cfg.Input),
		zap.String("source", cfg.Source.Kind),
		zap.String("renderer", cfg.Renderer.Kind),
		zap.String("transform", cfg.Transform),
		zap.Float64("frame_rate", cfg.FrameRate),
		zap.Int("queue_size", cfg.QueueSize),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []framepipe.Option{
		framepipe.WithLogger(logger),
		framepipe.WithQueueSize(cfg.QueueSize),
		framepipe.WithFrameRate(cfg.FrameRate),
	}

	if cfg.Metrics.Addr != "" {
		m := metrics.New(prometheus.NewRegistry())
		shutdown := serveMetrics(cfg.Metrics.Addr, m.Handler(), logger)
		defer shutdown()
		opts = append(opts, framepipe.WithObserver(m))
	}

	stopKey := keyboard.Watch(os.Stdin, logger)

	p, err := build(cfg, stopKey, logger, opts)
	if err != nil {
		logger.Error("failed to build pipeline", zap.Error(err))
		return 1
	}

	if cfg.Renderer.Kind == config.RendererWindow {
		fmt.Println("Type q and press Enter (or close the window) to stop")
	}

	report, err := p.Run(ctx)
	if err != nil {
		var openErr *framepipe.OpenError
		if errors.As(err, &openErr) {
			logger.Error("cannot open input", zap.String("input", openErr.Path), zap.Error(openErr.Err))
		} else {
			logger.Error("pipeline failed", zap.Error(err))
		}
	}
	if report != nil {
		logReport(logger, report)
	}

	return exitCode(report, err, cfg.FailOnReadError)
}

// exitCode maps a run outcome to the process status: 1 for open and fatal
// errors, and for read errors when failOnReadError is set.
func exitCode(report *framepipe.Report, err error, failOnReadError bool) int {
	if err != nil {
		return 1
	}
	if report == nil {
		return 1
	}
	switch report.Termination {
	case framepipe.TerminationFailed:
		return 1
	case framepipe.TerminationReadError:
		if failOnReadError {
			return 1
		}
	}
	return 0
}

func logReport(logger *zap.Logger, r *framepipe.Report) {
	fields := []zap.Field{
		zap.String("run_id", r.RunID),
		zap.Stringer("termination", r.Termination),
		zap.Duration("duration", r.Duration),
		zap.Uint64("frames_read", r.Source.Frames),
		zap.Uint64("frames_transformed", r.Transform.Frames),
		zap.Uint64("frames_shown", r.Sink.Frames),
		zap.Int("channel_a_high_water", r.ChannelA.HighWater),
		zap.Int("channel_b_high_water", r.ChannelB.HighWater),
		zap.Uint64("channel_a_blocked_pushes", r.ChannelA.BlockedPushes),
		zap.Uint64("channel_b_blocked_pushes", r.ChannelB.BlockedPushes),
		zap.Float64("display_fps_mean", r.Display.FPSMean),
		zap.Float64("display_fps_stddev", r.Display.FPSStdDev),
		zap.Float64("display_jitter_mean_s", r.Display.JitterMean),
		zap.Bool("display_stable", r.Display.IsStable),
	}
	if r.Err != nil {
		fields = append(fields, zap.Error(r.Err))
	}

	switch r.Termination {
	case framepipe.TerminationFailed:
		logger.Error("run finished", fields...)
	case framepipe.TerminationReadError:
		logger.Warn("run finished", fields...)
	default:
		logger.Info("run finished", fields...)
	}
}

// serveMetrics exposes /metrics on addr and returns a function that shuts the
// server down.
func serveMetrics(addr string, handler http.Handler, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("starting metrics server", zap.String("addr", addr))

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
}
