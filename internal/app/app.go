package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	nebulous "github.com/parkjaeuk0210/nebulous-game"
	"github.com/parkjaeuk0210/nebulous-game/internal/config"
	servernet "github.com/parkjaeuk0210/nebulous-game/internal/net"
	"github.com/parkjaeuk0210/nebulous-game/internal/net/ws"
	"github.com/parkjaeuk0210/nebulous-game/internal/recorder"
	"github.com/parkjaeuk0210/nebulous-game/internal/telemetry"
	"github.com/parkjaeuk0210/nebulous-game/logging"
	loggingSinks "github.com/parkjaeuk0210/nebulous-game/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Logger   telemetry.Logger
	Settings config.Config
	// Ready, when set, receives the bound listener address once serving.
	Ready func(addr net.Addr)
}

// Run serves the game until ctx is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	settings := cfg.Settings
	namedSinks, err := buildSinks(settings.Logging)
	if err != nil {
		return err
	}
	router, err := logging.NewRouter(logging.SystemClock{}, settings.Logging, namedSinks, fallbackLogger)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := &logging.Metrics{}

	hubCfg := nebulous.DefaultHubConfig()
	hubCfg.World = settings.World
	hubCfg.Loop.TickRate = settings.TickRate
	hubCfg.Loop.CommandCapacity = settings.CommandCapacity
	hubCfg.Loop.PerActorLimit = settings.PerActorLimit
	hubCfg.Logger = telemetryLogger
	hubCfg.Publisher = router
	hubCfg.Metrics = metrics

	var rec *recorder.Recorder
	if settings.RecordDir != "" {
		rec, err = recorder.New(recorder.Config{
			Dir:        settings.RecordDir,
			BatchTicks: settings.RecordBatchTicks,
			Logger:     telemetryLogger,
			Metrics:    telemetry.WrapMetrics(metrics),
		})
		if err != nil {
			return fmt.Errorf("failed to construct recorder: %w", err)
		}
		hubCfg.Recorder = rec
		telemetryLogger.Printf("recording tick summaries to %s", settings.RecordDir)
	}

	hub, err := nebulous.NewHubWithConfig(hubCfg)
	if err != nil {
		return fmt.Errorf("failed to construct hub: %w", err)
	}

	stop := make(chan struct{})
	simDone := make(chan struct{})
	go func() {
		hub.RunSimulation(stop)
		close(simDone)
	}()
	defer func() {
		close(stop)
		<-simDone
		if rec != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if cerr := rec.Close(closeCtx); cerr != nil {
				telemetryLogger.Printf("failed to close recorder: %v", cerr)
			}
		}
	}()

	clientDir := settings.ClientDir
	if clientDir == "" {
		if resolved, err := nebulous.ResolveClientAssetsDir(); err == nil {
			clientDir = resolved
		} else {
			telemetryLogger.Printf("serving without client assets: %v", err)
		}
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir:     clientDir,
		Logger:        fallbackLogger,
		RouterStats:   router.Stats,
		Observability: settings.Observability,
		WS: ws.HandlerConfig{
			Logger:       fallbackLogger,
			MessageRate:  settings.MessageRate,
			MessageBurst: settings.MessageBurst,
		},
	})

	listener, err := net.Listen("tcp", settings.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", settings.Addr, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	telemetryLogger.Printf("server listening on %s (tick rate %d Hz, world %s %vx%v)",
		listener.Addr(), hub.TickRate(), hub.CurrentSettings().Seed, hub.CurrentSettings().Width, hub.CurrentSettings().Height)
	if cfg.Ready != nil {
		cfg.Ready(listener.Addr())
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	telemetryLogger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// Hijacked websocket connections are not tracked by Shutdown.
		srv.Close()
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func buildSinks(cfg logging.Config) ([]logging.NamedSink, error) {
	var named []logging.NamedSink
	for _, name := range cfg.EnabledSinks {
		switch name {
		case logging.SinkConsole:
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsole(os.Stdout)})
		case logging.SinkJSON:
			if cfg.JSON.FilePath == "" {
				named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(stdoutWriter{os.Stdout}, cfg.JSON.FlushInterval)})
				continue
			}
			f, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open json log %s: %w", cfg.JSON.FilePath, err)
			}
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(f, cfg.JSON.FlushInterval)})
		case logging.SinkMemory:
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewMemory()})
		default:
			return nil, fmt.Errorf("unknown log sink %q", name)
		}
	}
	return named, nil
}

// stdoutWriter hides os.Stdout's Close from sinks that close their writer.
type stdoutWriter struct{ io.Writer }

var _ nebulous.StepRecorder = (*recorder.Recorder)(nil)
