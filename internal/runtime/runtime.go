// Package runtime assembles the daemon: telemetry, stores, bus, synthesis and
// chat backends, the orchestrator, and the HTTP surface. Start blocks until
// the context is cancelled, then shuts everything down in reverse order.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AlaeddineMessadi/supertonic/internal/bus"
	"github.com/AlaeddineMessadi/supertonic/internal/config"
	"github.com/AlaeddineMessadi/supertonic/internal/httpapi"
	"github.com/AlaeddineMessadi/supertonic/internal/llm"
	"github.com/AlaeddineMessadi/supertonic/internal/natsserver"
	"github.com/AlaeddineMessadi/supertonic/internal/phrase"
	"github.com/AlaeddineMessadi/supertonic/internal/session"
	"github.com/AlaeddineMessadi/supertonic/internal/stream"
	"github.com/AlaeddineMessadi/supertonic/internal/tts"
	"github.com/AlaeddineMessadi/supertonic/internal/turnlog"
)

type Runtime struct {
	cfg    config.Config
	logger *slog.Logger
	ready  atomic.Bool
	wg     sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}

	turns, err := turnlog.Open(ctx, r.cfg.TurnLog, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open turn log: %w", err)
	}
	defer turns.Close()

	var (
		embedded *natsserver.EmbeddedServer
		mirror   *bus.Client
	)
	if r.cfg.Bus.Enabled {
		embedded, err = natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded bus: %w", err)
		}
		defer embedded.Shutdown()

		busCfg := r.cfg.Bus
		if url := embedded.ClientURL(); url != "" {
			busCfg.Servers = []string{url}
		}
		mirror, err = bus.Connect(ctx, busCfg, r.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to bus: %w", err)
		}
		defer mirror.Close()
	}

	engine, err := r.buildEngine()
	if err != nil {
		return fmt.Errorf("failed to build synthesis engine: %w", err)
	}
	chat := llm.NewOllamaClient(r.cfg.LLM.Endpoint, r.cfg.LLM.DefaultModel, stream.MalformedLineHook(r.logger))
	sessions := session.NewStore()
	styles := tts.NewStyleDir(r.cfg.TTS.StylesDir)

	policy := phrase.DefaultPolicy()
	policy.MinPhraseLength = r.cfg.Stream.MinPhraseLength
	policy.MaxPhraseLength = r.cfg.Stream.MaxPhraseLength

	orch := stream.New(engine, chat, sessions, r.logger, stream.Options{
		SampleRate:       r.cfg.TTS.SampleRate,
		SegmentMaxLength: r.cfg.Stream.SegmentMaxLength,
		SilenceSeconds:   r.cfg.Stream.SilenceSeconds,
		Policy:           policy,
		SystemPrompt:     r.cfg.LLM.SystemPrompt,
		TurnTimeout:      time.Duration(r.cfg.LLM.TurnTimeout) * time.Millisecond,
		Recorder:         turns,
	})

	api := httpapi.New(r.cfg, orch, styles, engine, chat, sessions, turns, mirror, r.logger)
	mux := api.Routes()
	mux.HandleFunc("GET /healthz", r.handleHealth)
	mux.HandleFunc("GET /readyz", r.handleReady)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	apiServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	var metricsServer *http.Server
	if metricHandler != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("GET /metrics", metricHandler)
		metricsServer = &http.Server{
			Addr:              r.cfg.Telemetry.PrometheusBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("tts_mode", r.cfg.TTS.Mode),
		slog.String("llm_endpoint", r.cfg.LLM.Endpoint))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("metrics shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()

	if shutdownTelemetry != nil {
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) buildEngine() (tts.Engine, error) {
	switch r.cfg.TTS.Mode {
	case "mock":
		return tts.NewMockEngine(r.cfg.TTS.SampleRate), nil
	case "exec":
		return tts.NewExecEngine(r.cfg.TTS.Command)
	case "http":
		return tts.NewHTTPEngine(r.cfg.TTS.Endpoint), nil
	default:
		return nil, fmt.Errorf("unknown tts mode %q", r.cfg.TTS.Mode)
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
