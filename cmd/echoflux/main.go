// Command echoflux runs the real-time transcription/translation
// engine: it resolves the data directory and logging, locates the
// engine config file (loaded by the control plane on each start), and
// serves the ControlPlane WebSocket plus a
// Prometheus /metrics endpoint, grounded on the teacher's
// cmd/gateway/main.go wiring (config load, mux, graceful shutdown on
// SIGINT/SIGTERM).
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nmtuan2007/echo-flux/internal/control"
	"github.com/nmtuan2007/echo-flux/internal/env"
	"github.com/nmtuan2007/echo-flux/internal/pipeline"
	"github.com/nmtuan2007/echo-flux/internal/session"
)

func main() {
	paths, err := session.Resolve()
	if err != nil {
		// Logging isn't wired up yet; this is the one place a plain
		// stderr write is appropriate.
		println("echoflux: failed to resolve data directory:", err.Error())
		os.Exit(1)
	}
	logSink := session.InitLogging(paths)
	defer logSink.Close()

	slog.Info("echoflux starting", "data_dir", paths.DataDir, "log_file", paths.LogFile)

	configPath := env.Str("ECHOFLUX_CONFIG_FILE", paths.DataDir+"/config.json")

	handler := control.NewHandler(control.HandlerConfig{
		ConfigPath:  configPath,
		SidecarURLs: pipeline.DefaultSidecarURLs(),
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.Handler())

	host := env.Str("ECHOFLUX_HOST", "127.0.0.1")
	port := env.Str("ECHOFLUX_PORT", "8765")
	addr := host + ":" + port

	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(srv)

	slog.Info("echoflux listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("echoflux stopped")
}

func awaitShutdown(srv *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("echoflux shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
