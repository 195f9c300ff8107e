// CLAUDE:SUMMARY CLI entry point for fieldreg — registry daemon with HTTP status, scheduler, MCP stdio, and one-shot scrape modes.
// Command fieldreg runs the field-office registry.
//
// Usage:
//
//	fieldreg -config fieldreg.yaml            # daemon: scheduler + status HTTP
//	fieldreg -scrape <source-id> [-force]     # one scrape cycle, result on stdout
//	fieldreg -scrape-all                      # batch over enabled sources
//	fieldreg -mcp                             # serve MCP tools on stdio
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/fieldreg/dbopen"
	"github.com/hazyhaar/fieldreg/registry"
	"github.com/hazyhaar/fieldreg/shield"
)

func main() {
	configPath := flag.String("config", env("FIELDREG_CONFIG", ""), "path to fieldreg.yaml")
	scrapeID := flag.String("scrape", "", "scrape one source by id and exit")
	force := flag.Bool("force", false, "bypass throttle and unchanged-content checks")
	scrapeAll := flag.Bool("scrape-all", false, "scrape all enabled sources and exit")
	mcpStdio := flag.Bool("mcp", false, "serve MCP tools on stdio")
	logLevel := flag.String("log-level", env("FIELDREG_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *scrapeID, *force, *scrapeAll, *mcpStdio); err != nil {
		logger.Error("fieldreg: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, scrapeID string, force, scrapeAll, mcpStdio bool) error {
	cfg, err := registry.LoadConfig(configPath)
	if err != nil {
		return err
	}
	applyEnv(cfg)

	db, err := dbopen.Open(filepath.Join(cfg.DataDir, "fieldreg.db"),
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(registry.Schema),
	)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	svc, err := registry.New(db, cfg, logger)
	if err != nil {
		return err
	}

	switch {
	case scrapeID != "":
		res, err := svc.ScrapeSource(ctx, scrapeID, force)
		printJSON(res)
		return err

	case scrapeAll:
		results, err := svc.ScrapeAll(ctx)
		printJSON(results)
		return err

	case mcpStdio:
		srv := mcp.NewServer(&mcp.Implementation{Name: "fieldreg", Version: "1.0.0"}, nil)
		svc.RegisterMCP(srv)
		logger.Info("fieldreg: MCP stdio serving")
		return srv.Run(ctx, &mcp.StdioTransport{})

	default:
		return runDaemon(ctx, logger, cfg, svc)
	}
}

// runDaemon starts the scheduler and the status HTTP listener, blocking
// until the signal context is cancelled.
func runDaemon(ctx context.Context, logger *slog.Logger, cfg *registry.Config, svc *registry.Service) error {
	go svc.RunScheduler(ctx)

	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/status", func(w http.ResponseWriter, req *http.Request) {
		stats, index, err := svc.Stats(req.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"registry": stats, "index": index})
	})
	r.Get("/api/sources", func(w http.ResponseWriter, req *http.Request) {
		sources, err := svc.Store().ListSources(req.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, sources)
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fieldreg: HTTP serving", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// applyEnv layers environment overrides onto the file config.
func applyEnv(cfg *registry.Config) {
	if v := env("FIELDREG_DATA_DIR", ""); v != "" {
		cfg.DataDir = v
	}
	if v := env("FIELDREG_BLOB_DIR", ""); v != "" {
		cfg.BlobDir = v
	}
	if v := env("FIELDREG_HTTP_ADDR", ""); v != "" {
		cfg.HTTPAddr = v
	}
	if v := env("FIELDREG_EMBED_ENDPOINT", ""); v != "" {
		cfg.Embedding.Endpoint = v
	}
	if v := env("FIELDREG_GENAI_ENDPOINT", ""); v != "" {
		cfg.GenAI.Endpoint = v
	}
	if v := env("FIELDREG_GENAI_MODEL", ""); v != "" {
		cfg.GenAI.Model = v
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	os.Stdout.Write(data)
	os.Stdout.Write([]byte("\n"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
