package main

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/config"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/dashboard"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/logger"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/metrics"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/output"
)

func main() {
	log := logger.New("api")
	if err := config.LoadDotEnv(); err != nil {
		log.Warn("load .env", slog.Any("err", err))
	}

	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	srv := newServer(log, cfg)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("value_path", cfg.ValuePath),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log     *slog.Logger
	cfg     *config.API
	metrics *metrics.Metrics
}

type errorResponse struct {
	Error string `json:"error"`
}

func newServer(log *slog.Logger, cfg *config.API) *server {
	s := &server{log: log, cfg: cfg}
	s.metrics = metrics.New(func() (output.GaugeValue, error) {
		return output.ReadGaugeValue(cfg.ValuePath)
	}, nil)
	return s
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/health", s.handleHealth)
	r.Get("/api/gsi", s.handleGauge)
	r.Get("/gsi_value.json", s.handleGauge)
	r.Get("/api/results", s.handleResults)
	r.Get("/", s.handleDashboard)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	v, err := output.ReadGaugeValue(s.cfg.ValuePath)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no snapshot available"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "snapshot": v.Timestamp})
}

func (s *server) handleGauge(w http.ResponseWriter, _ *http.Request) {
	v, err := output.ReadGaugeValue(s.cfg.ValuePath)
	if err != nil {
		s.writeReadError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, v)
}

func (s *server) handleResults(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.ResultsPath == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "results not published"})
		return
	}
	res, err := output.ReadResults(s.cfg.ResultsPath)
	if err != nil {
		s.writeReadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.cfg.DashboardPath != "" {
		if _, err := os.Stat(s.cfg.DashboardPath); err == nil {
			http.ServeFile(w, r, s.cfg.DashboardPath)
			return
		}
	}

	opts := dashboard.DefaultOptions()
	opts.ValueURL = "/api/gsi"
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboard.Render(w, opts); err != nil {
		s.log.Error("render dashboard", slog.Any("err", err))
	}
}

func (s *server) writeReadError(w http.ResponseWriter, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no snapshot available"})
		return
	}
	s.log.Error("read snapshot", slog.Any("err", err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
