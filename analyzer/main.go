package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/config"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/dashboard"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/elasticsearch"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/logger"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/models"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/output"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/scorer"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/sentiment"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/source"
)

type articleAnalyzer interface {
	Analyze(ctx context.Context, articles []models.Article) (*sentiment.Result, error)
}

func main() {
	log := logger.New("analyzer")
	if err := config.LoadDotEnv(); err != nil {
		log.Warn("load .env", slog.Any("err", err))
	}

	cfg, err := config.LoadAnalyzer()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	src, err := newSource(ctx, cfg, log)
	if err != nil {
		log.Error("init news source", slog.Any("err", err))
		os.Exit(1)
	}

	sc, err := scorer.New(scorer.Config{
		URL:        cfg.Scorer.URL,
		Token:      cfg.Scorer.Token,
		BatchSize:  cfg.Scorer.BatchSize,
		Timeout:    cfg.Scorer.Timeout,
		MaxRetries: cfg.Scorer.MaxRetries,
	}, log)
	if err != nil {
		log.Error("init scorer", slog.Any("err", err))
		os.Exit(1)
	}

	keywords := sentiment.DefaultImpactKeywords
	if len(cfg.ImpactKeywords) > 0 {
		keywords = cfg.ImpactKeywords
	}
	an := sentiment.NewAnalyzer(sc, sentiment.NewImpactWeighter(keywords), sentiment.WithLogger(log))

	log.Info("analyzer started",
		slog.String("news_source", cfg.NewsSource),
		slog.String("scorer", cfg.Scorer.URL),
		slog.Int("impact_keywords", len(keywords)),
	)

	if err := run(ctx, log, cfg, src, an); err != nil {
		log.Error("analysis run failed, previous snapshot kept", slog.Any("err", err))
		os.Exit(1)
	}
}

func newSource(ctx context.Context, cfg *config.Analyzer, log *slog.Logger) (source.Source, error) {
	if cfg.NewsSource != config.SourceElasticsearch {
		return source.File{Path: cfg.NewsFile}, nil
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		return nil, err
	}
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := esClient.Health(healthCtx); err != nil {
		return nil, err
	}
	return source.Elastic{Searcher: esClient, Lookback: cfg.Lookback, Limit: cfg.MaxDocuments, Log: log}, nil
}

// run computes one snapshot and publishes it. Nothing is written unless the
// whole run succeeds.
func run(ctx context.Context, log *slog.Logger, cfg *config.Analyzer, src source.Source, an articleAnalyzer) error {
	articles, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load news: %w", err)
	}
	log.Info("loaded news snapshot", slog.Int("articles", len(articles)))

	res, err := an.Analyze(ctx, articles)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	results := output.FromResult(res)
	if err := output.Publish(cfg.ResultsPath, cfg.ValuePath, results); err != nil {
		return err
	}

	if cfg.DashboardPath != "" {
		opts := dashboard.DefaultOptions()
		opts.ValueURL = valueURL(cfg.DashboardPath, cfg.ValuePath)
		if err := dashboard.Write(cfg.DashboardPath, opts); err != nil {
			return fmt.Errorf("write dashboard: %w", err)
		}
	}

	log.Info("snapshot published",
		slog.String("run_id", results.RunID),
		slog.Float64("gsi", results.GSI),
		slog.String("classification", results.Classification),
		slog.Int("documents", results.News.Count),
		slog.String("value_path", cfg.ValuePath),
	)
	return nil
}

// valueURL is the gauge value path relative to the dashboard page.
func valueURL(dashboardPath, valuePath string) string {
	rel, err := filepath.Rel(filepath.Dir(dashboardPath), valuePath)
	if err != nil {
		return filepath.Base(valuePath)
	}
	return filepath.ToSlash(rel)
}
