package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/dedupe"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/logger"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/models"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/processing"
)

// SourceNews tags documents that came from the news snapshot.
const SourceNews = "news"

// ErrScoreCount is returned when the scorer does not return one score per text.
var ErrScoreCount = errors.New("scorer returned wrong number of scores")

// Scorer turns texts into sentiment scores. Implementations must return
// exactly one score per text, in input order, or an error.
type Scorer interface {
	ScoreBatch(ctx context.Context, texts []string) ([]Score, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, texts []string) ([]Score, error)

// ScoreBatch calls f.
func (f ScorerFunc) ScoreBatch(ctx context.Context, texts []string) ([]Score, error) {
	return f(ctx, texts)
}

// DocumentResult is one scored document with the weights applied to it.
type DocumentResult struct {
	Document
	Score          Score
	RecencyWeight  float64
	ImpactWeight   float64
	Weight         float64
	ImpactKeywords []string
}

// Stats counts what happened to the input of a run.
type Stats struct {
	Input     int
	Stale     int
	Empty     int
	Duplicate int
	Scored    int
}

// Result is the outcome of one analysis run.
type Result struct {
	RunID     string
	Timestamp time.Time
	Documents []DocumentResult
	Components
	Stats Stats
}

// Analyzer runs the full weighting pipeline over a news snapshot.
type Analyzer struct {
	scorer Scorer
	impact *ImpactWeighter
	log    *slog.Logger
	now    func() time.Time
	source string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// WithClock overrides the time source used for recency and the run timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithSourceName overrides the source tag attached to documents.
func WithSourceName(source string) Option {
	return func(a *Analyzer) {
		if source != "" {
			a.source = source
		}
	}
}

// NewAnalyzer wires an Analyzer. A nil impact weighter uses the default
// keyword list.
func NewAnalyzer(scorer Scorer, impact *ImpactWeighter, opts ...Option) *Analyzer {
	if impact == nil {
		impact = NewImpactWeighter(DefaultImpactKeywords)
	}
	a := &Analyzer{
		scorer: scorer,
		impact: impact,
		log:    logger.Discard(),
		now:    time.Now,
		source: SourceNews,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze filters the snapshot, scores the surviving documents in a single
// batch and aggregates them into the index. Stale, undated, empty and
// duplicate articles are dropped before scoring. A scorer failure fails the
// whole run.
func (a *Analyzer) Analyze(ctx context.Context, articles []models.Article) (*Result, error) {
	now := a.now().UTC()
	res := &Result{
		RunID:     uuid.NewString(),
		Timestamp: now,
		Stats:     Stats{Input: len(articles)},
	}

	seen := dedupe.NewCache(len(articles), Lookback, dedupe.WithClock(func() time.Time { return now }))
	docs := make([]Document, 0, len(articles))
	recency := make([]float64, 0, len(articles))
	for _, art := range articles {
		w := RecencyWeight(art.Timestamp, now)
		if w <= 0 {
			res.Stats.Stale++
			continue
		}
		text := processing.ArticleText(art)
		if strings.TrimSpace(text) == "" {
			res.Stats.Empty++
			continue
		}
		id := processing.DocumentID(art)
		if seen.CheckAndMark(id) {
			res.Stats.Duplicate++
			a.log.Debug("duplicate article", slog.String("id", id))
			continue
		}
		docs = append(docs, Document{ID: id, Source: a.source, Timestamp: art.Timestamp, Text: text})
		recency = append(recency, w)
	}

	a.log.Debug("snapshot filtered",
		slog.Int("kept", len(docs)),
		slog.Int("distinct_ids", seen.Len()),
		slog.Int("stale", res.Stats.Stale),
		slog.Int("empty", res.Stats.Empty),
		slog.Int("duplicate", res.Stats.Duplicate),
	)

	var scores []Score
	if len(docs) > 0 {
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Text
		}
		var err error
		scores, err = a.scorer.ScoreBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("score batch: %w", err)
		}
		if len(scores) != len(texts) {
			return nil, fmt.Errorf("%w: got %d for %d texts", ErrScoreCount, len(scores), len(texts))
		}
	}

	weights := make([]float64, len(docs))
	res.Documents = make([]DocumentResult, len(docs))
	for i, d := range docs {
		keywords := a.impact.MatchedKeywords(d.Text)
		impact := ImpactWeight(scores[i], len(keywords) > 0)
		weights[i] = EffectiveWeight(recency[i], impact)
		res.Documents[i] = DocumentResult{
			Document:       d,
			Score:          scores[i],
			RecencyWeight:  recency[i],
			ImpactWeight:   impact,
			Weight:         weights[i],
			ImpactKeywords: keywords,
		}
	}
	res.Stats.Scored = len(docs)

	components, err := ComputeIndex(scores, weights)
	if err != nil {
		return nil, fmt.Errorf("compute index: %w", err)
	}
	res.Components = components

	a.log.Info("analysis complete",
		slog.String("run_id", res.RunID),
		slog.Int("input", res.Stats.Input),
		slog.Int("stale", res.Stats.Stale),
		slog.Int("empty", res.Stats.Empty),
		slog.Int("duplicate", res.Stats.Duplicate),
		slog.Int("scored", res.Stats.Scored),
		slog.Float64("gsi", res.GSI),
		slog.String("classification", string(res.Classification)),
	)
	return res, nil
}
