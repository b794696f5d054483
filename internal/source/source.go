package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/logger"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/models"
)

// Source materializes the news snapshot for one analyzer run.
type Source interface {
	Load(ctx context.Context) ([]models.Article, error)
}

// File reads a JSON array of articles from disk. A missing file is an empty
// snapshot.
type File struct {
	Path string
}

// Load implements Source.
func (f File) Load(_ context.Context) ([]models.Article, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Article{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read news file: %w", err)
	}

	var articles []models.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("decode news file %s: %w", f.Path, err)
	}
	if articles == nil {
		articles = []models.Article{}
	}
	return articles, nil
}

// ArticleSearcher is the slice of the Elasticsearch client the analyzer needs.
type ArticleSearcher interface {
	RecentArticles(ctx context.Context, since time.Time, limit int) ([]models.Article, error)
}

// Elastic loads every article published inside the lookback window, newest
// first, up to Limit.
type Elastic struct {
	Searcher ArticleSearcher
	Lookback time.Duration
	Limit    int
	Now      func() time.Time
	Log      *slog.Logger
}

// Load implements Source. A result of exactly Limit articles means older
// articles inside the window were cut off, which is logged as a warning.
func (e Elastic) Load(ctx context.Context) ([]models.Article, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	log := e.Log
	if log == nil {
		log = logger.Discard()
	}

	since := now().Add(-e.Lookback)
	articles, err := e.Searcher.RecentArticles(ctx, since, e.Limit)
	if err != nil {
		return nil, fmt.Errorf("load recent articles: %w", err)
	}
	if e.Limit > 0 && len(articles) >= e.Limit {
		log.Warn("news snapshot truncated to limit, older articles in the lookback window were skipped",
			slog.Int("limit", e.Limit),
			slog.Time("since", since),
		)
	}
	return articles, nil
}
