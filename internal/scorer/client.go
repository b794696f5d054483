package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/logger"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/sentiment"
)

var (
	// ErrEmptyResponse is returned when the model answers without scores.
	ErrEmptyResponse = errors.New("scorer returned no scores")
	// ErrMalformedResponse is returned when a 200 response cannot be decoded.
	ErrMalformedResponse = errors.New("scorer returned a malformed response")
)

// Config configures the HTTP scorer.
type Config struct {
	URL        string
	Token      string
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
}

// Client scores texts against a text-classification endpoint that speaks the
// Hugging Face inference protocol (FinBERT and friends).
type Client struct {
	http *http.Client
	cfg  Config
	log  *slog.Logger
}

type request struct {
	Inputs     []string       `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("scorer responded %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// New constructs a Client.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("scorer url is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
		log:  log,
	}, nil
}

// ScoreBatch scores texts in chunks of BatchSize. Either every text gets a
// score, in order, or an error is returned.
func (c *Client) ScoreBatch(ctx context.Context, texts []string) ([]sentiment.Score, error) {
	out := make([]sentiment.Score, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(texts))
		scores, err := c.scoreChunkWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("score texts %d-%d: %w", start, end-1, err)
		}
		out = append(out, scores...)
	}
	return out, nil
}

func (c *Client) scoreChunkWithRetry(ctx context.Context, texts []string) ([]sentiment.Score, error) {
	backoff := c.cfg.Backoff
	for attempt := 0; ; attempt++ {
		scores, err := c.scoreChunk(ctx, texts)
		if err == nil {
			return scores, nil
		}

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return nil, err
		}
		if permanent(err) || attempt >= c.cfg.MaxRetries {
			return nil, err
		}

		c.log.Warn("scorer request failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
}

// permanent reports errors that a retry would reproduce: the model answered,
// just not with one score per text.
func permanent(err error) bool {
	return errors.Is(err, ErrEmptyResponse) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, sentiment.ErrScoreCount)
}

func (c *Client) scoreChunk(ctx context.Context, texts []string) ([]sentiment.Score, error) {
	payload, err := json.Marshal(request{
		Inputs:     texts,
		Parameters: map[string]any{"top_k": 3, "truncation": true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &statusError{code: res.StatusCode, body: strings.TrimSpace(string(body))}
	}

	parsed, err := decodeLabels(res.Body)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, ErrEmptyResponse
	}
	if len(parsed) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d texts", sentiment.ErrScoreCount, len(parsed), len(texts))
	}

	scores := make([]sentiment.Score, len(parsed))
	for i, labels := range parsed {
		scores[i] = toScore(labels)
	}
	return scores, nil
}

// decodeLabels reads either the batched [[{label,score}]] shape or the flat
// [{label,score}] shape some servers return for a single input.
func decodeLabels(r io.Reader) ([][]labelScore, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	if trimmed := bytes.TrimSpace(raw[0]); len(trimmed) > 0 && trimmed[0] == '{' {
		single := make([]labelScore, len(raw))
		for i, item := range raw {
			if err := json.Unmarshal(item, &single[i]); err != nil {
				return nil, fmt.Errorf("%w: label %d: %w", ErrMalformedResponse, i, err)
			}
		}
		return [][]labelScore{single}, nil
	}

	out := make([][]labelScore, len(raw))
	for i, item := range raw {
		if err := json.Unmarshal(item, &out[i]); err != nil {
			return nil, fmt.Errorf("%w: labels %d: %w", ErrMalformedResponse, i, err)
		}
	}
	return out, nil
}

// toScore maps model labels onto the three confidences. FinBERT style
// LABEL_n names follow the positive, negative, neutral order.
func toScore(labels []labelScore) sentiment.Score {
	var s sentiment.Score
	for _, l := range labels {
		switch strings.ToLower(strings.TrimSpace(l.Label)) {
		case "positive", "pos", "label_0", "bullish":
			s.Positive = l.Score
		case "negative", "neg", "label_1", "bearish":
			s.Negative = l.Score
		case "neutral", "neu", "label_2":
			s.Neutral = l.Score
		}
	}
	return s
}
