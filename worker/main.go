package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/config"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/dedupe"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/elasticsearch"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/logger"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/models"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/processing"
)

const dlqAttempts = 5

var (
	// errEmptyArticle marks payloads with nothing to score.
	errEmptyArticle = errors.New("article has no title, description or content")
	// errDLQUnavailable stops the consumer before a later commit can skip a
	// message that never reached the dead-letter topic.
	errDLQUnavailable = errors.New("dead-letter write failed")
)

// rawArticle is the payload published by the news fetcher.
type rawArticle struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Timestamp   string `json:"timestamp"`
	PublishedAt string `json:"publishedAt"`
	Source      any    `json:"source"`
}

type articleIndexer interface {
	IndexArticle(ctx context.Context, doc models.Article) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	log := logger.New("worker")
	if err := config.LoadDotEnv(); err != nil {
		log.Warn("load .env", slog.Any("err", err))
	}

	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := esClient.EnsureIndex(ctx); err != nil {
		log.Error("ensure index", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := &kafka.Writer{
		Addr:        kafka.TCP(cfg.KafkaBrokers...),
		Topic:       dlqTopic,
		MaxAttempts: 3,
	}
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
		slog.String("index", cfg.ElasticsearchIndex),
	)

	if err := consume(ctx, log, reader, dlqWriter, esClient, cache, time.Second); err != nil {
		log.Error("consumer stopped", slog.Any("err", err))
		reader.Close()
		dlqWriter.Close()
		os.Exit(1)
	}
}

// consume fetches, processes and commits messages one at a time until ctx is
// done. Offsets are cumulative per partition, so a message that could be
// neither processed nor dead-lettered stops the loop: committing anything
// after it would skip it for good.
func consume(ctx context.Context, log *slog.Logger, reader messageReader, dlq messageWriter, indexer articleIndexer, cache *dedupe.Cache, dlqBackoff time.Duration) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return nil
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, indexer, cache, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if !sendToDLQ(ctx, log, dlq, msg, err, dlqBackoff) {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: partition %d offset %d", errDLQUnavailable, msg.Partition, msg.Offset)
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// processMessage turns one Kafka payload into a stored article. Undated
// articles are dropped without error since they can never weigh on the index.
func processMessage(ctx context.Context, log *slog.Logger, indexer articleIndexer, cache *dedupe.Cache, msg kafka.Message) error {
	var payload rawArticle
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	article := models.Article{
		URL:         strings.TrimSpace(payload.URL),
		Title:       processing.CleanText(payload.Title),
		Description: processing.CleanText(payload.Description),
		Content:     processing.CleanText(payload.Content),
		Source:      sourceName(payload.Source),
	}
	if processing.ArticleText(article) == "" {
		return errEmptyArticle
	}

	rawTS := payload.Timestamp
	if strings.TrimSpace(rawTS) == "" {
		rawTS = payload.PublishedAt
	}
	article.Timestamp = processing.NormalizeTimestamp(rawTS)
	if article.Timestamp == "" {
		log.Debug("dropping undated article", slog.String("url", article.URL), slog.String("timestamp", rawTS))
		return nil
	}

	article.ID = processing.DocumentID(article)
	if article.ID == "" {
		article.ID = uuid.NewString()
	}

	if cache.IsSeen(article.ID) {
		log.Debug("duplicate article", slog.String("id", article.ID))
		return nil
	}

	if err := indexer.IndexArticle(ctx, article); err != nil {
		return err
	}

	cache.MarkSeen(article.ID)
	log.Info("indexed article", slog.String("id", article.ID), slog.String("title", article.Title))
	return nil
}

// sourceName accepts both a plain string and the NewsAPI {"id","name"} object.
func sourceName(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case map[string]any:
		if name, ok := s["name"].(string); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
		if id, ok := s["id"].(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

// sendToDLQ forwards a failed message with its error context, retrying with
// exponential backoff. It reports whether the message was handed off.
func sendToDLQ(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message, cause error, backoff time.Duration) bool {
	headers := make([]kafka.Header, 0, len(msg.Headers)+4)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	)
	dlqMsg := kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}

	for attempt := range dlqAttempts {
		err := w.WriteMessages(ctx, dlqMsg)
		if err == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		log.Warn("DLQ write failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
		backoff *= 2
	}

	log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}
