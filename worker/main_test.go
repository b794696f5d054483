package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/dedupe"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/models"
)

type stubIndexer struct {
	docs []models.Article
	err  error
}

func (s *stubIndexer) IndexArticle(_ context.Context, doc models.Article) error {
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, doc)
	return nil
}

type stubWriter struct {
	failures int
	written  []kafka.Message
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("broker unavailable")
	}
	s.written = append(s.written, msgs...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func message(t *testing.T, payload any) kafka.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestProcessMessageIndexesArticle(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)
	idx := &stubIndexer{}

	msg := message(t, map[string]any{
		"url":         "https://example.com/gold",
		"title":       "Gold &amp; the Fed",
		"description": "  Bullion   rallies ",
		"publishedAt": "2024-01-02T17:04:05+02:00",
		"source":      map[string]any{"id": nil, "name": "Reuters"},
	})

	require.NoError(t, processMessage(context.Background(), discardLogger(), idx, cache, msg))
	require.Len(t, idx.docs, 1)

	doc := idx.docs[0]
	require.Equal(t, "https://example.com/gold", doc.ID)
	require.Equal(t, "Gold & the Fed", doc.Title)
	require.Equal(t, "Bullion rallies", doc.Description)
	require.Equal(t, "2024-01-02T15:04:05Z", doc.Timestamp)
	require.Equal(t, "Reuters", doc.Source)

	require.NoError(t, processMessage(context.Background(), discardLogger(), idx, cache, msg))
	require.Len(t, idx.docs, 1, "duplicates are skipped")
}

func TestProcessMessageDropsUndated(t *testing.T) {
	idx := &stubIndexer{}
	msg := message(t, map[string]any{"title": "Gold steady", "timestamp": "sometime"})

	require.NoError(t, processMessage(context.Background(), discardLogger(), idx, dedupe.NewCache(10, time.Hour), msg))
	require.Empty(t, idx.docs)
}

func TestProcessMessageErrors(t *testing.T) {
	cache := dedupe.NewCache(10, time.Hour)

	err := processMessage(context.Background(), discardLogger(), &stubIndexer{}, cache, kafka.Message{Value: []byte("{")})
	require.Error(t, err)

	err = processMessage(context.Background(), discardLogger(), &stubIndexer{}, cache,
		message(t, map[string]any{"title": "  ", "timestamp": "2024-01-02T15:04:05Z"}))
	require.ErrorIs(t, err, errEmptyArticle)

	boom := errors.New("es down")
	msg := message(t, map[string]any{"title": "Gold", "timestamp": "2024-01-02T15:04:05Z", "source": "rss"})
	err = processMessage(context.Background(), discardLogger(), &stubIndexer{err: boom}, cache, msg)
	require.ErrorIs(t, err, boom)

	idx := &stubIndexer{}
	require.NoError(t, processMessage(context.Background(), discardLogger(), idx, cache, msg))
	require.Len(t, idx.docs, 1, "failed articles are not marked seen")
	require.Len(t, idx.docs[0].ID, 40)
}

func TestSendToDLQ(t *testing.T) {
	w := &stubWriter{failures: 2}
	msg := kafka.Message{Partition: 3, Offset: 42, Value: []byte("bad")}

	ok := sendToDLQ(context.Background(), discardLogger(), w, msg, errors.New("decode payload"), time.Millisecond)
	require.True(t, ok)
	require.Len(t, w.written, 1)

	headers := map[string]string{}
	for _, h := range w.written[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "3", headers["original_partition"])
	require.Equal(t, "42", headers["original_offset"])
	require.Equal(t, "decode payload", headers["error"])
	require.Equal(t, []byte("bad"), w.written[0].Value)
}

func TestSendToDLQExhausted(t *testing.T) {
	w := &stubWriter{failures: dlqAttempts}
	ok := sendToDLQ(context.Background(), discardLogger(), w, kafka.Message{}, errors.New("x"), time.Microsecond)
	require.False(t, ok)
	require.Empty(t, w.written)
}

func TestSourceName(t *testing.T) {
	require.Equal(t, "rss", sourceName(" rss "))
	require.Equal(t, "Reuters", sourceName(map[string]any{"name": "Reuters"}))
	require.Equal(t, "reuters", sourceName(map[string]any{"id": "reuters", "name": ""}))
	require.Empty(t, sourceName(nil))
}

type stubReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (s *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(s.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	msg := s.msgs[0]
	s.msgs = s.msgs[1:]
	return msg, nil
}

func (s *stubReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		s.committed = append(s.committed, m.Offset)
	}
	return nil
}

func TestConsumeCommitsProcessedAndDeadLettered(t *testing.T) {
	good := message(t, map[string]any{"url": "https://example.com/a", "title": "Gold", "timestamp": "2024-01-02T15:04:05Z"})
	good.Offset = 1
	bad := kafka.Message{Offset: 2, Value: []byte("{")}

	reader := &stubReader{msgs: []kafka.Message{good, bad}}
	dlq := &stubWriter{}
	idx := &stubIndexer{}

	err := consume(context.Background(), discardLogger(), reader, dlq, idx, dedupe.NewCache(10, time.Hour), time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, reader.committed)
	require.Len(t, idx.docs, 1)
	require.Len(t, dlq.written, 1)
}

func TestConsumeStopsWhenDeadLetterUnavailable(t *testing.T) {
	bad := kafka.Message{Partition: 0, Offset: 5, Value: []byte("{")}
	later := message(t, map[string]any{"url": "https://example.com/b", "title": "Gold", "timestamp": "2024-01-02T15:04:05Z"})
	later.Offset = 6

	reader := &stubReader{msgs: []kafka.Message{bad, later}}
	idx := &stubIndexer{}

	err := consume(context.Background(), discardLogger(), reader, &stubWriter{failures: dlqAttempts}, idx,
		dedupe.NewCache(10, time.Hour), time.Microsecond)
	require.ErrorIs(t, err, errDLQUnavailable)
	require.Empty(t, reader.committed, "later offsets must not be committed past the failed message")
	require.Empty(t, idx.docs)
	require.Len(t, reader.msgs, 1)
}
