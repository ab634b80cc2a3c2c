package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/parking-ticket-explorer/internal/config"
	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInteraction() domain.Interaction {
	start := time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC)
	return domain.Interaction{
		SessionID: "5f0c1d2e-0000-4000-8000-000000000001",
		EventType: "time_range_brushed",
		Event:     []byte(`{"type":"time_range_brushed","start":"2017-03-01","end":"2017-03-31"}`),
		State: domain.FilterState{
			Zip:       "19102",
			TimeRange: &domain.TimeRange{Start: start, End: start.AddDate(0, 0, 30)},
		},
		Summary:    "ZIP 19102 | Period 2017-03-01 to 2017-03-31",
		OccurredAt: time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	rec := testInteraction()

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte(rec.SessionID), msg.Key)
	assert.Equal(t, rec.OccurredAt, msg.Time)
	assert.Contains(t, string(msg.Value), `"event_type":"time_range_brushed"`)
	assert.Contains(t, string(msg.Value), `"zip":"19102"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("time_range_brushed"), msg.Headers[0].Value)
	assert.Equal(t, "occurred_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-04-26T15:10:00Z"), msg.Headers[1].Value)
}

func TestDecodeInteraction(t *testing.T) {
	rec := testInteraction()
	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	got, err := DecodeInteraction(msg)
	require.NoError(t, err)
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, rec.State, got.State)
	assert.JSONEq(t, string(rec.Event), string(got.Event))

	_, err = DecodeInteraction(kafkago.Message{Value: []byte("{")})
	require.Error(t, err)
}

func TestNewWriter_Config(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:       []string{"broker1:9092", "broker2:9092"},
		KafkaTopic:         "parking-filter-events",
		BatchSize:          25,
		BatchFlushInterval: 250 * time.Millisecond,
	}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, "parking-filter-events", w.writer.Topic)
	assert.Equal(t, 25, w.writer.BatchSize)
	assert.Equal(t, 250*time.Millisecond, w.writer.BatchTimeout)
	assert.IsType(t, &kafkago.Hash{}, w.writer.Balancer)
}

func TestPublishBatch_Empty(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaTopic: "unused"}, slog.Default())
	t.Cleanup(func() { _ = w.Close() })
	require.NoError(t, w.PublishBatch(context.Background(), nil))
}
