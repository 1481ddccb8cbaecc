package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/epi-series-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("req-1"),
		Value:     []byte(`{"chart":"daily_cases","regions":["Peru"]}`),
		Topic:     "chart-queries",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "reply_to", Value: []byte("dashboard")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("req-1"), raw.Key)
	assert.JSONEq(t, `{"chart":"daily_cases","regions":["Peru"]}`, string(raw.Value))
	assert.Equal(t, "chart-queries", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "dashboard", raw.Headers["reply_to"])
	assert.Nil(t, raw.Commit)
}

func TestToMessage(t *testing.T) {
	event := domain.OutputEvent{
		Key:   []byte("req-1"),
		Value: []byte(`{"status":"ok"}`),
		Headers: map[string]string{
			"status":      "ok",
			"chart":       "daily_cases",
			"computed_at": "2020-04-01T12:00:00Z",
		},
	}

	msg := toMessage(event)

	assert.Equal(t, []byte("req-1"), msg.Key)
	assert.Equal(t, event.Value, msg.Value)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "chart", msg.Headers[0].Key)
	assert.Equal(t, []byte("daily_cases"), msg.Headers[0].Value)
	assert.Equal(t, "computed_at", msg.Headers[1].Key)
	assert.Equal(t, "status", msg.Headers[2].Key)
	assert.Equal(t, []byte("ok"), msg.Headers[2].Value)
}

func TestToMessage_RoundTripsThroughRawEvent(t *testing.T) {
	resp := domain.QueryResponse{RequestID: "req-9", Status: domain.StatusError, ComputedAt: time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC),
		Error: &domain.ErrorBody{Kind: "unknown_region", Message: "unknown region"}}
	out, err := domain.SerializeResponse(resp)
	require.NoError(t, err)

	raw := mapMessageToRawEvent(toMessage(out))
	assert.Equal(t, out.Headers, raw.Headers)
	assert.Equal(t, out.Key, raw.Key)
}

func TestWriter_LoadBatchEmpty(t *testing.T) {
	w := &Writer{}
	assert.NoError(t, w.LoadBatch(context.Background(), nil))
}
