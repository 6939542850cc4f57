package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cropadvisor/ports"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisherWithWriter(w, "crop-recommendations")

	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(), ports.RecommendationEvent{
		RecommendationID:  "rec-1",
		FarmerID:          "farmer-1",
		TopCrop:           "rice",
		ConfidencePercent: 70.5,
		ModelVersion:      "2024.1",
		Source:            "api",
		OccurredAt:        at,
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "farmer-1", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var decoded ports.RecommendationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ports.EventRecommendationGenerated, decoded.Type)
	assert.Equal(t, "rice", decoded.TopCrop)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, ports.EventRecommendationGenerated, string(msg.Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_KeysByRecommendationWithoutFarmer(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisherWithWriter(w, "t")

	require.NoError(t, p.Publish(context.Background(), ports.RecommendationEvent{RecommendationID: "rec-2"}))
	assert.Equal(t, "rec-2", string(w.messages[0].Key))
	assert.False(t, w.messages[0].Time.IsZero())
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("leader not available")
	p := newKafkaPublisherWithWriter(&recordingWriter{err: boom}, "crop-recommendations")

	err := p.Publish(context.Background(), ports.RecommendationEvent{RecommendationID: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "crop-recommendations")
}

// stalledWriter blocks like a writer retrying against an unreachable broker
type stalledWriter struct{}

func (stalledWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledWriter) Close() error { return nil }

func TestKafkaPublisher_BoundedByTimeout(t *testing.T) {
	p := newKafkaPublisherWithWriter(stalledWriter{}, "crop-recommendations")
	p.timeout = 50 * time.Millisecond

	start := time.Now()
	err := p.Publish(context.Background(), ports.RecommendationEvent{RecommendationID: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "t")
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, " ")
	assert.Error(t, err)

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "t")
	require.NoError(t, err)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, maxAttempts, w.MaxAttempts)
	assert.Equal(t, publishTimeout, p.timeout)
	assert.NoError(t, p.Close())
}

func TestNopPublisher(t *testing.T) {
	var p ports.EventPublisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), ports.RecommendationEvent{}))
	assert.NoError(t, p.Close())
}

type countingPublisher struct {
	events []ports.RecommendationEvent
	err    error
	closed bool
}

func (p *countingPublisher) Publish(_ context.Context, event ports.RecommendationEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func (p *countingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestFanout_DeliversToAllPublishers(t *testing.T) {
	failing := &countingPublisher{err: errors.New("broker down")}
	healthy := &countingPublisher{}
	f := NewFanout(failing, nil, healthy)

	err := f.Publish(context.Background(), ports.RecommendationEvent{RecommendationID: "r1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, failing.events, 1)
	assert.Len(t, healthy.events, 1)

	require.NoError(t, f.Close())
	assert.True(t, failing.closed)
	assert.True(t, healthy.closed)
}
