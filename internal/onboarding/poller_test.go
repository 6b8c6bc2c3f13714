package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferndesk/portal-checkout/internal/repository"
)

type MockSource struct {
	Events    []*repository.OutboxEvent
	GetErr    error
	MarkErr   error
	Processed []int64
}

func (m *MockSource) GetUnprocessedEvents(_ context.Context, _ int) ([]*repository.OutboxEvent, error) {
	return m.Events, m.GetErr
}

func (m *MockSource) MarkEventProcessed(_ context.Context, id int64) error {
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.Processed = append(m.Processed, id)
	return nil
}

type MockWriter struct {
	Written []kafkaGo.Message
	Err     error
}

func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.Written = append(m.Written, msgs...)
	return nil
}

func testEvent(id int64) *repository.OutboxEvent {
	return &repository.OutboxEvent{
		ID:          id,
		AggregateID: "settlement-abc",
		EventType:   repository.EventTypeSettled,
		Payload:     []byte(`{"settlement_id":"settlement-abc","client_id":"client-1","tier":"growth","final_amount":"1077"}`),
		CreatedAt:   time.Now(),
	}
}

func TestProcessUnpublishedEvents_PublishesAndMarks(t *testing.T) {
	source := &MockSource{Events: []*repository.OutboxEvent{testEvent(1), testEvent(2)}}
	writer := &MockWriter{}
	poller := &Poller{tick: time.Second, batchSize: 100, source: source, writer: writer, logger: zerolog.Nop()}

	poller.processUnpublishedEvents(context.Background())

	require.Len(t, writer.Written, 2)
	assert.Equal(t, []byte("settlement-abc"), writer.Written[0].Key)
	assert.Equal(t, []int64{1, 2}, source.Processed)

	require.Len(t, writer.Written[0].Headers, 1)
	assert.Equal(t, "event_type", writer.Written[0].Headers[0].Key)
	assert.Equal(t, []byte(repository.EventTypeSettled), writer.Written[0].Headers[0].Value)
}

func TestProcessUnpublishedEvents_PublishFailureLeavesEventUnprocessed(t *testing.T) {
	source := &MockSource{Events: []*repository.OutboxEvent{testEvent(1)}}
	writer := &MockWriter{Err: errors.New("broker unavailable")}
	poller := &Poller{tick: time.Second, batchSize: 100, source: source, writer: writer, logger: zerolog.Nop()}

	poller.processUnpublishedEvents(context.Background())

	assert.Empty(t, source.Processed, "unpublished events must stay in the outbox")
}

func TestProcessUnpublishedEvents_MarkFailureDoesNotLoseEvent(t *testing.T) {
	source := &MockSource{Events: []*repository.OutboxEvent{testEvent(1)}, MarkErr: errors.New("db down")}
	writer := &MockWriter{}
	poller := &Poller{tick: time.Second, batchSize: 100, source: source, writer: writer, logger: zerolog.Nop()}

	poller.processUnpublishedEvents(context.Background())

	// The event published but stays unmarked; the next tick republishes it.
	// At-least-once delivery, deduped downstream on settlement id.
	require.Len(t, writer.Written, 1)
	assert.Empty(t, source.Processed)
}

func TestProcessUnpublishedEvents_SourceFailure(t *testing.T) {
	source := &MockSource{GetErr: errors.New("query failed")}
	writer := &MockWriter{}
	poller := &Poller{tick: time.Second, batchSize: 100, source: source, writer: writer, logger: zerolog.Nop()}

	poller.processUnpublishedEvents(context.Background())

	assert.Empty(t, writer.Written)
}
