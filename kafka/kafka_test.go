package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/repository/memory"
	"github.com/tair/part-ledger/internal/ledger/store"
	"github.com/tair/part-ledger/internal/ledger/usecase/command"
)

func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	return cfg
}

func TestPublisher_RecordBatch(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig())
	pub := NewPublisherWithProducer(producer, "audit")

	batch := domain.AuditBatch{
		BatchID:   "b-1",
		ImportID:  "i-1",
		JobID:     "JOB1",
		Strategy:  "merge",
		Offset:    0,
		Tuples:    []domain.Tuple{{PartNumber: "P1", Location: "A", Quantity: 2}},
		Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event ImportBatchRecordedEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.EventType != EventTypeImportBatchRecorded || event.JobID != "JOB1" || event.TupleCount != 1 {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	require.NoError(t, pub.RecordBatch(context.Background(), batch))
	require.NoError(t, pub.Close())
}

func TestPublisher_RecordBatchFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig())
	pub := NewPublisherWithProducer(producer, "")
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := pub.RecordBatch(context.Background(), domain.AuditBatch{JobID: "JOB1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestMessageHeaders(t *testing.T) {
	headers := messageHeaders(context.Background(), EventTypeImportBatchRecorded, "evt_1")
	require.GreaterOrEqual(t, len(headers), 2)
	assert.Equal(t, "event_type", string(headers[0].Key))
	assert.Equal(t, EventTypeImportBatchRecorded, string(headers[0].Value))
	assert.Equal(t, "evt_1", string(headers[1].Value))
}

func scanMessage(t *testing.T, eventType string, event any) *sarama.ConsumerMessage {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	msg := &sarama.ConsumerMessage{Topic: TopicScans, Value: value}
	if eventType != "" {
		msg.Headers = []*sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
			{Key: []byte("event_id"), Value: []byte("evt_1")},
		}
	}
	return msg
}

func TestConsumer_AppliesAssignmentEvents(t *testing.T) {
	ctx := context.Background()
	ledger := store.NewLedger(memory.NewLedgerRepository())
	_, _, err := ledger.EnsureJob(ctx, "JOB1", "job1.csv")
	require.NoError(t, err)
	_, err = ledger.UpsertCell(ctx, "JOB1", "P1", "A", 5, "")
	require.NoError(t, err)

	metrics := command.NewMetrics(prometheus.NewRegistry())
	consumer := newConsumer(nil, "group", []string{TopicScans})
	consumer.RegisterHandler(EventTypeAssignmentRequested,
		NewAssignmentEventHandler(command.NewAdjustAssignmentHandler(ledger, metrics)))
	h := &consumerGroupHandler{consumer: consumer}

	event := AssignmentRequestedEvent{JobID: "JOB1", PartNumber: "P1", Location: "A", Delta: 3}
	require.NoError(t, h.handleMessage(ctx, scanMessage(t, EventTypeAssignmentRequested, event)))
	event.Delta = 9
	require.NoError(t, h.handleMessage(ctx, scanMessage(t, EventTypeAssignmentRequested, event)))

	job, err := ledger.Job(ctx, "JOB1")
	require.NoError(t, err)
	assert.Equal(t, 5, job.Parts["P1"].Assigned["A"], "clamped to required")

	// unknown part is a benign miss
	event.PartNumber = "NOPE"
	assert.NoError(t, h.handleMessage(ctx, scanMessage(t, EventTypeAssignmentRequested, event)))

	// missing part number is rejected by the command
	event.PartNumber = ""
	assert.Error(t, h.handleMessage(ctx, scanMessage(t, EventTypeAssignmentRequested, event)))
}

func TestConsumer_RejectsMalformedMessages(t *testing.T) {
	ctx := context.Background()
	consumer := newConsumer(nil, "group", []string{TopicScans})
	h := &consumerGroupHandler{consumer: consumer}

	err := h.handleMessage(ctx, scanMessage(t, "", AssignmentRequestedEvent{}))
	assert.ErrorIs(t, err, errMissingEventType)

	err = h.handleMessage(ctx, scanMessage(t, EventTypeAssignmentRequested, AssignmentRequestedEvent{}))
	assert.ErrorIs(t, err, errNoHandler)

	consumer.RegisterHandler(EventTypeAssignmentRequested, func(context.Context, AssignmentRequestedEvent) error {
		return nil
	})
	bad := scanMessage(t, EventTypeAssignmentRequested, AssignmentRequestedEvent{})
	bad.Value = []byte("{not json")
	err = h.handleMessage(ctx, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal event")

	consumer.RegisterHandler("other.event", func(context.Context, AssignmentRequestedEvent) error { return nil })
	err = h.handleMessage(ctx, scanMessage(t, "other.event", AssignmentRequestedEvent{}))
	assert.Error(t, err)
}
