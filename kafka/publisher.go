package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/pkg/logger"
)

// Publisher sends import audit batches to Kafka
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

var _ domain.AuditSink = (*Publisher)(nil)

// NewPublisher creates a new Kafka publisher
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Msg("Kafka publisher initialized")

	return NewPublisherWithProducer(producer, topic), nil
}

// NewPublisherWithProducer wraps an existing producer
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	if topic == "" {
		topic = TopicImportAudit
	}
	return &Publisher{producer: producer, topic: topic}
}

// RecordBatch publishes an import.batch_recorded event keyed by job id, so
// batches of one job stay ordered on a single partition
func (p *Publisher) RecordBatch(ctx context.Context, batch domain.AuditBatch) error {
	tracer := otel.Tracer("kafka-publisher")
	ctx, span := tracer.Start(ctx, "kafka.publish.import_batch_recorded",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topic),
			attribute.String("messaging.destination_kind", "topic"),
			attribute.String("event.type", EventTypeImportBatchRecorded),
			attribute.String("ledger.job_id", batch.JobID),
			attribute.String("ledger.import_id", batch.ImportID),
			attribute.Int("ledger.batch_offset", batch.Offset),
		),
	)
	defer span.End()

	event := ImportBatchRecordedEvent{
		EventID:    "evt_" + uuid.NewString(),
		EventType:  EventTypeImportBatchRecorded,
		BatchID:    batch.BatchID,
		ImportID:   batch.ImportID,
		JobID:      batch.JobID,
		Strategy:   batch.Strategy,
		Offset:     batch.Offset,
		TupleCount: len(batch.Tuples),
		ErrorCount: len(batch.Errors),
		Tuples:     batch.Tuples,
		Errors:     batch.Errors,
		Timestamp:  batch.Timestamp,
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	span.SetAttributes(attribute.String("event.id", event.EventID))

	eventBytes, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(batch.JobID),
		Value:   sarama.ByteEncoder(eventBytes),
		Headers: messageHeaders(ctx, EventTypeImportBatchRecorded, event.EventID),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send message")
		logger.Error(ctx).
			Err(err).
			Str("topic", p.topic).
			Str("job_id", batch.JobID).
			Str("batch_id", batch.BatchID).
			Msg("Failed to publish audit batch")
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	span.SetStatus(codes.Ok, "Event published successfully")

	logger.Debug(ctx).
		Str("event_id", event.EventID).
		Str("topic", p.topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Str("job_id", batch.JobID).
		Int("tuples", event.TupleCount).
		Int("errors", event.ErrorCount).
		Msg("Audit batch published")

	return nil
}

// messageHeaders carries the event type and id plus the W3C trace context
func messageHeaders(ctx context.Context, eventType, eventID string) []sarama.RecordHeader {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(eventType)},
		{Key: []byte("event_id"), Value: []byte(eventID)},
	}
	for key, value := range carrier {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte(key),
			Value: []byte(value),
		})
	}
	return headers
}

// Close closes the Kafka producer
func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
