package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/bh-network-dashboard/internal/config"
	"github.com/couchcryptid/bh-network-dashboard/internal/domain"
	"github.com/couchcryptid/bh-network-dashboard/internal/facility"
	"github.com/couchcryptid/bh-network-dashboard/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes cleaned facility records to a Kafka topic.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured facility topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaFacilityTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// facilityMessage is the published payload: the record plus its derived category.
type facilityMessage struct {
	domain.FacilityRecord
	Category domain.Category `json:"category"`
	LoadedAt time.Time       `json:"loaded_at"`
}

// Publish sends every facility in the load result. An empty result publishes nothing.
func (w *Writer) Publish(ctx context.Context, res facility.LoadResult) error {
	if err := w.PublishBatch(ctx, res.Facilities, res.LoadedAt); err != nil {
		return err
	}
	if !res.Empty() {
		w.logger.Info("facilities published",
			"topic", w.writer.Topic,
			"facilities", len(res.Facilities),
			"dir", res.Dir,
		)
	}
	return nil
}

// PublishBatch serializes and publishes the records in a single
// WriteMessages call. Records sharing a key land on the same partition.
func (w *Writer) PublishBatch(ctx context.Context, records domain.Collection, loadedAt time.Time) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], loadedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish facilities: %w", err)
	}
	w.metrics.FacilitiesPublished.Add(float64(len(msgs)))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// messageKey identifies a facility within its source file. NPIs are not
// unique across files, so the file name is part of the key.
func messageKey(r domain.FacilityRecord) string {
	return r.SourceFile + ":" + r.NPI
}

// serializeToMessage marshals a FacilityRecord into a Kafka message.
func serializeToMessage(r domain.FacilityRecord, loadedAt time.Time) (kafkago.Message, error) {
	category := r.Category()
	data, err := json.Marshal(facilityMessage{FacilityRecord: r, Category: category, LoadedAt: loadedAt})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize facility %s: %w", r.NPI, err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(r)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(category)},
			{Key: "loaded_at", Value: []byte(loadedAt.Format(time.RFC3339))},
		},
	}, nil
}
