// Package kafka publishes proximity alerts to the notification topic,
// where downstream push-delivery workers consume them.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/plazafinder/mall-radar/internal/config"
	"github.com/plazafinder/mall-radar/internal/notify"
)

// AlertWriter produces proximity alerts to a Kafka topic.
// It implements notify.Dispatcher.
type AlertWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the configured alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &AlertWriter{writer: w, logger: logger}
}

// Dispatch serializes and publishes one proximity alert. Messages are
// keyed by user so a user's alerts stay ordered within a partition.
func (w *AlertWriter) Dispatch(ctx context.Context, alert notify.ProximityAlert) error {
	msg, err := serializeToMessage(alert)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ProximityAlert into a Kafka message.
func serializeToMessage(alert notify.ProximityAlert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize proximity alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.UserID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "venue_id", Value: []byte(alert.VenueID)},
			{Key: "alerted_at", Value: []byte(alert.At.Format(time.RFC3339))},
		},
	}, nil
}
