//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/plazafinder/mall-radar/internal/adapter/kafka"
	"github.com/plazafinder/mall-radar/internal/config"
	"github.com/plazafinder/mall-radar/internal/domain"
	"github.com/plazafinder/mall-radar/internal/notify"
	"github.com/plazafinder/mall-radar/internal/observability"
)

const testAlertTopic = "test-proximity-alerts"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-broker Kafka container and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type memorySubscribers struct{ subs []domain.Subscriber }

func (m *memorySubscribers) ListSubscribers(_ context.Context) ([]domain.Subscriber, error) {
	return m.subs, nil
}

type memoryMalls struct{ malls []domain.Mall }

func (m *memoryMalls) ListMalls(_ context.Context) ([]domain.Mall, error) {
	return m.malls, nil
}

// TestProximityAlertsEndToEnd runs a full check cycle against real Kafka:
// the checker ranks a subscriber's nearby malls, the AlertWriter publishes,
// and the consumer sees exactly the alerts inside the radius.
func TestProximityAlertsEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	cfg := &config.Config{
		KafkaBrokers:    []string{broker},
		KafkaAlertTopic: testAlertTopic,
	}

	writer := kafkaadapter.NewAlertWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	cooldown := notify.NewCooldownIndex(24*time.Hour, clock)

	cdmx := domain.GeoPoint{Lat: 19.4326, Lon: -99.1332}
	subs := &memorySubscribers{subs: []domain.Subscriber{
		{UserID: "u-1", Location: cdmx, RadiusKm: 10},
	}}
	malls := &memoryMalls{malls: []domain.Mall{
		{ID: "m-centro", Name: "Centro Plaza", Geo: cdmx},
		// ~6.3 km away, inside the radius.
		{ID: "m-norte", Name: "Plaza Norte Shopping", Geo: domain.GeoPoint{Lat: 19.4895, Lon: -99.1272}},
		// ~107 km away, outside.
		{ID: "m-puebla", Name: "Angelopolis Center", Geo: domain.GeoPoint{Lat: 19.0333, Lon: -98.2277}},
	}}

	checker := notify.NewChecker(subs, malls, writer, cooldown,
		discardLogger(), observability.NewMetricsForTesting(), 4, clock)
	require.NoError(t, checker.RunCycle(ctx))

	// A second cycle inside the cooldown window publishes nothing.
	require.NoError(t, checker.RunCycle(ctx))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertTopic,
		GroupID:     fmt.Sprintf("test-alerts-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	alerts := make([]notify.ProximityAlert, 0, 2)
	headers := make([]map[string]string, 0, 2)
	for len(alerts) < 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from alert topic")

		var alert notify.ProximityAlert
		require.NoError(t, json.Unmarshal(msg.Value, &alert))
		assert.Equal(t, alert.UserID, string(msg.Key))

		h := make(map[string]string, len(msg.Headers))
		for _, hdr := range msg.Headers {
			h[hdr.Key] = string(hdr.Value)
		}
		alerts = append(alerts, alert)
		headers = append(headers, h)
	}

	// Nearest first, Puebla excluded by the radius.
	assert.Equal(t, "m-centro", alerts[0].VenueID)
	assert.Equal(t, "m-norte", alerts[1].VenueID)
	assert.Equal(t, "Plaza Norte Shopping", alerts[1].VenueName)
	assert.InDelta(t, 6.3, alerts[1].DistanceKm, 0.5)

	for _, h := range headers {
		assert.NotEmpty(t, h["venue_id"])
		_, err := time.Parse(time.RFC3339, h["alerted_at"])
		assert.NoError(t, err, "alerted_at should be valid RFC3339")
	}

	// Verify the suppressed second cycle produced no extra message.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no third message on alert topic")
}
