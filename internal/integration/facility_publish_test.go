//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/bh-network-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/bh-network-dashboard/internal/config"
	"github.com/couchcryptid/bh-network-dashboard/internal/domain"
	"github.com/couchcryptid/bh-network-dashboard/internal/facility"
	"github.com/couchcryptid/bh-network-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFacilityTopic = "test-facility-locations"

const facilityHeader = "NPI,Group Name,Street Address,City,State,Zip,Latitude,Longitude,is_substance_abuse_rehab,is_sud_rehab_clinic\n"

// publishedFacility is a message read back from the facility topic.
type publishedFacility struct {
	Record   domain.FacilityRecord
	Category string
	Key      string
	Headers  map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedFacility {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from facility topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	var body struct {
		domain.FacilityRecord
		Category string `json:"category"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &body), "unmarshal facility message")

	return publishedFacility{
		Record:   body.FacilityRecord,
		Category: body.Category,
		Key:      string(msg.Key),
		Headers:  headers,
	}
}

// TestFacilityLoadAndPublish loads a facility directory from disk and round-trips
// every retained record through Kafka.
func TestFacilityLoadAndPublish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testFacilityTopic)

	dir := t.TempDir()
	writeFacilityFile(t, dir, "a_texas.csv", facilityHeader+
		"1111111111,Hope House,12 Oak Ave,Austin,TX,78701.0,30.26,-97.74,1,0\n"+
		"2222222222,Both Center,1 Main St,Dallas,TX,75201,32.77,-96.79,true,TRUE\n"+
		"3333333333,,No Name Rd,Waco,TX,76701,31.55,-97.14,1,1\n")
	writeFacilityFile(t, dir, "b_broken.csv", "NPI,Group Name,Latitude,Longitude\n4444444444,Nowhere,1,1\n")
	writeFacilityFile(t, dir, "c_oklahoma.csv", facilityHeader+
		"5555555555,River Clinic,9 River Rd,Tulsa,OK,74103,36.15,-95.99,0,1\n")

	loadedAt := time.Date(2025, time.May, 1, 8, 30, 0, 0, time.UTC)
	metrics := observability.NewMetricsForTesting()
	loader := facility.NewLoader(discardLogger(), metrics, clockwork.NewFakeClockAt(loadedAt))

	res, err := loader.Load(ctx, dir)
	require.NoError(t, err)
	require.Len(t, res.Facilities, 3)
	require.Len(t, res.Skipped, 1)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaFacilityTopic: testFacilityTopic}
	writer := kafka.NewWriter(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.Publish(ctx, res))
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.FacilitiesPublished), 0)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testFacilityTopic,
		GroupID:     fmt.Sprintf("test-facilities-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	byKey := make(map[string]publishedFacility, len(res.Facilities))
	for len(byKey) < len(res.Facilities) {
		pf := readPublished(ctx, t, consumer)
		byKey[pf.Key] = pf
	}

	hope, ok := byKey["a_texas.csv:1111111111"]
	require.True(t, ok, "expected Hope House to be published")
	assert.Equal(t, "Hope House", hope.Record.Name)
	assert.Equal(t, "78701", hope.Record.Zip)
	assert.Equal(t, string(domain.CategorySubstanceAbuse), hope.Category)
	assert.Equal(t, string(domain.CategorySubstanceAbuse), hope.Headers["category"])
	assert.Equal(t, loadedAt.Format(time.RFC3339), hope.Headers["loaded_at"])

	both := byKey["a_texas.csv:2222222222"]
	assert.Equal(t, string(domain.CategoryBoth), both.Headers["category"])

	river := byKey["c_oklahoma.csv:5555555555"]
	assert.Equal(t, string(domain.CategorySUDClinic), river.Headers["category"])
	assert.Equal(t, domain.Geo{Lat: 36.15, Lon: -95.99}, river.Record.Geo)

	for key := range byKey {
		assert.NotContains(t, key, "b_broken.csv", "skipped files must not publish")
	}
}

// TestPublishEmptyDirectory verifies that a directory without usable rows
// publishes nothing.
func TestPublishEmptyDirectory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testFacilityTopic)

	dir := t.TempDir()
	writeFacilityFile(t, dir, "only_header.csv", facilityHeader)

	metrics := observability.NewMetricsForTesting()
	res, err := facility.NewLoader(discardLogger(), metrics, nil).Load(ctx, dir)
	require.NoError(t, err)
	require.True(t, res.Empty())

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaFacilityTopic: testFacilityTopic}
	writer := kafka.NewWriter(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.Publish(ctx, res))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testFacilityTopic,
		GroupID:     fmt.Sprintf("test-empty-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no messages on the facility topic")
}
