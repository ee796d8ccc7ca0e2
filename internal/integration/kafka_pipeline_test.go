//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/energex-outages-etl/internal/adapter/energex"
	"github.com/couchcryptid/energex-outages-etl/internal/adapter/kafka"
	"github.com/couchcryptid/energex-outages-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/energex-outages-etl/internal/config"
	"github.com/couchcryptid/energex-outages-etl/internal/domain"
	"github.com/couchcryptid/energex-outages-etl/internal/observability"
	"github.com/couchcryptid/energex-outages-etl/internal/pipeline"
)

const testTopicPrefix = "test.energex."

const outagesPage = `<html><body>
<div id="unplanned-outages-wrapper">
<table id="unplanned-outages-table">
<caption>Last updated: 1 March 2021 9:00am Total affected customers: 57</caption>
<tbody>
<tr title="Outage 101">
  <td class="region">BRISBANE CITY</td><td class="suburb">NEW FARM</td>
  <td class="cust">42</td><td class="cause">Emergency repairs</td>
  <td class="time" data-timestamp="2021-03-01T08:30:00+10:00">8:30am</td>
</tr>
<tr title="Outage 102">
  <td class="region">LOGAN</td><td class="suburb">SLACKS CREEK</td>
  <td class="cust">15</td><td class="cause">Vegetation</td>
  <td class="time" data-timestamp="2021-03-01T08:45:00+10:00">8:45am</td>
</tr>
</tbody>
</table>
</div>
</body></html>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("energex-etl-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func newConsumer(t *testing.T, broker, topic string) *kafkago.Reader {
	t.Helper()
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = r.Close() })
	return r
}

type publishedRow struct {
	Key     string
	Headers map[string]string
	Body    map[string]any
}

func readRow(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedRow {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read published row")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	return publishedRow{Key: string(msg.Key), Headers: headers, Body: body}
}

func energexServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/demand.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "2750\n")
	})
	mux.HandleFunc("/outages", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, outagesPage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestKafkaWriter verifies a saved row is published to its table topic.
func TestKafkaWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopicPrefix+domain.TableDemand)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopicPrefix: testTopicPrefix}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	now := time.Date(2021, time.March, 1, 9, 5, 0, 0, domain.Brisbane)
	rec := domain.ClassifyDemand("1800", now)
	require.NoError(t, writer.Save(ctx, domain.TableDemand, domain.KeyColumns, rec.Row()))

	got := readRow(ctx, t, newConsumer(t, broker, testTopicPrefix+domain.TableDemand))
	assert.Equal(t, "2021-03-01T09:05:00+10:00", got.Key)
	assert.Equal(t, "demand", got.Headers["table"])
	assert.Equal(t, "retrieved_at", got.Headers["keys"])
	assert.Equal(t, float64(1800), got.Body["demand"])
	assert.Equal(t, float64(2), got.Body["rating"])
}

// TestPipelineEndToEnd runs one job against a fake Energex site with both the
// SQLite store and the Kafka sink wired in.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	for _, table := range []string{domain.TableDemand, domain.TableData, domain.TableSummary} {
		createTopic(t, broker, testTopicPrefix+table)
	}

	srv := energexServer(t)
	cfg := &config.Config{
		DemandURL:        srv.URL + "/demand.txt",
		OutagesURL:       srv.URL + "/outages",
		DatabasePath:     filepath.Join(t.TempDir(), "data.sqlite"),
		FetchTimeout:     5 * time.Second,
		UserAgent:        "integration-test",
		KafkaBrokers:     []string{broker},
		KafkaTopicPrefix: testTopicPrefix,
	}

	db, err := sqlite.Open(cfg.DatabasePath, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2021, time.February, 28, 23, 5, 0, 0, time.UTC))
	p := pipeline.New(
		energex.NewClient(cfg, discardLogger()),
		pipeline.Stores{db, writer},
		discardLogger(),
		observability.NewMetricsForTesting(),
		clock,
	)

	report, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Outages)
	assert.Equal(t, 2750, report.Demand.Demand)
	require.NotNil(t, report.Summary.TotalCust)
	assert.Equal(t, 57, *report.Summary.TotalCust)

	demand := readRow(ctx, t, newConsumer(t, broker, testTopicPrefix+domain.TableDemand))
	assert.Equal(t, float64(2750), demand.Body["demand"])
	assert.Equal(t, float64(4), demand.Body["rating"])
	assert.Equal(t, "2021-03-01T09:05:00+10:00", demand.Body["retrieved_at"])

	data := newConsumer(t, broker, testTopicPrefix+domain.TableData)
	first := readRow(ctx, t, data)
	second := readRow(ctx, t, data)
	assert.Equal(t, "Outage 101", first.Body["title"])
	assert.Equal(t, "NEW FARM", first.Body["suburb"])
	assert.Equal(t, float64(42), first.Body["cust"])
	assert.Equal(t, "2021-03-01T08:30:00+10:00", first.Key)
	assert.Equal(t, "Outage 102", second.Body["title"])
	assert.Equal(t, "Vegetation", second.Body["cause"])

	summary := readRow(ctx, t, newConsumer(t, broker, testTopicPrefix+domain.TableSummary))
	assert.Equal(t, float64(57), summary.Body["total_cust"])
	assert.Equal(t, "2021-03-01T09:00:00+10:00", summary.Body["updated_at"])
}
