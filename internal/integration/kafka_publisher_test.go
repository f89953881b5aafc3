//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/faa"
	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/kafka"
	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/store"
	"github.com/cwmauze/genesys-waypoint-tools/internal/config"
	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"
	"github.com/cwmauze/genesys-waypoint-tools/internal/fixedwidth"
	"github.com/cwmauze/genesys-waypoint-tools/internal/fixture"
	"github.com/cwmauze/genesys-waypoint-tools/internal/observability"
	"github.com/cwmauze/genesys-waypoint-tools/internal/pipeline"

	jsoniter "github.com/json-iterator/go"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "faa-dataset-updates-test"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("faadb-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	brokers, err := ctr.Brokers(ctx)
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
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// readUpdates reads n events from the start of the topic.
func readUpdates(ctx context.Context, t *testing.T, broker string, n int) ([]domain.DatasetUpdate, []kafkago.Message) {
	t.Helper()
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MaxWait:   500 * time.Millisecond,
	})
	t.Cleanup(func() { _ = reader.Close() })

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	updates := make([]domain.DatasetUpdate, 0, n)
	msgs := make([]kafkago.Message, 0, n)
	for len(updates) < n {
		msg, err := reader.ReadMessage(readCtx)
		require.NoError(t, err, "read from topic")
		var u domain.DatasetUpdate
		require.NoError(t, json.Unmarshal(msg.Value, &u))
		updates = append(updates, u)
		msgs = append(msgs, msg)
	}
	return updates, msgs
}

// publisherSite serves a synthetic FAA publisher built from the sample records.
func publisherSite(t *testing.T, cycle domain.Cycle) *httptest.Server {
	t.Helper()
	b := fixture.NewBuilder(fixedwidth.DefaultCatalog())

	var apt, nav, fix, dof []string
	for _, a := range fixture.SampleAirports {
		apt = append(apt, b.AirportLine(a))
	}
	for _, n := range fixture.SampleNavaids {
		nav = append(nav, b.NavaidLine(n))
	}
	for _, f := range fixture.SampleFixes {
		fix = append(fix, b.FixLine(f))
	}
	for _, o := range fixture.SampleObstacles {
		dof = append(dof, b.ObstacleLine(o))
	}
	nasr, err := fixture.Zip(map[string][]byte{
		"APT.txt": fixture.NASRFile(apt...),
		"NAV.txt": fixture.NASRFile(nav...),
		"FIX.txt": fixture.NASRFile(fix...),
	})
	require.NoError(t, err)
	dofZip, err := fixture.Zip(map[string][]byte{"DOF.DAT": fixture.DOFFile(cycle.Stamp(), dof...)})
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /nasr/{date}/subscription.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(nasr)
	})
	mux.HandleFunc("GET /landing/{date}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<a href="/nasr/`+r.PathValue("date")+`/subscription.zip">Subscription</a>`)
	})
	mux.HandleFunc("GET /dof/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<a href="/dof/DAILY_DOF_DAT.zip">DOF</a>`)
	})
	mux.HandleFunc("GET /dof/DAILY_DOF_DAT.zip", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(dofZip)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestPublisher verifies the adapter round-trips dataset events through Kafka
// with the run ID as key and the routing headers set.
func TestPublisher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	pub := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	at := time.Date(2026, time.February, 19, 9, 0, 0, 0, time.UTC)
	sent := []domain.DatasetUpdate{
		{EventType: domain.EventDatasetUpdated, RunID: "run-1", Artifact: store.ObstaclesFile, Cycle: "2026-02-19", Records: 2, Checksum: "00000000000000ab", UpdatedAt: at},
		{EventType: domain.EventDatasetUpdated, RunID: "run-1", Artifact: store.AirportsFile, Cycle: "2026-02-19", Records: 4, Held: true, UpdatedAt: at},
	}
	require.NoError(t, pub.Publish(ctx, sent))

	got, msgs := readUpdates(ctx, t, broker, len(sent))
	assert.Equal(t, sent, got)
	for i, msg := range msgs {
		assert.Equal(t, "run-1", string(msg.Key))
		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, domain.EventDatasetUpdated, headers["event_type"])
		assert.Equal(t, sent[i].Artifact, headers["artifact"])
		assert.Equal(t, "2026-02-19T09:00:00Z", headers["updated_at"])
	}
}

// TestPipelinePublishesRun runs a full harvest against a synthetic publisher
// and checks that every persisted artifact is announced.
func TestPipelinePublishesRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cycle := domain.CurrentCycle()
	site := publisherSite(t, cycle)

	cfg := &config.Config{
		OutputDir:           t.TempDir(),
		WorkDir:             t.TempDir(),
		UserAgent:           "faadb-integration",
		PublisherHost:       site.URL,
		NASRSubscriptionURL: site.URL + "/nasr/%s/subscription.zip",
		NASRLandingURL:      site.URL + "/landing/%s",
		DOFLandingURL:       site.URL + "/dof/",
		PageTimeout:         5 * time.Second,
		DownloadTimeout:     10 * time.Second,
		FailsafeAllFamilies: true,
		KafkaBrokers:        []string{broker},
		KafkaTopic:          testTopic,
	}
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	client := faa.NewClient(cfg, logger, metrics)
	pub := kafka.NewPublisher(cfg, logger)
	t.Cleanup(func() { _ = pub.Close() })

	st := store.New(cfg.OutputDir, logger)
	p := pipeline.New(pipeline.OptionsFromConfig(cfg), pipeline.Stages{
		Locator:   faa.NewLocator(client, cfg.PublisherHost, cfg.PageTimeout),
		Fetcher:   faa.NewFetcher(client, cfg.DownloadTimeout, logger),
		Publisher: pub,
		Store:     st,
		Catalog:   fixedwidth.DefaultCatalog(),
	}, logger, metrics)

	rep, err := p.Run(ctx, pipeline.VariantAll)
	require.NoError(t, err)
	require.Empty(t, rep.Failures)
	require.Len(t, rep.Updates, 5)

	got, _ := readUpdates(ctx, t, broker, len(rep.Updates))
	byArtifact := map[string]domain.DatasetUpdate{}
	for _, u := range got {
		assert.Equal(t, rep.RunID, u.RunID)
		byArtifact[u.Artifact] = u
	}
	assert.Equal(t, 9, byArtifact[store.MasterFile].Records)
	assert.Equal(t, 2, byArtifact[store.ObstaclesFile].Records)
	assert.Equal(t, 4, byArtifact[store.AirportsFile].Records)

	sum, err := st.FileChecksum(store.MasterFile)
	require.NoError(t, err)
	assert.Equal(t, sum, byArtifact[store.MasterFile].Checksum)
}
