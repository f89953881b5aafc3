package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/faa"
	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/store"
	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"
	"github.com/cwmauze/genesys-waypoint-tools/internal/fixedwidth"
	"github.com/cwmauze/genesys-waypoint-tools/internal/fixture"
	"github.com/cwmauze/genesys-waypoint-tools/internal/observability"
	"github.com/cwmauze/genesys-waypoint-tools/internal/pipeline"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	subscriptionURL = "https://nasr.test/%s/subscription.zip"
	landingURL      = "https://nasr.test/landing/%s"
	dofLandingURL   = "https://dof.test/"

	// Cycle effective on 2026-03-01.
	cycleDate = "2026-02-19"
	cycleID   = "2602"
)

// --- mocks ---

type mockLocator struct {
	links map[string]string
	err   error
}

func (m *mockLocator) Locate(_ context.Context, pageURL, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	link, ok := m.links[pageURL]
	if !ok {
		return "", faa.ErrArchiveNotFound
	}
	return link, nil
}

type mockFetcher struct {
	archives map[string][]byte
	fetched  []string
}

func (m *mockFetcher) FetchAndExtract(_ context.Context, url, dir string, wanted ...string) (map[string]string, error) {
	m.fetched = append(m.fetched, url)
	payload, ok := m.archives[url]
	if !ok {
		return nil, &faa.DownloadError{URL: url, StatusCode: 404}
	}
	return faa.Extract(payload, dir, wanted...)
}

type mockNotices struct {
	authErr  error
	fetchErr error
	raw      []domain.RawNotice
}

func (m *mockNotices) Authenticate(context.Context) error { return m.authErr }

func (m *mockNotices) FetchObstacleNotices(context.Context) ([]domain.RawNotice, error) {
	return m.raw, m.fetchErr
}

type mockPublisher struct {
	published []domain.DatasetUpdate
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, updates []domain.DatasetUpdate) error {
	m.published = append(m.published, updates...)
	return m.err
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func pinClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })
}

// --- fixtures ---

var builder = fixture.NewBuilder(fixedwidth.DefaultCatalog())

func airportLines() []string {
	lines := make([]string, 0, len(fixture.SampleAirports))
	for _, a := range fixture.SampleAirports {
		lines = append(lines, builder.AirportLine(a))
	}
	return lines
}

func nasrArchive(t *testing.T, aptLines []string) []byte {
	t.Helper()
	var nav, fix []string
	for _, n := range fixture.SampleNavaids {
		nav = append(nav, builder.NavaidLine(n))
	}
	for _, f := range fixture.SampleFixes {
		fix = append(fix, builder.FixLine(f))
	}
	payload, err := fixture.Zip(map[string][]byte{
		"APT.txt": fixture.NASRFile(aptLines...),
		"NAV.txt": fixture.NASRFile(nav...),
		"FIX.txt": fixture.NASRFile(fix...),
	})
	require.NoError(t, err)
	return payload
}

func dofArchive(t *testing.T, obstacles []fixture.Obstacle) []byte {
	t.Helper()
	var lines []string
	for _, o := range obstacles {
		lines = append(lines, builder.ObstacleLine(o))
	}
	payload, err := fixture.Zip(map[string][]byte{
		"DOF.DAT": fixture.DOFFile("02/15/26", lines...),
	})
	require.NoError(t, err)
	return payload
}

type harness struct {
	store     *store.Store
	locator   *mockLocator
	fetcher   *mockFetcher
	publisher *mockPublisher
	metrics   *observability.Metrics
	opts      pipeline.Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	pinClock(t)
	return &harness{
		store: store.New(t.TempDir(), slog.Default()),
		locator: &mockLocator{links: map[string]string{
			dofLandingURL:                       "https://dof.test/DAILY_DOF_DAT.ZIP",
			fmt.Sprintf(landingURL, cycleDate): "https://nasr.test/APT_2602.zip",
		}},
		fetcher:   &mockFetcher{archives: map[string][]byte{}},
		publisher: &mockPublisher{},
		metrics:   newTestMetrics(),
		opts: pipeline.Options{
			NASRSubscriptionURL: subscriptionURL,
			NASRLandingURL:      landingURL,
			DOFLandingURL:       dofLandingURL,
			WorkDir:             t.TempDir(),
			FailsafeAll:         true,
		},
	}
}

func (h *harness) serveNASR(payload []byte) {
	h.fetcher.archives[fmt.Sprintf(subscriptionURL, cycleDate)] = payload
	h.fetcher.archives["https://nasr.test/APT_2602.zip"] = payload
}

func (h *harness) serveDOF(payload []byte) {
	h.fetcher.archives["https://dof.test/DAILY_DOF_DAT.ZIP"] = payload
}

func (h *harness) pipeline(notices pipeline.NoticeSource) *pipeline.Pipeline {
	return pipeline.New(h.opts, pipeline.Stages{
		Locator:   h.locator,
		Fetcher:   h.fetcher,
		Notices:   notices,
		Publisher: h.publisher,
		Store:     h.store,
		Catalog:   fixedwidth.DefaultCatalog(),
	}, slog.Default(), h.metrics)
}

// --- tests ---

func TestParseVariant(t *testing.T) {
	for _, s := range []string{"master", "split", "all"} {
		v, err := pipeline.ParseVariant(s)
		require.NoError(t, err)
		assert.Equal(t, pipeline.Variant(s), v)
	}
	_, err := pipeline.ParseVariant("both")
	assert.Error(t, err)
}

func TestPipeline_Run_Master(t *testing.T) {
	h := newHarness(t)
	h.serveNASR(nasrArchive(t, airportLines()))
	p := h.pipeline(nil)

	rep, err := p.Run(context.Background(), pipeline.VariantMaster)
	require.NoError(t, err)

	assert.True(t, rep.Complete)
	assert.Equal(t, cycleDate, rep.Cycle)
	assert.Equal(t, cycleID, rep.CycleID)
	assert.Empty(t, rep.Failures)
	assert.Equal(t, pipeline.FamilyReport{Records: 4}, rep.Families["master.airport"])
	assert.Equal(t, pipeline.FamilyReport{Records: 3}, rep.Families["master.navaid"])
	assert.Equal(t, pipeline.FamilyReport{Records: 2}, rep.Families["master.fix"])

	var waypoints []domain.Waypoint
	require.NoError(t, h.store.ReadJSON(store.MasterFile, &waypoints))
	require.Len(t, waypoints, 9)
	assert.Equal(t, "AUS", waypoints[0].ID)
	assert.Equal(t, "APT", waypoints[0].Type)
	assert.Equal(t, "PEÑASCO RANCH", waypoints[3].Name)
	assert.Equal(t, "0", waypoints[2].Elev)
	assert.Equal(t, "VOR", waypoints[6].Type)
	assert.Equal(t, "NDB", waypoints[6].Desc)
	assert.Equal(t, "FIX", waypoints[8].Type)
	for _, wp := range waypoints {
		assert.Negative(t, wp.Lon, wp.ID)
	}

	var version store.Version
	require.NoError(t, h.store.ReadJSON(store.VersionFile, &version))
	assert.Equal(t, cycleDate, version.Cycle)
	assert.Equal(t, cycleID, version.CycleID)
	assert.Equal(t, rep.RunID, version.RunID)

	assert.False(t, h.store.Exists(store.MetadataFile), "split artifacts are not written by the master variant")
}

func TestPipeline_Run_SplitDropsMalformedAirportLine(t *testing.T) {
	h := newHarness(t)
	good := builder.AirportLine(fixture.SampleAirports[0])
	truncated := builder.AirportLine(fixture.SampleAirports[1])[:540]
	h.serveNASR(nasrArchive(t, []string{good, truncated}))
	h.serveDOF(dofArchive(t, fixture.SampleObstacles))
	p := h.pipeline(nil)

	rep, err := p.Run(context.Background(), pipeline.VariantSplit)
	require.NoError(t, err)
	assert.Empty(t, rep.Failures)

	var airports map[string]domain.AirportSummary
	require.NoError(t, h.store.ReadJSON(store.AirportsFile, &airports))
	want := map[string]domain.AirportSummary{
		"AUS": {Name: "AUSTIN-BERGSTROM INTL", Lat: 30.194586, Lon: -97.669828},
	}
	if diff := cmp.Diff(want, airports); diff != "" {
		t.Errorf("airports mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.LinesDropped.WithLabelValues(fixedwidth.Airport, "bad_coordinate")), 0)

	var obstacles []domain.Obstacle
	require.NoError(t, h.store.ReadJSON(store.ObstaclesFile, &obstacles))
	require.Len(t, obstacles, 2)
	assert.Equal(t, "TX", obstacles[0].State)
	assert.Equal(t, 1049, obstacles[0].AGL)

	var meta store.Metadata
	require.NoError(t, h.store.ReadJSON(store.MetadataFile, &meta))
	assert.Equal(t, "02/15/26", meta.DOFDate)
	assert.Equal(t, "02/19/26", meta.APTDate)
	assert.Equal(t, 1, meta.APTCount)
	assert.Equal(t, 2, meta.OBSCount)
	assert.Contains(t, meta.Checksums, store.ObstaclesFile)
	assert.Contains(t, meta.Checksums, store.AirportsFile)
	sum, err := h.store.FileChecksum(store.AirportsFile)
	require.NoError(t, err)
	assert.Equal(t, sum, meta.Checksums[store.AirportsFile])
}

func TestPipeline_Run_FailsafeKeepsPreviousObstacles(t *testing.T) {
	h := newHarness(t)
	previous := []domain.Obstacle{
		{ID: "48-000001", State: "TX", City: "A", Lat: 30, Lon: -97, AGL: 300},
		{ID: "48-000002", State: "TX", City: "B", Lat: 31, Lon: -98, AGL: 400},
		{ID: "48-000003", State: "TX", City: "C", Lat: 32, Lon: -99, AGL: 500},
	}
	_, err := h.store.WriteJSON(store.ObstaclesFile, previous, false)
	require.NoError(t, err)
	_, err = h.store.WriteJSON(store.MetadataFile, store.Metadata{DOFDate: "01/18/26", APTDate: "01/22/26"}, false)
	require.NoError(t, err)
	before, err := os.ReadFile(h.store.Path(store.ObstaclesFile))
	require.NoError(t, err)

	// Only the below-minimum obstacle is present, so nothing parses.
	h.serveDOF(dofArchive(t, fixture.SampleObstacles[2:]))
	h.serveNASR(nasrArchive(t, airportLines()))
	p := h.pipeline(nil)

	rep, err := p.Run(context.Background(), pipeline.VariantSplit)
	require.NoError(t, err)

	after, err := os.ReadFile(h.store.Path(store.ObstaclesFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	var meta store.Metadata
	require.NoError(t, h.store.ReadJSON(store.MetadataFile, &meta))
	assert.Equal(t, 3, meta.OBSCount)
	assert.Equal(t, "01/18/26", meta.DOFDate)
	assert.Equal(t, 4, meta.APTCount)
	assert.Equal(t, "02/19/26", meta.APTDate)

	held := heldArtifacts(rep.Updates)
	assert.Equal(t, []string{store.ObstaclesFile}, held)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.FailsafeHolds.WithLabelValues(store.ObstaclesFile)), 0)
}

func TestPipeline_Run_FailsafeOnFirstRunReportsUnknownDate(t *testing.T) {
	h := newHarness(t)
	h.serveNASR(nasrArchive(t, airportLines()))
	p := h.pipeline(nil)

	rep, err := p.Run(context.Background(), pipeline.VariantSplit)
	require.NoError(t, err)
	require.Len(t, rep.Failures, 1)
	assert.Contains(t, rep.Failures[0], "split_obstacles")
	assert.NotEmpty(t, rep.Families["split.obstacle"].Error)

	assert.False(t, h.store.Exists(store.ObstaclesFile))
	var meta store.Metadata
	require.NoError(t, h.store.ReadJSON(store.MetadataFile, &meta))
	assert.Equal(t, "Unknown", meta.DOFDate)
	assert.Zero(t, meta.OBSCount)
	assert.Equal(t, 4, meta.APTCount)
}

func TestPipeline_Run_HeldFamiliesWithoutMetadataReportUnknownDates(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.WriteJSON(store.ObstaclesFile, []domain.Obstacle{
		{ID: "48-000001", State: "TX", City: "A", Lat: 30, Lon: -97, AGL: 300},
	}, false)
	require.NoError(t, err)
	_, err = h.store.WriteJSON(store.AirportsFile, map[string]domain.AirportSummary{"OLD": {Name: "OLD"}}, false)
	require.NoError(t, err)

	// The DOF header is current but no obstacle qualifies, and no airport
	// archive is served.
	h.serveDOF(dofArchive(t, fixture.SampleObstacles[2:]))
	p := h.pipeline(nil)

	rep, err := p.Run(context.Background(), pipeline.VariantSplit)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{store.ObstaclesFile, store.AirportsFile}, heldArtifacts(rep.Updates))

	var meta store.Metadata
	require.NoError(t, h.store.ReadJSON(store.MetadataFile, &meta))
	assert.Equal(t, "Unknown", meta.DOFDate)
	assert.Equal(t, 1, meta.OBSCount)
	assert.Equal(t, "Unknown", meta.APTDate)
	assert.Equal(t, 1, meta.APTCount)
}

func TestPipeline_Run_AirportsWithoutFailsafe(t *testing.T) {
	h := newHarness(t)
	h.opts.FailsafeAll = false
	_, err := h.store.WriteJSON(store.AirportsFile, map[string]domain.AirportSummary{"OLD": {Name: "OLD"}}, false)
	require.NoError(t, err)
	h.serveDOF(dofArchive(t, fixture.SampleObstacles))
	// No airport archive is served.
	p := h.pipeline(nil)

	rep, err := p.Run(context.Background(), pipeline.VariantSplit)
	require.NoError(t, err)
	assert.NotEmpty(t, rep.Families["split.airport"].Error)

	n, ok := h.store.CountEntries(store.AirportsFile)
	require.True(t, ok)
	assert.Zero(t, n)
	assert.Empty(t, heldArtifacts(rep.Updates))
}

func TestPipeline_Run_MasterDownloadFailureHoldsList(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.WriteJSON(store.MasterFile, []domain.Waypoint{{ID: "OLD", Type: "FIX"}}, false)
	require.NoError(t, err)
	p := h.pipeline(nil)

	rep, err := p.Run(context.Background(), pipeline.VariantMaster)
	require.NoError(t, err)

	assert.True(t, rep.AllFailed())
	for _, key := range []string{"master.airport", "master.navaid", "master.fix"} {
		assert.Contains(t, rep.Families[key].Error, "status 404", key)
	}
	assert.Equal(t, []string{store.MasterFile}, heldArtifacts(rep.Updates))
	assert.False(t, h.store.Exists(store.VersionFile))
	n, _ := h.store.CountEntries(store.MasterFile)
	assert.Equal(t, 1, n)
}

func TestPipeline_Run_MissingMember(t *testing.T) {
	h := newHarness(t)
	payload, err := fixture.Zip(map[string][]byte{"README.txt": []byte("no data")})
	require.NoError(t, err)
	h.serveNASR(payload)
	p := h.pipeline(nil)

	rep, err := p.Run(context.Background(), pipeline.VariantMaster)
	require.NoError(t, err)
	assert.Contains(t, rep.Families["master.airport"].Error, "APT.txt")
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.StageFailures.WithLabelValues("master.airport")), 0)
}

func TestPipeline_Run_PublishesUpdates(t *testing.T) {
	h := newHarness(t)
	h.serveNASR(nasrArchive(t, airportLines()))
	h.serveDOF(dofArchive(t, fixture.SampleObstacles))
	notices := &mockNotices{raw: []domain.RawNotice{
		{Text: "OBST TOWER LGT (ASR 1234567) 301530N0974808W 1049FT AGL OUT OF SERVICE", Lon: -97.80222, Lat: 30.25833, HasPoint: true},
	}}
	p := h.pipeline(notices)

	rep, err := p.Run(context.Background(), pipeline.VariantAll)
	require.NoError(t, err)
	assert.Empty(t, rep.Failures)
	assert.False(t, rep.AllFailed())

	artifacts := make([]string, 0, len(h.publisher.published))
	for _, u := range h.publisher.published {
		assert.Equal(t, domain.EventDatasetUpdated, u.EventType)
		assert.Equal(t, rep.RunID, u.RunID)
		assert.Equal(t, cycleDate, u.Cycle)
		artifacts = append(artifacts, u.Artifact)
	}
	assert.ElementsMatch(t, []string{
		store.MasterFile, store.VersionFile,
		store.ObstaclesFile, store.AirportsFile, store.MetadataFile,
		store.NoticesFile,
	}, artifacts)

	var meta store.Metadata
	require.NoError(t, h.store.ReadJSON(store.MetadataFile, &meta))
	assert.Equal(t, 1, meta.NOTAMCount)
	assert.Contains(t, meta.Checksums, store.NoticesFile)
}

func TestPipeline_Run_PublishFailureIsRecorded(t *testing.T) {
	h := newHarness(t)
	h.serveNASR(nasrArchive(t, airportLines()))
	h.publisher.err = errors.New("broker unavailable")
	p := h.pipeline(nil)

	rep, err := p.Run(context.Background(), pipeline.VariantMaster)
	require.NoError(t, err)
	assert.Contains(t, rep.Failures, "publish: broker unavailable")
	assert.True(t, h.store.Exists(store.MasterFile))
}

func TestPipeline_Run_ExportsSQLite(t *testing.T) {
	h := newHarness(t)
	h.opts.SQLitePath = filepath.Join(t.TempDir(), "faa.db")
	h.serveNASR(nasrArchive(t, airportLines()))
	h.serveDOF(dofArchive(t, fixture.SampleObstacles))
	p := h.pipeline(nil)

	rep, err := p.Run(context.Background(), pipeline.VariantAll)
	require.NoError(t, err)
	assert.Empty(t, rep.Failures)

	info, err := os.Stat(h.opts.SQLitePath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestPipeline_Readiness(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(nil)

	require.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.Run(context.Background(), pipeline.VariantMaster)
	require.NoError(t, err)

	require.NoError(t, p.CheckReadiness(context.Background()))
	status, ok := p.Status().(pipeline.Report)
	require.True(t, ok)
	assert.False(t, status.FinishedAt.IsZero())
	assert.InDelta(t, 0, testutil.ToFloat64(h.metrics.PipelineRunning), 0)
}

func TestPipeline_Run_CancelledContext(t *testing.T) {
	h := newHarness(t)
	h.serveNASR(nasrArchive(t, airportLines()))
	p := h.pipeline(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := p.Run(ctx, pipeline.VariantMaster)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, rep.Complete)
}

func TestReport_AllFailed(t *testing.T) {
	tests := []struct {
		name string
		rep  pipeline.Report
		want bool
	}{
		{name: "no families", rep: pipeline.Report{}, want: false},
		{name: "one family ok", rep: pipeline.Report{Families: map[string]pipeline.FamilyReport{
			"a": {Error: "x"}, "b": {Records: 1},
		}}, want: false},
		{name: "every family failed", rep: pipeline.Report{Families: map[string]pipeline.FamilyReport{
			"a": {Error: "x"}, "b": {Error: "y"},
		}}, want: true},
		{name: "notices persisted", rep: pipeline.Report{
			Families: map[string]pipeline.FamilyReport{"a": {Error: "x"}},
			Notices:  &pipeline.HarvestResult{State: pipeline.StatePersisted},
		}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rep.AllFailed())
		})
	}
}

func heldArtifacts(updates []domain.DatasetUpdate) []string {
	var held []string
	for _, u := range updates {
		if u.Held {
			held = append(held, u.Artifact)
		}
	}
	return held
}
