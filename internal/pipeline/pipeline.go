package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/faa"
	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/store"
	"github.com/cwmauze/genesys-waypoint-tools/internal/config"
	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"
	"github.com/cwmauze/genesys-waypoint-tools/internal/fixedwidth"
	"github.com/cwmauze/genesys-waypoint-tools/internal/observability"

	"github.com/google/uuid"
)

// Archive member names.
const (
	aptFile = "APT.txt"
	navFile = "NAV.txt"
	fixFile = "FIX.txt"
	dofFile = "DOF.DAT"
)

// Variant selects which datasets a run produces.
type Variant string

const (
	// VariantMaster writes one combined waypoint list from the NASR subscription.
	VariantMaster Variant = "master"
	// VariantSplit writes separate obstacle and airport datasets plus metadata.
	VariantSplit Variant = "split"
	// VariantAll runs both.
	VariantAll Variant = "all"
)

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantMaster, VariantSplit, VariantAll:
		return v, nil
	default:
		return "", fmt.Errorf("unknown variant %q (want master, split, or all)", s)
	}
}

// ArchiveLocator finds the archive link on a landing page.
type ArchiveLocator interface {
	Locate(ctx context.Context, pageURL, keyword string) (string, error)
}

// ArchiveFetcher downloads an archive and extracts the named members.
type ArchiveFetcher interface {
	FetchAndExtract(ctx context.Context, url, dir string, wanted ...string) (map[string]string, error)
}

// UpdatePublisher announces persisted artifacts.
type UpdatePublisher interface {
	Publish(ctx context.Context, updates []domain.DatasetUpdate) error
}

// Options holds the publisher locations and local paths for a run. URL
// templates take the cycle date as their single %s verb.
type Options struct {
	NASRSubscriptionURL string
	NASRLandingURL      string
	DOFLandingURL       string
	WorkDir             string
	SQLitePath          string
	FailsafeAll         bool
}

// OptionsFromConfig extracts run options from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		NASRSubscriptionURL: cfg.NASRSubscriptionURL,
		NASRLandingURL:      cfg.NASRLandingURL,
		DOFLandingURL:       cfg.DOFLandingURL,
		WorkDir:             cfg.WorkDir,
		SQLitePath:          cfg.SQLitePath,
		FailsafeAll:         cfg.FailsafeAllFamilies,
	}
}

// Stages are the collaborators a Pipeline drives. Notices and Publisher may
// be nil.
type Stages struct {
	Locator   ArchiveLocator
	Fetcher   ArchiveFetcher
	Notices   NoticeSource
	Publisher UpdatePublisher
	Store     *store.Store
	Catalog   *fixedwidth.Catalog
}

// FamilyReport is the outcome of one record family.
type FamilyReport struct {
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// Report summarizes a run.
type Report struct {
	RunID      string                  `json:"run_id"`
	Variant    Variant                 `json:"variant"`
	Cycle      string                  `json:"cycle"`
	CycleID    string                  `json:"cycle_id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at,omitzero"`
	Complete   bool                    `json:"complete"`
	Families   map[string]FamilyReport `json:"families"`
	Updates    []domain.DatasetUpdate  `json:"updates,omitempty"`
	Notices    *HarvestResult          `json:"notices,omitempty"`
	Failures   []string                `json:"failures,omitempty"`
}

// AllFailed reports whether no family and no harvest succeeded.
func (r Report) AllFailed() bool {
	if r.Notices != nil && r.Notices.State == StatePersisted {
		return false
	}
	for _, f := range r.Families {
		if f.Error == "" {
			return false
		}
	}
	return len(r.Families) > 0
}

// Pipeline runs the harvest: locate, fetch, normalize, aggregate, publish.
// Stages run sequentially and a failed stage never stops the ones after it.
type Pipeline struct {
	opts       Options
	stages     Stages
	normalizer *Normalizer
	aggregator *Aggregator
	harvester  *Harvester
	logger     *slog.Logger
	metrics    *observability.Metrics

	ready  atomic.Bool
	mu     sync.Mutex
	report Report
}

// New creates a Pipeline with the given stages and observability.
func New(opts Options, stages Stages, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		opts:       opts,
		stages:     stages,
		normalizer: NewNormalizer(stages.Catalog, logger, metrics),
		aggregator: NewAggregator(stages.Store, opts.FailsafeAll, logger, metrics),
		harvester:  NewHarvester(stages.Notices, stages.Store, logger, metrics),
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once a run has finished, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("harvest run has not completed")
	}
	return nil
}

// Status returns a snapshot of the current or last run.
func (p *Pipeline) Status() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

// run carries the state of one Run call between stages.
type run struct {
	report    *Report
	cycle     domain.Cycle
	waypoints []domain.Waypoint
	obstacles []domain.Obstacle
}

// Run executes one harvest of the given variant. Stage failures are logged
// and recorded in the report; the returned error is non-nil only when ctx
// is cancelled.
func (p *Pipeline) Run(ctx context.Context, variant Variant) (Report, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	cycle := domain.CurrentCycle()
	r := &run{
		cycle: cycle,
		report: &Report{
			RunID:     uuid.NewString(),
			Variant:   variant,
			Cycle:     cycle.Date(),
			CycleID:   cycle.ID(),
			StartedAt: domain.Now().UTC(),
			Families:  map[string]FamilyReport{},
		},
	}
	p.publishStatus(r.report)
	p.logger.Info("harvest started", "run_id", r.report.RunID, "variant", variant, "cycle", cycle.Date(), "cycle_id", cycle.ID())

	notices := p.harvester.Run(ctx)
	r.report.Notices = &notices

	if variant == VariantMaster || variant == VariantAll {
		p.runMaster(ctx, r)
	}
	if variant == VariantSplit || variant == VariantAll {
		p.runSplit(ctx, r)
	}
	if notices.State == StatePersisted {
		r.report.Updates = append(r.report.Updates, domain.DatasetUpdate{
			EventType: domain.EventDatasetUpdated,
			RunID:     r.report.RunID,
			Artifact:  store.NoticesFile,
			Cycle:     cycle.Date(),
			Records:   notices.Matched,
			Checksum:  notices.Checksum,
			UpdatedAt: domain.Now().UTC(),
		})
	}

	if p.opts.SQLitePath != "" {
		p.exportSQLite(ctx, r)
	}
	if p.stages.Publisher != nil && len(r.report.Updates) > 0 {
		if err := p.stages.Publisher.Publish(ctx, r.report.Updates); err != nil {
			p.stageFailed(r, "publish", err)
		}
	}

	r.report.FinishedAt = domain.Now().UTC()
	r.report.Complete = ctx.Err() == nil
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	for _, u := range r.report.Updates {
		if !u.Held {
			p.metrics.LastSuccess.SetToCurrentTime()
			break
		}
	}
	p.publishStatus(r.report)
	p.ready.Store(true)

	p.logger.Info("harvest finished",
		"run_id", r.report.RunID,
		"duration", time.Since(start),
		"updates", len(r.report.Updates),
		"failures", len(r.report.Failures),
	)
	return *r.report, ctx.Err()
}

// runMaster builds the combined waypoint list from the NASR subscription.
func (p *Pipeline) runMaster(ctx context.Context, r *run) {
	url := fmt.Sprintf(p.opts.NASRSubscriptionURL, r.cycle.Date())
	files, cleanup, err := p.fetch(ctx, "nasr", url, aptFile, navFile, fixFile)
	defer cleanup()
	if err != nil {
		p.stageFailed(r, "master_download", err)
	}

	airports := collect(p, r, "master.airport", files, aptFile, err, p.normalizer.Airports)
	navaids := collect(p, r, "master.navaid", files, navFile, err, p.normalizer.Navaids)
	fixes := collect(p, r, "master.fix", files, fixFile, err, p.normalizer.Fixes)

	waypoints := make([]domain.Waypoint, 0, len(airports)+len(navaids)+len(fixes))
	for _, rec := range airports {
		waypoints = appendWaypoint(waypoints, rec)
	}
	for _, rec := range navaids {
		waypoints = appendWaypoint(waypoints, rec)
	}
	for _, rec := range fixes {
		waypoints = appendWaypoint(waypoints, rec)
	}
	r.waypoints = waypoints

	updates, err := p.aggregator.WriteMaster(MasterInput{Cycle: r.cycle, RunID: r.report.RunID, Waypoints: waypoints})
	if err != nil {
		p.stageFailed(r, "master_persist", err)
		return
	}
	r.report.Updates = append(r.report.Updates, updates...)
}

// runSplit builds the obstacle and airport datasets from their landing pages.
func (p *Pipeline) runSplit(ctx context.Context, r *run) {
	in := SplitInput{Cycle: r.cycle, RunID: r.report.RunID}

	set, err := p.splitObstacles(ctx)
	if err != nil {
		p.stageFailed(r, "split_obstacles", err)
		r.report.Families["split.obstacle"] = FamilyReport{Error: err.Error()}
	} else {
		r.report.Families["split.obstacle"] = FamilyReport{Records: len(set.Obstacles)}
		in.Obstacles = set.Obstacles
		in.DOFDate = set.CurrencyDate
		r.obstacles = set.Obstacles
	}

	airports, err := p.splitAirports(ctx, r.cycle)
	if err != nil {
		p.stageFailed(r, "split_airports", err)
		r.report.Families["split.airport"] = FamilyReport{Error: err.Error()}
	} else {
		r.report.Families["split.airport"] = FamilyReport{Records: len(airports)}
		in.Airports = airports
	}

	updates, err := p.aggregator.WriteSplit(in)
	if err != nil {
		p.stageFailed(r, "split_persist", err)
		return
	}
	r.report.Updates = append(r.report.Updates, updates...)
}

func (p *Pipeline) splitObstacles(ctx context.Context) (ObstacleSet, error) {
	link, err := p.stages.Locator.Locate(ctx, p.opts.DOFLandingURL, "dof")
	if err != nil {
		return ObstacleSet{}, err
	}
	files, cleanup, err := p.fetch(ctx, "dof", link, dofFile)
	defer cleanup()
	if err != nil {
		return ObstacleSet{}, err
	}
	path, err := member(files, dofFile)
	if err != nil {
		return ObstacleSet{}, err
	}
	return p.normalizer.Obstacles(path)
}

func (p *Pipeline) splitAirports(ctx context.Context, cycle domain.Cycle) ([]domain.Airport, error) {
	landing := fmt.Sprintf(p.opts.NASRLandingURL, cycle.Date())
	link, err := p.stages.Locator.Locate(ctx, landing, "")
	if err != nil {
		return nil, err
	}
	files, cleanup, err := p.fetch(ctx, "apt", link, aptFile)
	defer cleanup()
	if err != nil {
		return nil, err
	}
	path, err := member(files, aptFile)
	if err != nil {
		return nil, err
	}
	return p.normalizer.Airports(path)
}

// fetch downloads url into a fresh work directory. cleanup is always safe
// to call.
func (p *Pipeline) fetch(ctx context.Context, name, url string, wanted ...string) (map[string]string, func(), error) {
	dir, err := os.MkdirTemp(p.opts.WorkDir, "faadb-"+name+"-*")
	if err != nil {
		return nil, func() {}, fmt.Errorf("create work dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("work dir cleanup failed", "dir", dir, "error", err)
		}
	}
	files, err := p.stages.Fetcher.FetchAndExtract(ctx, url, dir, wanted...)
	if err != nil {
		return nil, cleanup, err
	}
	return files, cleanup, nil
}

func (p *Pipeline) exportSQLite(ctx context.Context, r *run) {
	waypoints := r.waypoints
	if len(waypoints) == 0 && p.stages.Store.Exists(store.MasterFile) {
		if err := p.stages.Store.ReadJSON(store.MasterFile, &waypoints); err != nil {
			p.logger.Warn("previous master list unreadable", "error", err)
		}
	}
	obstacles := r.obstacles
	if len(obstacles) == 0 && p.stages.Store.Exists(store.ObstaclesFile) {
		if err := p.stages.Store.ReadJSON(store.ObstaclesFile, &obstacles); err != nil {
			p.logger.Warn("previous obstacle list unreadable", "error", err)
		}
	}
	if len(waypoints) == 0 && len(obstacles) == 0 {
		p.logger.Info("sqlite export skipped, no records")
		return
	}
	if err := store.ExportSQLite(ctx, p.opts.SQLitePath, waypoints, obstacles); err != nil {
		p.stageFailed(r, "sqlite_export", err)
		return
	}
	p.logger.Info("sqlite export written", "path", p.opts.SQLitePath, "waypoints", len(waypoints), "obstacles", len(obstacles))
}

func (p *Pipeline) stageFailed(r *run, stage string, err error) {
	p.metrics.StageFailures.WithLabelValues(stage).Inc()
	p.logger.Error("stage failed", "run_id", r.report.RunID, "stage", stage, "error", err)
	r.report.Failures = append(r.report.Failures, stage+": "+err.Error())
}

func (p *Pipeline) publishStatus(rep *Report) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report = *rep
	p.report.Families = make(map[string]FamilyReport, len(rep.Families))
	for k, v := range rep.Families {
		p.report.Families[k] = v
	}
}

// collect normalizes one family from an extracted archive. fetchErr is the
// download error shared by every family of the archive.
func collect[T any](p *Pipeline, r *run, key string, files map[string]string, name string, fetchErr error, parse func(string) ([]T, error)) []T {
	if fetchErr != nil {
		r.report.Families[key] = FamilyReport{Error: fetchErr.Error()}
		return nil
	}
	path, err := member(files, name)
	if err == nil {
		var recs []T
		if recs, err = parse(path); err == nil {
			r.report.Families[key] = FamilyReport{Records: len(recs)}
			return recs
		}
	}
	p.stageFailed(r, key, err)
	r.report.Families[key] = FamilyReport{Error: err.Error()}
	return nil
}

func member(files map[string]string, name string) (string, error) {
	if err := faa.Require(files, name); err != nil {
		return "", err
	}
	return files[name], nil
}

func appendWaypoint(dst []domain.Waypoint, rec domain.Record) []domain.Waypoint {
	if wp, ok := domain.ToWaypoint(rec); ok {
		return append(dst, wp)
	}
	return dst
}
