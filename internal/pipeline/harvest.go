package pipeline

import (
	"context"
	"log/slog"

	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/store"
	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"
	"github.com/cwmauze/genesys-waypoint-tools/internal/observability"
)

// NoticeSource authenticates against and queries the obstruction notice feed.
type NoticeSource interface {
	Authenticate(ctx context.Context) error
	FetchObstacleNotices(ctx context.Context) ([]domain.RawNotice, error)
}

// HarvestState is a step of the notice harvest.
type HarvestState string

const (
	StateNoCredentials HarvestState = "no_credentials"
	StateAuthenticated HarvestState = "authenticated"
	StateFetched       HarvestState = "fetched"
	StateClassified    HarvestState = "classified"
	StatePersisted     HarvestState = "persisted"
	StateSkipped       HarvestState = "skipped"
	StateFailed        HarvestState = "failed"
)

// HarvestResult summarizes one harvest. Path lists every state visited.
type HarvestResult struct {
	State    HarvestState   `json:"state"`
	Path     []HarvestState `json:"path"`
	Received int            `json:"received"`
	Matched  int            `json:"matched"`
	Checksum string         `json:"checksum,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Harvester collects unlit-obstacle notices and writes them to their own
// artifact. Every failure ends the harvest only.
type Harvester struct {
	source  NoticeSource
	store   *store.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewHarvester creates a Harvester. A nil source means no credentials are
// configured and every run is skipped.
func NewHarvester(source NoticeSource, st *store.Store, logger *slog.Logger, metrics *observability.Metrics) *Harvester {
	return &Harvester{source: source, store: st, logger: logger, metrics: metrics}
}

// Run executes the harvest state machine.
func (h *Harvester) Run(ctx context.Context) HarvestResult {
	res := HarvestResult{State: StateNoCredentials, Path: []HarvestState{StateNoCredentials}}
	advance := func(s HarvestState) {
		res.State = s
		res.Path = append(res.Path, s)
	}
	fail := func(stage string, err error) HarvestResult {
		advance(StateFailed)
		res.Error = err.Error()
		h.metrics.StageFailures.WithLabelValues(stage).Inc()
		h.logger.Error("notice harvest failed", "stage", stage, "error", err)
		return res
	}

	if h.source == nil {
		advance(StateSkipped)
		h.logger.Info("notice harvest skipped, credentials not configured")
		return res
	}

	if err := h.source.Authenticate(ctx); err != nil {
		return fail("notice_auth", err)
	}
	advance(StateAuthenticated)

	raw, err := h.source.FetchObstacleNotices(ctx)
	if err != nil {
		return fail("notice_query", err)
	}
	advance(StateFetched)
	res.Received = len(raw)
	h.metrics.NoticesHarvested.Add(float64(len(raw)))

	notices := Classify(raw)
	advance(StateClassified)
	res.Matched = len(notices)

	sum, err := h.store.WriteJSON(store.NoticesFile, notices, true)
	if err != nil {
		return fail("notice_persist", err)
	}
	advance(StatePersisted)
	res.Checksum = sum
	h.metrics.NoticesMatched.Add(float64(len(notices)))
	h.metrics.ArtifactsWritten.Inc()

	h.logger.Info("notice harvest complete", "received", res.Received, "matched", res.Matched)
	return res
}

// Classify keeps the notices that report an unlit obstacle at a known point.
func Classify(raw []domain.RawNotice) []domain.Notice {
	notices := make([]domain.Notice, 0)
	for _, r := range raw {
		if !r.HasPoint || !domain.IsUnlitObstacle(r.Text) {
			continue
		}
		notices = append(notices, domain.NewNotice(r.Text, r.Lon, r.Lat))
	}
	return notices
}
