package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/store"
	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"
	"github.com/cwmauze/genesys-waypoint-tools/internal/observability"
)

// unknownDate fills metadata dates that no run has observed.
const unknownDate = "Unknown"

// Aggregator persists normalized records and applies the failsafe: a family
// that produced no records leaves its previous artifact on disk.
type Aggregator struct {
	store       *store.Store
	failsafeAll bool
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewAggregator creates an Aggregator. Obstacles are always protected by the
// failsafe; failsafeAll extends it to airports and the master list.
func NewAggregator(st *store.Store, failsafeAll bool, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{store: st, failsafeAll: failsafeAll, logger: logger, metrics: metrics}
}

// MasterInput is the data of one master-variant run.
type MasterInput struct {
	Cycle     domain.Cycle
	RunID     string
	Waypoints []domain.Waypoint
}

// SplitInput is the data of one split-variant run. DOFDate is empty when the
// obstacle stage failed.
type SplitInput struct {
	Cycle     domain.Cycle
	RunID     string
	Airports  []domain.Airport
	Obstacles []domain.Obstacle
	DOFDate   string
}

// WriteMaster persists the combined waypoint list and its version stamp.
func (a *Aggregator) WriteMaster(in MasterInput) ([]domain.DatasetUpdate, error) {
	now := domain.Now().UTC()

	if len(in.Waypoints) == 0 && a.failsafeAll {
		n, _ := a.store.CountEntries(store.MasterFile)
		a.hold(store.MasterFile, n)
		return []domain.DatasetUpdate{a.update(in.RunID, in.Cycle, store.MasterFile, n, "", true, now)}, nil
	}

	sum, err := a.store.WriteJSON(store.MasterFile, in.Waypoints, false)
	if err != nil {
		return nil, err
	}
	a.metrics.ArtifactsWritten.Inc()

	version := store.Version{
		Cycle:   in.Cycle.Date(),
		CycleID: in.Cycle.ID(),
		Updated: now.Format(time.RFC3339),
		RunID:   in.RunID,
	}
	vsum, err := a.store.WriteJSON(store.VersionFile, version, false)
	if err != nil {
		return nil, err
	}
	a.metrics.ArtifactsWritten.Inc()

	a.logger.Info("master dataset written", "records", len(in.Waypoints), "cycle", version.Cycle)
	return []domain.DatasetUpdate{
		a.update(in.RunID, in.Cycle, store.MasterFile, len(in.Waypoints), sum, false, now),
		a.update(in.RunID, in.Cycle, store.VersionFile, 1, vsum, false, now),
	}, nil
}

// WriteSplit persists obstacles, airports, and the metadata describing them.
func (a *Aggregator) WriteSplit(in SplitInput) ([]domain.DatasetUpdate, error) {
	now := domain.Now().UTC()
	var prev store.Metadata
	hasPrev := a.store.ReadJSON(store.MetadataFile, &prev) == nil

	meta := store.Metadata{
		DOFDate:   in.DOFDate,
		APTDate:   in.Cycle.Stamp(),
		RunID:     in.RunID,
		Updated:   now.Format(time.RFC3339),
		Checksums: map[string]string{},
	}
	var updates []domain.DatasetUpdate

	// Obstacles
	if len(in.Obstacles) == 0 {
		n, _ := a.store.CountEntries(store.ObstaclesFile)
		meta.OBSCount = n
		// A held file keeps its own edition; this run's header does not describe it.
		meta.DOFDate = ""
		if hasPrev {
			meta.DOFDate = prev.DOFDate
		}
		a.hold(store.ObstaclesFile, n)
		updates = append(updates, a.update(in.RunID, in.Cycle, store.ObstaclesFile, n, "", true, now))
	} else {
		sum, err := a.store.WriteJSON(store.ObstaclesFile, in.Obstacles, false)
		if err != nil {
			return nil, err
		}
		a.metrics.ArtifactsWritten.Inc()
		meta.OBSCount = len(in.Obstacles)
		updates = append(updates, a.update(in.RunID, in.Cycle, store.ObstaclesFile, meta.OBSCount, sum, false, now))
	}
	if meta.DOFDate == "" {
		meta.DOFDate = unknownDate
	}

	// Airports
	if len(in.Airports) == 0 && a.failsafeAll {
		n, _ := a.store.CountEntries(store.AirportsFile)
		meta.APTCount = n
		meta.APTDate = unknownDate
		if hasPrev && prev.APTDate != "" {
			meta.APTDate = prev.APTDate
		}
		a.hold(store.AirportsFile, n)
		updates = append(updates, a.update(in.RunID, in.Cycle, store.AirportsFile, n, "", true, now))
	} else {
		summaries := make(map[string]domain.AirportSummary, len(in.Airports))
		for _, apt := range in.Airports {
			summaries[apt.ID] = apt.Summary()
		}
		sum, err := a.store.WriteJSON(store.AirportsFile, summaries, false)
		if err != nil {
			return nil, err
		}
		a.metrics.ArtifactsWritten.Inc()
		meta.APTCount = len(summaries)
		updates = append(updates, a.update(in.RunID, in.Cycle, store.AirportsFile, meta.APTCount, sum, false, now))
	}

	if n, ok := a.store.CountEntries(store.NoticesFile); ok {
		meta.NOTAMCount = n
	}
	for _, name := range []string{store.ObstaclesFile, store.AirportsFile, store.NoticesFile} {
		if !a.store.Exists(name) {
			continue
		}
		sum, err := a.store.FileChecksum(name)
		if err != nil {
			a.logger.Warn("checksum failed", "file", name, "error", err)
			continue
		}
		meta.Checksums[name] = sum
	}

	msum, err := a.store.WriteJSON(store.MetadataFile, meta, false)
	if err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}
	a.metrics.ArtifactsWritten.Inc()
	updates = append(updates, a.update(in.RunID, in.Cycle, store.MetadataFile, 1, msum, false, now))

	a.logger.Info("split dataset written",
		"obstacles", meta.OBSCount,
		"airports", meta.APTCount,
		"dof_date", meta.DOFDate,
		"apt_date", meta.APTDate,
	)
	return updates, nil
}

func (a *Aggregator) hold(artifact string, existing int) {
	a.metrics.FailsafeHolds.WithLabelValues(artifact).Inc()
	a.logger.Warn("no records parsed, keeping existing artifact", "file", artifact, "existing_records", existing)
}

func (a *Aggregator) update(runID string, cycle domain.Cycle, artifact string, records int, sum string, held bool, at time.Time) domain.DatasetUpdate {
	return domain.DatasetUpdate{
		EventType: domain.EventDatasetUpdated,
		RunID:     runID,
		Artifact:  artifact,
		Cycle:     cycle.Date(),
		Records:   records,
		Checksum:  sum,
		Held:      held,
		UpdatedAt: at,
	}
}
