package domain

import "time"

// EventDatasetUpdated is the event type announced after an artifact is written.
const EventDatasetUpdated = "dataset.updated"

// DatasetUpdate announces that one artifact in the output directory was
// replaced or deliberately held by the failsafe.
type DatasetUpdate struct {
	EventType string    `json:"event_type"`
	RunID     string    `json:"run_id"`
	Artifact  string    `json:"artifact"`
	Cycle     string    `json:"cycle"`
	Records   int       `json:"records"`
	Checksum  string    `json:"checksum,omitempty"`
	Held      bool      `json:"held"`
	UpdatedAt time.Time `json:"updated_at"`
}
