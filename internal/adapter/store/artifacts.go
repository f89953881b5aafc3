package store

// Version is the master variant's cycle stamp.
type Version struct {
	Cycle   string `json:"cycle"`
	CycleID string `json:"cycle_id"`
	Updated string `json:"updated"`
	RunID   string `json:"run_id"`
}

// Metadata is the split variant's dataset summary. Counts are those of the
// files currently on disk, which may come from an earlier run when the
// failsafe held a family.
type Metadata struct {
	DOFDate    string            `json:"dof_date"`
	APTDate    string            `json:"apt_date"`
	APTCount   int               `json:"apt_count"`
	OBSCount   int               `json:"obs_count"`
	NOTAMCount int               `json:"notam_count"`
	RunID      string            `json:"run_id"`
	Updated    string            `json:"updated"`
	Checksums  map[string]string `json:"checksums"`
}
