// Command validate performs integrity checks on a faadb output directory: the
// master waypoint list and its version stamp, the split obstacle and airport
// datasets against their metadata, the notice artifact, and optionally the
// SQLite export. It verifies counts, checksums, coordinate ranges, and
// cross-file consistency.
//
// Usage:
//
//	go run ./cmd/validate -dir ./out -sqlite ./out/faa.db
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/store"
	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"

	_ "modernc.org/sqlite"
)

var (
	stampRe = regexp.MustCompile(`^\d{2}/\d{2}/\d{2}$`)
	digitRe = regexp.MustCompile(`^\d+$`)

	waypointTypes = map[string]bool{"APT": true, "VOR": true, "FIX": true}
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	skipped bool
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "faadb output directory")
	sqlitePath := flag.String("sqlite", "", "optional SQLite export to cross-check")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir, *sqlitePath); code != 0 {
		os.Exit(code)
	}
}

func run(dir, sqlitePath string) int {
	fmt.Println("=== FAA Dataset Integrity Validation ===")
	fmt.Println()

	if _, err := os.Stat(dir); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	st := store.New(dir, slog.Default())

	phases := []*phase{
		validateMaster(st),
		validateSplit(st),
		validateNotices(st),
		validateSQLite(st, sqlitePath),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case p.skipped:
			status = "\033[33mSKIP\033[0m"
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Master list ──

func validateMaster(st *store.Store) *phase {
	p := &phase{name: "Phase 1: Master list (faa_master.json)"}
	if !st.Exists(store.MasterFile) {
		p.skipped = true
		return p
	}

	var waypoints []domain.Waypoint
	if err := st.ReadJSON(store.MasterFile, &waypoints); err != nil {
		p.errorf("%v", err)
		return p
	}
	for i, wp := range waypoints {
		if wp.ID == "" {
			p.errorf("waypoint %d: missing id", i)
		}
		if !waypointTypes[wp.Type] {
			p.errorf("waypoint %d (%s): type %q not in {APT, VOR, FIX}", i, wp.ID, wp.Type)
		}
		checkPosition(p, fmt.Sprintf("waypoint %d (%s)", i, wp.ID), wp.Lat, wp.Lon)
	}

	var version store.Version
	if err := st.ReadJSON(store.VersionFile, &version); err != nil {
		p.errorf("%v", err)
		return p
	}
	start, err := time.Parse("2006-01-02", version.Cycle)
	if err != nil {
		p.errorf("version: cycle %q is not a date", version.Cycle)
		return p
	}
	cycle := domain.ResolveCycle(start)
	if cycle.Date() != version.Cycle {
		p.errorf("version: cycle %s is not an AIRAC effective date (nearest %s)", version.Cycle, cycle.Date())
	}
	if cycle.ID() != version.CycleID {
		p.errorf("version: cycle_id %q, expected %q for %s", version.CycleID, cycle.ID(), version.Cycle)
	}
	fmt.Printf("  master: %d waypoints, cycle %s [%s]\n", len(waypoints), version.Cycle, version.CycleID)
	return p
}

// ── Phase 2: Split datasets ──

func validateSplit(st *store.Store) *phase {
	p := &phase{name: "Phase 2: Split datasets (metadata.json)"}
	if !st.Exists(store.MetadataFile) {
		p.skipped = true
		return p
	}

	var meta store.Metadata
	if err := st.ReadJSON(store.MetadataFile, &meta); err != nil {
		p.errorf("%v", err)
		return p
	}
	if meta.DOFDate != "Unknown" && !stampRe.MatchString(meta.DOFDate) {
		p.errorf("dof_date %q is neither MM/DD/YY nor Unknown", meta.DOFDate)
	}
	if meta.APTDate != "Unknown" && !stampRe.MatchString(meta.APTDate) {
		p.errorf("apt_date %q is neither MM/DD/YY nor Unknown", meta.APTDate)
	}

	var obstacles []domain.Obstacle
	if st.Exists(store.ObstaclesFile) {
		if err := st.ReadJSON(store.ObstaclesFile, &obstacles); err != nil {
			p.errorf("%v", err)
		}
	}
	if len(obstacles) != meta.OBSCount {
		p.errorf("obs_count %d, obstacles.json has %d", meta.OBSCount, len(obstacles))
	}
	for i, o := range obstacles {
		label := fmt.Sprintf("obstacle %d (%s)", i, o.ID)
		if o.ID == "" {
			p.errorf("obstacle %d: missing id", i)
		}
		if o.AGL < domain.MinObstacleAGL {
			p.errorf("%s: agl %d below %d", label, o.AGL, domain.MinObstacleAGL)
		}
		if len(o.State) != 2 {
			p.errorf("%s: state %q is not 2 characters", label, o.State)
		}
		checkPosition(p, label, o.Lat, o.Lon)
	}

	var airports map[string]domain.AirportSummary
	if st.Exists(store.AirportsFile) {
		if err := st.ReadJSON(store.AirportsFile, &airports); err != nil {
			p.errorf("%v", err)
		}
	}
	if len(airports) != meta.APTCount {
		p.errorf("apt_count %d, airports.json has %d", meta.APTCount, len(airports))
	}
	for id, a := range airports {
		checkPosition(p, "airport "+id, a.Lat, a.Lon)
	}

	if n, ok := st.CountEntries(store.NoticesFile); ok && n != meta.NOTAMCount {
		p.errorf("notam_count %d, notams.json has %d", meta.NOTAMCount, n)
	}

	for _, name := range []string{store.ObstaclesFile, store.AirportsFile} {
		want, listed := meta.Checksums[name]
		if !st.Exists(name) {
			if listed {
				p.errorf("checksum listed for missing %s", name)
			}
			continue
		}
		got, err := st.FileChecksum(name)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		if !listed {
			p.errorf("%s present but has no checksum", name)
		} else if got != want {
			p.errorf("%s checksum %s, metadata lists %s", name, got, want)
		}
	}

	fmt.Printf("  split: %d obstacles (DOF %s), %d airports (APT %s)\n",
		len(obstacles), meta.DOFDate, len(airports), meta.APTDate)
	return p
}

// ── Phase 3: Notices ──

func validateNotices(st *store.Store) *phase {
	p := &phase{name: "Phase 3: Notices (notams.json)"}
	if !st.Exists(store.NoticesFile) {
		p.skipped = true
		return p
	}

	var notices []domain.Notice
	if err := st.ReadJSON(store.NoticesFile, &notices); err != nil {
		p.errorf("%v", err)
		return p
	}
	for i, n := range notices {
		label := fmt.Sprintf("notice %d", i)
		if n.AGL != domain.UnknownAGL && !digitRe.MatchString(n.AGL) {
			p.errorf("%s: agl %q is neither digits nor %s", label, n.AGL, domain.UnknownAGL)
		}
		if !domain.IsUnlitObstacle(n.Text) {
			p.errorf("%s: text does not describe an unlit obstacle", label)
		}
		checkPosition(p, label, n.Lat, n.Lon)
	}
	fmt.Printf("  notices: %d\n", len(notices))
	return p
}

// ── Phase 4: SQLite export ──

func validateSQLite(st *store.Store, path string) *phase {
	p := &phase{name: "Phase 4: SQLite export"}
	if path == "" {
		p.skipped = true
		return p
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		p.errorf("open %s: %v", path, err)
		return p
	}
	defer db.Close()

	check := func(table, artifact string) {
		var rows int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&rows); err != nil {
			p.errorf("count %s: %v", table, err)
			return
		}
		if n, ok := st.CountEntries(artifact); ok && n != rows {
			p.errorf("%s has %d rows, %s has %d entries", table, rows, artifact, n)
		}
	}
	check("waypoints", store.MasterFile)
	check("obstacles", store.ObstaclesFile)
	return p
}

func checkPosition(p *phase, label string, lat, lon float64) {
	if lat < -90 || lat > 90 {
		p.errorf("%s: latitude %g out of range", label, lat)
	}
	if lon < -180 || lon > 180 {
		p.errorf("%s: longitude %g out of range", label, lon)
	}
	if lat == 0 && lon == 0 {
		p.errorf("%s: coordinates are both zero", label)
	}
}
