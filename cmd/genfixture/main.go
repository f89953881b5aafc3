// Command genfixture writes a synthetic FAA publisher tree: a NASR
// subscription archive, the NASR and DOF landing pages, and a Digital
// Obstacle File archive, all built from the Central Texas sample records. With
// -serve it also hosts the tree so faadb can run against it offline.
//
// Usage:
//
//	go run ./cmd/genfixture -out data/fixture -serve :8089
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"
	"github.com/cwmauze/genesys-waypoint-tools/internal/fixedwidth"
	"github.com/cwmauze/genesys-waypoint-tools/internal/fixture"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
)

const (
	subscriptionName = "28DaySubscription_NS.zip"
	dofArchiveName   = "DAILY_DOF_DAT.zip"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for the publisher tree")
	date := flag.String("date", "", "pin the run date (YYYY-MM-DD); defaults to today")
	dofDate := flag.String("dof-date", "", "DOF currency date (MM/DD/YY); defaults to the cycle stamp")
	serve := flag.String("serve", "", "serve the tree on this address after writing it")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return errors.New("missing required flag: -out")
	}

	if *date != "" {
		d, err := time.Parse("2006-01-02", *date)
		if err != nil {
			return fmt.Errorf("invalid -date: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(d))
		defer domain.SetClock(nil)
	}
	cycle := domain.CurrentCycle()
	if *dofDate == "" {
		*dofDate = cycle.Stamp()
	}

	b := fixture.NewBuilder(fixedwidth.DefaultCatalog())

	nasr, err := buildNASR(b)
	if err != nil {
		return fmt.Errorf("build NASR archive: %w", err)
	}
	dof, err := buildDOF(b, *dofDate)
	if err != nil {
		return fmt.Errorf("build DOF archive: %w", err)
	}

	files := map[string][]byte{
		filepath.Join("nasr", cycle.Date(), subscriptionName): nasr,
		filepath.Join("nasr", "landing", cycle.Date(), "index.html"): landingPage(
			"NASR Subscription "+cycle.Date(), "/nasr/"+cycle.Date()+"/"+subscriptionName),
		filepath.Join("dof", dofArchiveName): dof,
		filepath.Join("dof", "index.html"):   landingPage("Digital Obstacle File", "/dof/"+dofArchiveName),
	}
	for name, data := range files {
		if err := writeFile(filepath.Join(*out, name), data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		log.Printf("wrote %s (%s)", name, humanize.Bytes(uint64(len(data))))
	}

	log.Printf("cycle %s [%s]: %d airports, %d navaids, %d fixes, %d obstacles",
		cycle.Date(), cycle.ID(),
		len(fixture.SampleAirports), len(fixture.SampleNavaids), len(fixture.SampleFixes), len(fixture.SampleObstacles))

	if *serve == "" {
		return nil
	}
	host := "http://localhost" + *serve
	fmt.Println("\n=== Environment for faadb ===")
	fmt.Printf("PUBLISHER_HOST=%s\n", host)
	fmt.Printf("NASR_SUBSCRIPTION_URL=%s/nasr/%%s/%s\n", host, subscriptionName)
	fmt.Printf("NASR_LANDING_URL=%s/nasr/landing/%%s/\n", host)
	fmt.Printf("DOF_LANDING_URL=%s/dof/\n", host)

	log.Printf("serving %s on %s", *out, *serve)
	srv := &http.Server{
		Addr:              *serve,
		Handler:           http.FileServer(http.Dir(*out)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func buildNASR(b *fixture.Builder) ([]byte, error) {
	apt := make([]string, 0, len(fixture.SampleAirports))
	for _, a := range fixture.SampleAirports {
		apt = append(apt, b.AirportLine(a))
	}
	nav := make([]string, 0, len(fixture.SampleNavaids))
	for _, n := range fixture.SampleNavaids {
		nav = append(nav, b.NavaidLine(n))
	}
	fix := make([]string, 0, len(fixture.SampleFixes))
	for _, f := range fixture.SampleFixes {
		fix = append(fix, b.FixLine(f))
	}
	return fixture.Zip(map[string][]byte{
		"APT.txt": fixture.NASRFile(apt...),
		"NAV.txt": fixture.NASRFile(nav...),
		"FIX.txt": fixture.NASRFile(fix...),
	})
}

func buildDOF(b *fixture.Builder, currencyDate string) ([]byte, error) {
	lines := make([]string, 0, len(fixture.SampleObstacles))
	for _, o := range fixture.SampleObstacles {
		lines = append(lines, b.ObstacleLine(o))
	}
	return fixture.Zip(map[string][]byte{
		"DOF.DAT": fixture.DOFFile(currencyDate, lines...),
	})
}

func landingPage(title, href string) []byte {
	return fmt.Appendf(nil, `<!DOCTYPE html>
<html>
<head><title>%[1]s</title></head>
<body>
<h1>%[1]s</h1>
<ul>
  <li><a href="%[2]s">%[1]s (ZIP)</a></li>
</ul>
</body>
</html>
`, title, href)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
