// Command validate checks a directory of JHU CSSE time-series tables before it
// is served. It loads the tables the same way the service does and reports
// regions whose series cannot be charted or look revised.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data
//	go run ./cmd/validate -data-dir data -profile profile.yaml
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/epi-series-service/internal/adapter/csse"
	"github.com/couchcryptid/epi-series-service/internal/config"
	"github.com/couchcryptid/epi-series-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "data", "directory containing the CSSE CSV tables")
	profilePath := flag.String("profile", "", "dataset profile; empty uses the built-in profile")
	flag.Parse()

	os.Exit(run(*dataDir, *profilePath))
}

func run(dataDir, profilePath string) int {
	fmt.Println("=== Epidemic Series Integrity Validation ===")
	fmt.Println()

	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	logger := sharedobs.NewLogger("warn", "text")
	loader := csse.NewLoader(profile.Regions, logger, csse.WithAliases(profile.AliasMap()))

	load := &phase{name: "Tables load with a shared calendar"}
	ds, err := loader.LoadDir(dataDir, csse.Files(profile.Files))
	if err != nil {
		load.errorf("%v", err)
		report([]*phase{load})
		return 1
	}
	fmt.Printf("Loaded %d regions over %d dates from %s\n", len(ds.Regions()), len(ds.Dates()), dataDir)

	phases := []*phase{
		load,
		validateCasesRecorded(ds),
		validateMonotone(ds),
		validateActive(ds),
		validateCharts(ds),
	}
	if !report(phases) {
		return 1
	}
	return 0
}

// report prints the phase table and details. It returns true when every
// phase passed.
func report(phases []*phase) bool {
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		} else if len(p.warnings) > 0 {
			status = fmt.Sprintf("\033[33mPASS (%d warnings)\033[0m", len(p.warnings))
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if len(p.errors) == 0 && len(p.warnings) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  ERROR %s\n", e)
		}
		for _, w := range p.warnings {
			fmt.Printf("  WARN  %s\n", w)
		}
	}

	fmt.Println()
	if allPassed {
		fmt.Println("All checks passed.")
	} else {
		fmt.Println("Validation failed.")
	}
	return allPassed
}

// validateCasesRecorded flags regions whose confirmed series never turns
// positive. Every chart except the raw time series fails for them.
func validateCasesRecorded(ds *domain.Dataset) *phase {
	p := &phase{name: "Confirmed cases recorded"}
	for _, region := range ds.Regions() {
		rs, err := ds.Lookup(region)
		if err != nil {
			p.errorf("%s: %v", region, err)
			continue
		}
		if _, err := domain.FirstCaseIndex(rs.Confirmed); err != nil {
			p.errorf("%s: %v", region, err)
		}
	}
	return p
}

// validateMonotone reports days where a cumulative counter decreases. These
// are source revisions and show up as negative daily values.
func validateMonotone(ds *domain.Dataset) *phase {
	p := &phase{name: "Cumulative counters never decrease"}
	dates := ds.Dates()
	for _, region := range ds.Regions() {
		rs, _ := ds.Lookup(region)
		counters := []struct {
			name   string
			series domain.Series
		}{
			{"confirmed", rs.Confirmed},
			{"deaths", rs.Deaths},
			{"recovered", rs.Recovered},
		}
		for _, c := range counters {
			for _, i := range decreases(c.series) {
				p.warnf("%s %s: %d -> %d on %s", region, c.name,
					c.series[i-1], c.series[i], dateAt(dates, i))
			}
		}
	}
	return p
}

// validateActive reports days after the first active case where recovered
// plus deaths exceeds confirmed.
func validateActive(ds *domain.Dataset) *phase {
	p := &phase{name: "Active cases non-negative"}
	dates := ds.Dates()
	for _, region := range ds.Regions() {
		rs, _ := ds.Lookup(region)
		active, err := domain.ReconstructActive(rs.Confirmed, rs.Recovered, rs.Deaths)
		if err != nil {
			p.warnf("%s: %v", region, err)
			continue
		}
		offset := len(rs.Confirmed) - len(active)
		for i, v := range active {
			if v < 0 {
				p.errorf("%s: active is %d on %s", region, v, dateAt(dates, offset+i))
			}
		}
	}
	return p
}

// validateCharts runs every chart for every region and reports failures other
// than the ones already covered by validateCasesRecorded.
func validateCharts(ds *domain.Dataset) *phase {
	p := &phase{name: "Every chart computes"}
	for _, region := range ds.Regions() {
		for _, chart := range domain.Charts() {
			_, err := domain.Compute(ds, domain.Query{Chart: chart, Regions: []string{region}})
			switch domain.Kind(err) {
			case "", "no_cases_recorded":
			case "no_active_cases":
				p.warnf("%v", err)
			default:
				p.errorf("%v", err)
			}
		}
	}
	return p
}

// decreases returns the indexes i where s[i] < s[i-1].
func decreases(s domain.Series) []int {
	var out []int
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			out = append(out, i)
		}
	}
	return out
}

func dateAt(dates []time.Time, i int) string {
	if i < 0 || i >= len(dates) {
		return fmt.Sprintf("day %d", i)
	}
	return dates[i].Format(time.DateOnly)
}
