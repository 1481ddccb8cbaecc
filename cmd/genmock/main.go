// Command genmock writes synthetic JHU CSSE global time-series tables
// (confirmed, deaths, recovered) for local runs and tests. Each region follows
// a logistic growth curve whose size and onset vary with its position in the
// profile, so the output is fully deterministic.
//
// Usage:
//
//	go run ./cmd/genmock -out data -days 120
//	go run ./cmd/genmock -out data -profile profile.yaml
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/epi-series-service/internal/config"
)

// firstDate is the first column of the real CSSE tables.
var firstDate = time.Date(2020, time.January, 22, 0, 0, 0, 0, time.UTC)

const (
	deathLag     = 7
	recoveryLag  = 14
	fatalityRate = 0.03
	recoveryRate = 0.8
)

// regionCurves holds the three cumulative counters generated for one region.
type regionCurves struct {
	region    string
	confirmed []int64
	deaths    []int64
	recovered []int64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data", "directory to write the three CSV tables to")
	days := flag.Int("days", 120, "number of date columns")
	profilePath := flag.String("profile", "", "dataset profile (regions and file names); empty uses the built-in profile")
	flag.Parse()

	if *days < 1 {
		flag.Usage()
		return fmt.Errorf("-days must be positive")
	}

	profile, err := config.LoadProfile(*profilePath)
	if err != nil {
		return err
	}

	curves := make([]regionCurves, len(profile.Regions))
	for i, region := range profile.Regions {
		curves[i] = generate(region, i, *days)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	tables := []struct {
		file string
		pick func(regionCurves) []int64
	}{
		{profile.Files.Confirmed, func(c regionCurves) []int64 { return c.confirmed }},
		{profile.Files.Deaths, func(c regionCurves) []int64 { return c.deaths }},
		{profile.Files.Recovered, func(c regionCurves) []int64 { return c.recovered }},
	}
	for _, t := range tables {
		path := filepath.Join(*outDir, t.file)
		if err := writeTable(path, *days, curves, t.pick); err != nil {
			return fmt.Errorf("writing %s: %w", t.file, err)
		}
		log.Printf("wrote %s (%d regions, %d days)", path, len(curves), *days)
	}
	return nil
}

// generate builds a logistic confirmed curve and derives lagged deaths and
// recoveries from it. Active cases never go negative.
func generate(region string, idx, days int) regionCurves {
	capacity := 5000.0 * float64(idx+1)
	rate := 0.15 + 0.01*float64(idx%5)
	midpoint := 40.0 + 2.0*float64(idx)

	c := regionCurves{
		region:    region,
		confirmed: make([]int64, days),
		deaths:    make([]int64, days),
		recovered: make([]int64, days),
	}
	for t := range days {
		v := capacity / (1 + math.Exp(-rate*(float64(t)-midpoint)))
		c.confirmed[t] = int64(math.Floor(v))
	}
	for t := range days {
		c.deaths[t] = lagged(c.confirmed, t, deathLag, fatalityRate)
		c.recovered[t] = lagged(c.confirmed, t, recoveryLag, recoveryRate)
	}
	return c
}

func lagged(confirmed []int64, t, lag int, share float64) int64 {
	if t < lag {
		return 0
	}
	return int64(math.Floor(float64(confirmed[t-lag]) * share))
}

func writeTable(path string, days int, curves []regionCurves, pick func(regionCurves) []int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"Province/State", "Country/Region", "Lat", "Long"}
	for d := range days {
		header = append(header, firstDate.AddDate(0, 0, d).Format("1/2/06"))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, c := range curves {
		row := []string{"", c.region, "0", "0"}
		for _, v := range pick(c) {
			row = append(row, strconv.FormatInt(v, 10))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
