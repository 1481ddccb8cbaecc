package csse

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/epi-series-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFiles = Files{
	Confirmed: "confirmed.csv",
	Deaths:    "deaths.csv",
	Recovered: "recovered.csv",
}

const testHeader = "Province/State,Country/Region,Lat,Long,1/22/20,1/23/20\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadDir(t *testing.T) {
	loader := NewLoader([]string{"Argentina", "Australia", "Korea, South", "Peru"}, discardLogger(),
		WithAliases(map[string]string{"Korea, South": "South Korea"}))

	ds, err := loader.LoadDir("testdata", testFiles)
	require.NoError(t, err)

	assert.Equal(t, []string{"Argentina", "Australia", "Korea, South", "Peru"}, ds.Regions())

	dates := ds.Dates()
	require.Len(t, dates, 5)
	assert.Equal(t, time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2020, 1, 26, 0, 0, 0, 0, time.UTC), dates[4])

	t.Run("single-row country", func(t *testing.T) {
		rs, err := ds.Lookup("Argentina")
		require.NoError(t, err)
		assert.Equal(t, domain.Series{0, 1, 3, 5, 8}, rs.Confirmed)
		assert.Equal(t, domain.Series{0, 0, 0, 1, 2}, rs.Deaths)
		assert.Equal(t, domain.Series{0, 0, 1, 2, 2}, rs.Recovered)
	})

	t.Run("provinces are summed", func(t *testing.T) {
		rs, err := ds.Lookup("Australia")
		require.NoError(t, err)
		assert.Equal(t, domain.Series{1, 2, 4, 5, 7}, rs.Confirmed)
		assert.Equal(t, domain.Series{0, 0, 0, 1, 1}, rs.Deaths)
		assert.Equal(t, domain.Series{0, 0, 1, 2, 3}, rs.Recovered, "float cells are accepted")
	})

	t.Run("quoted key and empty cell", func(t *testing.T) {
		rs, err := ds.Lookup("Korea, South")
		require.NoError(t, err)
		assert.Equal(t, domain.Series{0, 0, 0, 0, 0}, rs.Deaths)
		assert.Equal(t, "South Korea", ds.DisplayName("Korea, South"))
	})

	t.Run("unselected regions are dropped", func(t *testing.T) {
		_, err := ds.Lookup("Brazil")
		assert.ErrorIs(t, err, domain.ErrUnknownRegion)
	})
}

func TestLoad_AllRegionsWhenUnfiltered(t *testing.T) {
	ds, err := NewLoader(nil, discardLogger()).LoadDir("testdata", testFiles)
	require.NoError(t, err)
	assert.Equal(t, []string{"Argentina", "Australia", "Brazil", "Korea, South", "Peru"}, ds.Regions())
}

func TestLoad_MissingConfiguredRegionIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ds, err := NewLoader([]string{"Brazil", "Atlantis"}, logger).LoadDir("testdata", testFiles)
	require.NoError(t, err)
	assert.Equal(t, []string{"Brazil"}, ds.Regions())
	assert.Contains(t, buf.String(), "Atlantis")
}

func tables(confirmed, deaths, recovered string) Tables {
	return Tables{
		Confirmed: strings.NewReader(confirmed),
		Deaths:    strings.NewReader(deaths),
		Recovered: strings.NewReader(recovered),
	}
}

func TestLoad_Inconsistencies(t *testing.T) {
	row := ",Chile,0,0,1,2\n"

	t.Run("calendar mismatch", func(t *testing.T) {
		other := "Province/State,Country/Region,Lat,Long,1/22/20,1/24/20\n" + row
		_, err := NewLoader(nil, discardLogger()).Load(tables(testHeader+row, other, testHeader+row))
		require.ErrorIs(t, err, domain.ErrDataInconsistency)
		assert.Contains(t, err.Error(), "deaths")
	})

	t.Run("date count mismatch", func(t *testing.T) {
		other := "Province/State,Country/Region,Lat,Long,1/22/20\n,Chile,0,0,1\n"
		_, err := NewLoader(nil, discardLogger()).Load(tables(testHeader+row, testHeader+row, other))
		assert.ErrorIs(t, err, domain.ErrDataInconsistency)
	})

	t.Run("region missing from recovered", func(t *testing.T) {
		_, err := NewLoader(nil, discardLogger()).Load(tables(testHeader+row, testHeader+row, testHeader+",Peru,0,0,1,1\n"))
		require.ErrorIs(t, err, domain.ErrDataInconsistency)
		assert.Equal(t, "Chile", domain.FailedRegion(err))
	})

	t.Run("short row", func(t *testing.T) {
		_, err := NewLoader(nil, discardLogger()).Load(tables(testHeader+",Chile,0,0,1\n", testHeader+row, testHeader+row))
		assert.ErrorIs(t, err, domain.ErrDataInconsistency)
	})

	t.Run("negative count", func(t *testing.T) {
		_, err := NewLoader(nil, discardLogger()).Load(tables(testHeader+",Chile,0,0,1,-2\n", testHeader+row, testHeader+row))
		assert.ErrorIs(t, err, domain.ErrDataInconsistency)
	})
}

func TestLoad_MalformedInput(t *testing.T) {
	row := ",Chile,0,0,1,2\n"

	tests := []struct {
		name      string
		confirmed string
		want      string
	}{
		{"missing country column", "Province/State,Lat,Long,1/22/20\n", "header must contain"},
		{"bad date column", "Province/State,Country/Region,Lat,Long,Jan 22\n", "date column"},
		{"bad count", testHeader + ",Chile,0,0,1,many\n", "invalid count"},
		{"empty table", "", "read header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(nil, discardLogger()).Load(tables(tt.confirmed, testHeader+row, testHeader+row))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("byte order mark", func(t *testing.T) {
		ds, err := NewLoader(nil, discardLogger()).Load(tables("\ufeff"+testHeader+row, testHeader+row, testHeader+row))
		require.NoError(t, err)
		assert.Equal(t, []string{"Chile"}, ds.Regions())
	})
}

func TestLoadDir_MissingFile(t *testing.T) {
	_, err := NewLoader(nil, discardLogger()).LoadDir("testdata", Files{Confirmed: "confirmed.csv", Deaths: "nope.csv", Recovered: "recovered.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open table")
}
