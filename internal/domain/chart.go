package domain

import (
	"fmt"
	"strings"
)

// ChartKind enumerates the derived series the engine can compute.
type ChartKind int

const (
	TimeSeries ChartKind = iota + 1
	TimeSeriesSinceFirstCase
	WeeklyVsTotal
	DoublingTime
	DailyCases
	ActiveCases
	RecoveredTotal
	RecoveredPerDay
	DeathsTotal
	DeathsPerDay
	FatalityRatio
)

type chartInfo struct {
	name   string
	title  string
	xLabel string
	yLabel string
}

var chartInfos = map[ChartKind]chartInfo{
	TimeSeries:               {"time_series", "Confirmed cases", "Date", "Confirmed cases"},
	TimeSeriesSinceFirstCase: {"time_series_since_first_case", "Confirmed cases since first case", "Days since first case", "Confirmed cases"},
	WeeklyVsTotal:            {"weekly_vs_total", "Weekly new cases vs total cases", "Total confirmed cases", "New cases in the last 7 days"},
	DoublingTime:             {"doubling_time", "Days to double confirmed cases", "Doubling event", "Days"},
	DailyCases:               {"daily_cases", "New cases per day", "Days since first case", "New cases"},
	ActiveCases:              {"active_cases", "Active cases", "Days since first active case", "Active cases"},
	RecoveredTotal:           {"recovered_total", "Recovered", "Days since first case", "Recovered"},
	RecoveredPerDay:          {"recovered_per_day", "Recovered per day", "Days since first case", "Recovered"},
	DeathsTotal:              {"deaths_total", "Deaths", "Days since first case", "Deaths"},
	DeathsPerDay:             {"deaths_per_day", "Deaths per day", "Days since first case", "Deaths"},
	FatalityRatio:            {"fatality_ratio", "Deaths per 100 confirmed cases", "Days since first case", "Fatality ratio (%)"},
}

// Charts lists every chart kind in declaration order.
func Charts() []ChartKind {
	out := make([]ChartKind, 0, len(chartInfos))
	for k := TimeSeries; k <= FatalityRatio; k++ {
		out = append(out, k)
	}
	return out
}

func (k ChartKind) Valid() bool {
	_, ok := chartInfos[k]
	return ok
}

func (k ChartKind) String() string {
	if info, ok := chartInfos[k]; ok {
		return info.name
	}
	return fmt.Sprintf("ChartKind(%d)", int(k))
}

// Title is the human-readable chart heading.
func (k ChartKind) Title() string { return chartInfos[k].title }

// XLabel is the x-axis caption.
func (k ChartKind) XLabel() string { return chartInfos[k].xLabel }

// YLabel is the y-axis caption.
func (k ChartKind) YLabel() string { return chartInfos[k].yLabel }

func (k ChartKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChart, int(k))
	}
	return []byte(k.String()), nil
}

func (k *ChartKind) UnmarshalText(text []byte) error {
	parsed, err := ParseChartKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseChartKind accepts snake_case ("doubling_time"), kebab-case or
// CamelCase ("DoublingTime") names, case-insensitively.
func ParseChartKind(s string) (ChartKind, error) {
	want := normalizeChartName(s)
	for k, info := range chartInfos {
		if normalizeChartName(info.name) == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChart, s)
}

func normalizeChartName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// ScaleMode selects the y-axis transform. It is carried through queries
// untouched and applied by the renderer.
type ScaleMode int

const (
	ScaleLinear ScaleMode = iota
	ScaleLog
)

func (m ScaleMode) String() string {
	switch m {
	case ScaleLinear:
		return "linear"
	case ScaleLog:
		return "log"
	default:
		return fmt.Sprintf("ScaleMode(%d)", int(m))
	}
}

func (m ScaleMode) MarshalText() ([]byte, error) {
	if m != ScaleLinear && m != ScaleLog {
		return nil, fmt.Errorf("%w: %d", ErrUnknownScale, int(m))
	}
	return []byte(m.String()), nil
}

func (m *ScaleMode) UnmarshalText(text []byte) error {
	parsed, err := ParseScaleMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseScaleMode parses "linear" or "log". An empty string means linear.
func ParseScaleMode(s string) (ScaleMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linear":
		return ScaleLinear, nil
	case "log", "logarithmic":
		return ScaleLog, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownScale, s)
	}
}
