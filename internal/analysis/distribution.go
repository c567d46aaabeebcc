package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/particle-size-mcp/internal/detection"
	"gonum.org/v1/gonum/stat"
)

// ErrUnknownMetric is returned when a metric name cannot be parsed.
var ErrUnknownMetric = errors.New("unknown particle metric")

// Metric selects one per-particle measurement.
type Metric int

const (
	ShortAxis Metric = iota
	LongAxis
	MeanDiameter
	EquivalentDiameter
	Area
	Circularity
	AspectRatio
)

// SizeMetrics are the length metrics reported by DistributionStats.
var SizeMetrics = []Metric{ShortAxis, LongAxis, MeanDiameter, EquivalentDiameter}

var metricNames = map[Metric]string{
	ShortAxis:          "short_axis_um",
	LongAxis:           "long_axis_um",
	MeanDiameter:       "mean_diameter_um",
	EquivalentDiameter: "equivalent_diameter_um",
	Area:               "area_um2",
	Circularity:        "circularity",
	AspectRatio:        "aspect_ratio",
}

// String returns the metric's record field name.
func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// ParseMetric parses a metric name such as "equivalent_diameter_um".
func ParseMetric(s string) (Metric, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range metricNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if _, ok := metricNames[m]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMetric, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MetricValues extracts one measurement from every record, in record order.
func MetricValues(records []detection.ParticleRecord, m Metric) []float64 {
	get := metricGetter(m)
	values := make([]float64, len(records))
	for i := range records {
		values[i] = get(&records[i])
	}
	return values
}

func metricGetter(m Metric) func(*detection.ParticleRecord) float64 {
	switch m {
	case ShortAxis:
		return func(r *detection.ParticleRecord) float64 { return r.ShortAxisUm }
	case LongAxis:
		return func(r *detection.ParticleRecord) float64 { return r.LongAxisUm }
	case MeanDiameter:
		return func(r *detection.ParticleRecord) float64 { return r.MeanDiameterUm }
	case Area:
		return func(r *detection.ParticleRecord) float64 { return r.AreaUm2 }
	case Circularity:
		return func(r *detection.ParticleRecord) float64 { return r.Circularity }
	case AspectRatio:
		return func(r *detection.ParticleRecord) float64 { return r.AspectRatio }
	default:
		return func(r *detection.ParticleRecord) float64 { return r.EquivalentDiameterUm }
	}
}

// MetricReport bundles the statistics of one metric with its optional
// lognormal fit.
type MetricReport struct {
	Metric    Metric        `json:"metric"`
	Stats     Stats         `json:"stats"`
	Lognormal *LognormalFit `json:"lognormal,omitempty"`
}

// Analyze computes the statistics and lognormal fit of one metric.
func Analyze(records []detection.ParticleRecord, m Metric) MetricReport {
	values := MetricValues(records, m)
	report := MetricReport{Metric: m, Stats: ComputeStatistics(values)}
	if fit, ok := FitLognormal(values); ok {
		report.Lognormal = fit
	}
	return report
}

// DistributionStats returns the statistics of every size metric, keyed by
// metric name. Metrics are recomputed from the records on each call.
func DistributionStats(records []detection.ParticleRecord) map[string]Stats {
	out := make(map[string]Stats, len(SizeMetrics))
	for _, m := range SizeMetrics {
		out[m.String()] = ComputeStatistics(MetricValues(records, m))
	}
	return out
}

// Summary is the headline view of a detection run.
type Summary struct {
	Count                    int     `json:"count"`
	MeanAreaUm2              float64 `json:"mean_area_um2"`
	MeanEquivalentDiameterUm float64 `json:"mean_equivalent_diameter_um"`
	MeanCircularity          float64 `json:"mean_circularity"`
}

// Summarize returns the particle count and the mean area, equivalent
// diameter and circularity. No records gives the zero value.
func Summarize(records []detection.ParticleRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}
	return Summary{
		Count:                    len(records),
		MeanAreaUm2:              stat.Mean(MetricValues(records, Area), nil),
		MeanEquivalentDiameterUm: stat.Mean(MetricValues(records, EquivalentDiameter), nil),
		MeanCircularity:          stat.Mean(MetricValues(records, Circularity), nil),
	}
}
