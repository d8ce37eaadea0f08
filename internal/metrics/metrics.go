// Package metrics exposes forecast results as Prometheus gauges written to a
// node_exporter textfile after each run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

// Metrics holds the gauges for one forecast run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	QualifyProbability   prometheus.Gauge
	ExpectedDistricts    prometheus.Gauge
	StatewideProbability prometheus.Gauge
	SkippedRows          prometheus.Gauge
	DistrictProbability  *prometheus.GaugeVec
	VerifiedSignatures   *prometheus.GaugeVec
}

// New creates a Metrics instance with all gauges registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QualifyProbability: factory.NewGauge(prometheus.GaugeOpts{
			Name: "qualifyodds_qualify_probability",
			Help: "Correlation-adjusted probability of qualifying",
		}),
		ExpectedDistricts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "qualifyodds_expected_districts",
			Help: "Expected number of districts meeting threshold",
		}),
		StatewideProbability: factory.NewGauge(prometheus.GaugeOpts{
			Name: "qualifyodds_statewide_probability",
			Help: "Probability of reaching the statewide signature target",
		}),
		SkippedRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "qualifyodds_skipped_rows",
			Help: "Input rows skipped as malformed or outside the district table",
		}),
		DistrictProbability: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qualifyodds_district_probability",
			Help: "Probability that a district meets its threshold",
		}, []string{"district"}),
		VerifiedSignatures: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qualifyodds_verified_signatures",
			Help: "Verified signatures per district",
		}, []string{"district"}),
	}
}

// Record sets every gauge from a report.
func (m *Metrics) Record(r *models.Report) {
	if m == nil || r == nil {
		return
	}
	m.QualifyProbability.Set(r.Overall.PQualify)
	m.ExpectedDistricts.Set(r.Overall.ExpectedDistricts)
	m.StatewideProbability.Set(r.Statewide.Probability)
	m.SkippedRows.Set(float64(r.Meta.SkippedRows))
	for _, d := range r.Districts {
		label := strconv.Itoa(d.District)
		m.DistrictProbability.WithLabelValues(label).Set(d.Prob)
		m.VerifiedSignatures.WithLabelValues(label).Set(float64(d.Verified))
	}
}

// WriteTextfile writes the registry in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
