package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "backcycle"

// PrometheusRecorder implements Recorder using Prometheus metrics.
//
// Each invocation starts from an empty registry, so every series describes
// the run that wrote the textfile and all of them are gauges.
type PrometheusRecorder struct {
	registry        *prom.Registry
	cycles          *prom.GaugeVec
	removed         *prom.GaugeVec
	skipped         *prom.GaugeVec
	removalFailures *prom.GaugeVec
	manifestSize    *prom.GaugeVec
	cycleDuration   *prom.GaugeVec
	lastCycle       *prom.GaugeVec
}

// NewPrometheusRecorder constructs and registers the cycle metrics on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	labels := []string{"trigger", "storage"}
	gauge := func(name, help string, labelNames []string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labelNames)
	}

	pr := &PrometheusRecorder{
		registry:        reg,
		cycles:          gauge("run_cycles", "Cycles run by this invocation, by outcome", []string{"trigger", "storage", "outcome"}),
		removed:         gauge("run_packages_removed", "Excess packages whose files this invocation removed", labels),
		skipped:         gauge("run_packages_skipped", "Excess no_cycle packages this invocation dropped from the manifest without removal", labels),
		removalFailures: gauge("run_removal_failures", "Excess packages whose removal failed in this invocation", labels),
		manifestSize:    gauge("manifest_packages", "Packages retained in the manifest after the last cycle", labels),
		cycleDuration:   gauge("last_cycle_duration_seconds", "Duration of the last cycle including removals", labels),
		lastCycle:       gauge("last_cycle_timestamp_seconds", "Unix time of the last finished cycle", labels),
	}

	reg.MustRegister(pr.cycles, pr.removed, pr.skipped, pr.removalFailures, pr.manifestSize, pr.cycleDuration, pr.lastCycle)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (pr *PrometheusRecorder) Registry() *prom.Registry {
	return pr.registry
}

// ObserveCycle implements Recorder.
func (pr *PrometheusRecorder) ObserveCycle(obs CycleObservation) {
	pr.cycles.WithLabelValues(obs.Trigger, obs.Storage, obs.Outcome()).Inc()
	pr.cycleDuration.WithLabelValues(obs.Trigger, obs.Storage).Set(obs.Duration.Seconds())
	pr.lastCycle.WithLabelValues(obs.Trigger, obs.Storage).Set(float64(time.Now().Unix()))

	// nothing was persisted on failure
	if obs.Err != nil {
		return
	}
	pr.removed.WithLabelValues(obs.Trigger, obs.Storage).Add(float64(obs.Removed))
	pr.skipped.WithLabelValues(obs.Trigger, obs.Storage).Add(float64(obs.Skipped))
	pr.removalFailures.WithLabelValues(obs.Trigger, obs.Storage).Add(float64(obs.Failed))
	pr.manifestSize.WithLabelValues(obs.Trigger, obs.Storage).Set(float64(obs.Retained))
}

// WriteTextfile writes all registered metrics to path in the text exposition
// format read by the node exporter textfile collector.
func (pr *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, pr.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
