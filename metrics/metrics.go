// Copyright 2026 The mealsat Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exports Prometheus collectors describing planner runs.
package metrics

import (
	"fmt"

	"github.com/mealsat/mealsat/planner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "mealplan"

// Recorder holds the planner collectors.
type Recorder struct {
	Solves     *prometheus.CounterVec
	Duration   prometheus.Histogram
	Score      prometheus.Gauge
	ModelSize  *prometheus.GaugeVec
	NewFoods   prometheus.Counter
	Unresolved prometheus.Counter
	Conflicts  prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with `reg`.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		Solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "solves_total", Help: "Solve runs by final status."},
			[]string{"status"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Namespace: namespace, Name: "solve_duration_seconds", Help: "Wall time spent in the solver.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}},
		),
		Score: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "plan_score", Help: "Total preference score of the last plan."},
		),
		ModelSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "model_size", Help: "Size of the last built model by kind."},
			[]string{"kind"},
		),
		NewFoods: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "new_foods_total", Help: "Foods added to the ledger."},
		),
		Unresolved: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "unresolved_preferences_total", Help: "Preferences matching no food."},
		),
		Conflicts: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "model_conflicts", Help: "Group conflicts found while building the last model."},
		),
	}
	for _, c := range []prometheus.Collector{r.Solves, r.Duration, r.Score, r.ModelSize, r.NewFoods, r.Unresolved, r.Conflicts} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}
	return r, nil
}

// NewRegistry returns a registry holding a Recorder plus the Go and process collectors.
func NewRegistry() (*prometheus.Registry, *Recorder, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r, err := NewRecorder(reg)
	if err != nil {
		return nil, nil, err
	}
	return reg, r, nil
}

// ObserveModel records the size of a built model.
func (r *Recorder) ObserveModel(st planner.Stats, conflicts int) {
	r.ModelSize.WithLabelValues("slots").Set(float64(st.Slots))
	r.ModelSize.WithLabelValues("variables").Set(float64(st.Variables))
	r.ModelSize.WithLabelValues("constraints").Set(float64(st.Constraints))
	r.ModelSize.WithLabelValues("indicators").Set(float64(st.Indicators))
	r.ModelSize.WithLabelValues("gap_pairs").Set(float64(st.GapPairs))
	r.ModelSize.WithLabelValues("restricted_slots").Set(float64(st.Restricted))
	r.Conflicts.Set(float64(conflicts))
}

// ObservePlan records the outcome of a solve.
func (r *Recorder) ObservePlan(p *planner.Plan) {
	r.Solves.WithLabelValues(p.Status.String()).Inc()
	r.Duration.Observe(p.WallTime.Seconds())
	if p.Status.HasSolution() {
		r.Score.Set(float64(p.Score))
	}
}

// ObserveError counts a solve that failed with an error.
func (r *Recorder) ObserveError() {
	r.Solves.WithLabelValues("ERROR").Inc()
}

// WriteTextfile writes the metrics gathered from `g` to `path` in the text exposition format, for
// pickup by the node exporter textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
