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

// The mealplan command picks one food per meal slot of a weekly menu, maximizing the ranked
// preferences of the user under the frequency and spacing limits of the constraint groups.
//
// With -update it only records the foods of the menu in the ledger. With -history or -run it
// prints plans recorded in the ledger by earlier runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/mealsat/mealsat/ledger"
	"github.com/mealsat/mealsat/menu"
	"github.com/mealsat/mealsat/metrics"
	"github.com/mealsat/mealsat/planner"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/prototext"
)

var (
	scheduleFile    = flag.String("schedule", "", "Schedule file (YAML or JSON).")
	preferencesFile = flag.String("preferences", "", "Ranked preferences, one short food name per line, best first.")
	constraintsFile = flag.String("constraints", "", "Constraint groups file (YAML or JSON). Optional.")
	timeLimit       = flag.Duration("time_limit", 0, "Solver time limit. Zero means no limit.")
	numWorkers      = flag.Int64("workers", 0, "Number of solver workers. Zero lets the solver decide.")
	logSearch       = flag.Bool("log_search", false, "Log the solver search progress.")
	ledgerFile      = flag.String("ledger", "", "SQLite ledger of seen foods and solved plans.")
	metricsFile     = flag.String("metrics_textfile", "", "Write Prometheus metrics to this file. Optional.")
	dumpModel       = flag.String("dump_model", "", "Write the CP model in text format to this file. Optional.")
	dumpResponse    = flag.String("dump_response", "", "Write the solver response in JSON format to this file. Optional.")
	jsonOutput      = flag.Bool("json", false, "Print the plan as JSON.")
	updateOnly      = flag.Bool("update", false, "Only record the foods of the schedule in the ledger and list them. Needs -ledger.")
	historySize     = flag.Int("history", 0, "Print the last N runs recorded in the ledger, then exit. Needs -ledger.")
	runID           = flag.String("run", "", "Print the choices of this recorded run, then exit. Needs -ledger.")
)

var errUsage = errors.New("usage")

// config holds the command line settings of one invocation.
type config struct {
	schedule     string
	preferences  string
	constraints  string
	timeLimit    time.Duration
	workers      int64
	logSearch    bool
	ledger       string
	metrics      string
	dumpModel    string
	dumpResponse string
	json         bool
	update       bool
	history      int
	run          string
}

func configFromFlags() config {
	return config{
		schedule:     *scheduleFile,
		preferences:  *preferencesFile,
		constraints:  *constraintsFile,
		timeLimit:    *timeLimit,
		workers:      *numWorkers,
		logSearch:    *logSearch,
		ledger:       *ledgerFile,
		metrics:      *metricsFile,
		dumpModel:    *dumpModel,
		dumpResponse: *dumpResponse,
		json:         *jsonOutput,
		update:       *updateOnly,
		history:      *historySize,
		run:          *runID,
	}
}

func (c config) historyMode() bool {
	return c.history > 0 || c.run != ""
}

// validate checks the flag combination. Every returned error wraps errUsage.
func (c config) validate() error {
	if c.workers < 0 || c.workers > math.MaxInt32 {
		return fmt.Errorf("%w: -workers %d is outside [0, %d]", errUsage, c.workers, math.MaxInt32)
	}
	if c.timeLimit < 0 {
		return fmt.Errorf("%w: -time_limit %v is negative", errUsage, c.timeLimit)
	}
	if c.history < 0 {
		return fmt.Errorf("%w: -history %d is negative", errUsage, c.history)
	}
	if c.run != "" {
		if _, err := uuid.Parse(c.run); err != nil {
			return fmt.Errorf("%w: -run %q: %v", errUsage, c.run, err)
		}
	}
	switch {
	case c.historyMode() && c.ledger == "":
		return fmt.Errorf("%w: -history and -run need -ledger", errUsage)
	case c.historyMode():
		return nil
	case c.update && c.ledger == "":
		return fmt.Errorf("%w: -update needs -ledger", errUsage)
	case c.schedule == "":
		return fmt.Errorf("%w: -schedule is required", errUsage)
	case !c.update && c.preferences == "":
		return fmt.Errorf("%w: -preferences is required", errUsage)
	}
	return nil
}

type runner struct {
	cfg    config
	rec    *metrics.Recorder
	ledger *ledger.Ledger
	out    io.Writer
	// Closing interrupt stops the solver. May be nil.
	interrupt <-chan struct{}
}

// recordFoods adds the foods of `s` to the ledger and returns the ones it had not seen.
func (r *runner) recordFoods(ctx context.Context, s planner.Schedule) ([]string, error) {
	if r.ledger == nil {
		return nil, nil
	}
	added, err := r.ledger.RecordFoods(ctx, s.Foods())
	if err != nil {
		return nil, err
	}
	r.rec.NewFoods.Add(float64(len(added)))
	for _, f := range added {
		log.Infof("new food on the menu: %s", f)
	}
	return added, nil
}

func (r *runner) preferences(s planner.Schedule) (planner.Preferences, error) {
	ranked, err := menu.LoadRanking(r.cfg.preferences)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	prefs := menu.Preferences(s, ranked)
	// Resolved names are distinct, so every one of them has an entry.
	r.rec.Unresolved.Add(float64(len(ranked) - len(prefs)))
	return prefs, nil
}

func (r *runner) build(s planner.Schedule, prefs planner.Preferences) (*planner.Model, error) {
	var groups []planner.Group
	if r.cfg.constraints != "" {
		var err error
		if groups, err = menu.LoadGroups(r.cfg.constraints); err != nil {
			return nil, fmt.Errorf("failed to load constraints: %w", err)
		}
	}
	m, err := planner.Build(s, prefs, groups)
	if err != nil {
		return nil, err
	}
	r.rec.ObserveModel(m.Stats(), len(m.Conflicts()))

	if r.cfg.dumpModel != "" {
		pb, err := m.Proto()
		if err != nil {
			return nil, err
		}
		data, err := prototext.MarshalOptions{Multiline: true}.Marshal(pb)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal model: %w", err)
		}
		if err := os.WriteFile(r.cfg.dumpModel, data, 0o644); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// history prints recorded runs and the choices of one of them.
func (r *runner) history(ctx context.Context) error {
	if r.cfg.history > 0 {
		runs, err := r.ledger.Runs(ctx, r.cfg.history)
		if err != nil {
			return err
		}
		if err := writeRuns(r.out, runs); err != nil {
			return err
		}
	}
	if r.cfg.run != "" {
		id := uuid.MustParse(r.cfg.run)
		choices, err := r.ledger.Choices(ctx, id)
		if err != nil {
			return err
		}
		return writeChoices(r.out, id, choices)
	}
	return nil
}

// update records the foods of `s` and lists the whole ledger, new foods marked.
func (r *runner) update(ctx context.Context, s planner.Schedule) error {
	added, err := r.recordFoods(ctx, s)
	if err != nil {
		return err
	}
	all, err := r.ledger.Foods(ctx)
	if err != nil {
		return err
	}
	return writeFoods(r.out, all, added)
}

func (r *runner) run(ctx context.Context) error {
	if r.cfg.historyMode() {
		return r.history(ctx)
	}

	s, err := menu.LoadSchedule(r.cfg.schedule)
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}
	if r.cfg.update {
		return r.update(ctx, s)
	}
	if _, err := r.recordFoods(ctx, s); err != nil {
		return err
	}

	prefs, err := r.preferences(s)
	if err != nil {
		return err
	}
	m, err := r.build(s, prefs)
	if err != nil {
		return err
	}

	plan, err := m.Solve(planner.Options{
		TimeLimit:         r.cfg.timeLimit,
		NumWorkers:        int32(r.cfg.workers),
		LogSearchProgress: r.cfg.logSearch,
		Interrupt:         r.interrupt,
	})
	if err != nil {
		r.rec.ObserveError()
		return err
	}
	r.rec.ObservePlan(plan)

	if r.cfg.dumpResponse != "" && plan.Response != nil {
		data, err := protojson.MarshalOptions{Multiline: true}.Marshal(plan.Response)
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		if err := os.WriteFile(r.cfg.dumpResponse, data, 0o644); err != nil {
			return err
		}
	}

	id := uuid.New()
	if r.ledger != nil {
		// The interrupt that ended the search may also have cancelled ctx.
		if err := r.ledger.SavePlan(context.WithoutCancel(ctx), id, plan); err != nil {
			return err
		}
	}

	rep := newReport(id.String(), plan)
	if r.cfg.json {
		return writeJSON(r.out, rep)
	}
	return writeText(r.out, rep)
}

// mealplan runs one invocation described by `cfg`, writing its report to `out`.
func mealplan(ctx context.Context, cfg config, out io.Writer, interrupt <-chan struct{}) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	reg, rec, err := metrics.NewRegistry()
	if err != nil {
		return err
	}
	r := &runner{cfg: cfg, rec: rec, out: out, interrupt: interrupt}
	if cfg.ledger != "" {
		if r.ledger, err = ledger.Open(ctx, cfg.ledger); err != nil {
			return err
		}
		defer r.ledger.Close()
	}

	start := time.Now()
	runErr := r.run(ctx)
	log.V(1).Infof("run finished in %v", time.Since(start))

	if cfg.metrics != "" {
		if err := metrics.WriteTextfile(reg, cfg.metrics); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func main() {
	flag.Parse()
	defer log.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := mealplan(ctx, configFromFlags(), os.Stdout, ctx.Done()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		log.Exitf("mealplan returned with error: %v", err)
	}
}
