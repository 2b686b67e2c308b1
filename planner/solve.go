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

package planner

import (
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"google.golang.org/protobuf/proto"

	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	sppb "github.com/google/or-tools/ortools/sat/proto/satparameters"
)

// Status is the outcome of a solve.
type Status int

const (
	// StatusNoSolution means the model is infeasible or no assignment was found in time.
	StatusNoSolution Status = iota
	// StatusFeasible means an assignment was found but the time limit stopped the optimality proof.
	StatusFeasible
	// StatusOptimal means the assignment is proven optimal.
	StatusOptimal
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusNoSolution:
		return "NO_SOLUTION"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// HasSolution reports whether a plan with this status carries an assignment.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Options configures the solver.
type Options struct {
	// TimeLimit bounds the solve duration. Zero means no limit.
	TimeLimit time.Duration
	// NumWorkers is the number of parallel search workers. Zero lets CP-SAT decide.
	NumWorkers int32
	// LogSearchProgress makes CP-SAT log its search.
	LogSearchProgress bool
	// Interrupt stops the search when closed. The best assignment found so far is kept.
	Interrupt <-chan struct{}
}

// Parameters returns the CP-SAT parameters for `o`.
func (o Options) Parameters() *sppb.SatParameters {
	params := &sppb.SatParameters{}
	if o.TimeLimit > 0 {
		params.MaxTimeInSeconds = proto.Float64(o.TimeLimit.Seconds())
	}
	if o.NumWorkers > 0 {
		params.NumWorkers = proto.Int32(o.NumWorkers)
	}
	if o.LogSearchProgress {
		params.LogSearchProgress = proto.Bool(true)
	}
	return params
}

// statusFromProto maps a CP-SAT status onto a Status. The second result is false for statuses
// that indicate a broken model rather than an answer.
func statusFromProto(s cmpb.CpSolverStatus) (Status, bool) {
	switch s {
	case cmpb.CpSolverStatus_OPTIMAL:
		return StatusOptimal, true
	case cmpb.CpSolverStatus_FEASIBLE:
		return StatusFeasible, true
	case cmpb.CpSolverStatus_INFEASIBLE, cmpb.CpSolverStatus_UNKNOWN:
		return StatusNoSolution, true
	}
	return StatusNoSolution, false
}

// Solve solves the model and extracts the plan.
//
// Infeasibility is not an error: it is reported as StatusNoSolution with an empty plan. An error is
// returned only if the solver could not be run or rejected the model.
func (m *Model) Solve(opts Options) (*Plan, error) {
	if len(m.slots) == 0 {
		log.Infof("no slot has options, nothing to solve")
		return &Plan{Status: StatusOptimal}, nil
	}

	if len(m.conflicts) > 0 {
		log.Infof("skipping solver, %d group constraints cannot be met", len(m.conflicts))
		return &Plan{Status: StatusNoSolution}, nil
	}

	pb, err := m.cp.Model()
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate the CP model: %w", err)
	}

	log.Infof("solving %d slots (%d variables, %d constraints)", m.stats.Slots, m.stats.Variables, m.stats.Constraints)
	start := time.Now()
	var res *cmpb.CpSolverResponse
	if opts.Interrupt != nil {
		res, err = cpmodel.SolveCpModelInterruptibleWithParameters(pb, opts.Parameters(), opts.Interrupt)
	} else {
		res, err = cpmodel.SolveCpModelWithParameters(pb, opts.Parameters())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to solve the model: %w", err)
	}
	wall := time.Since(start)

	status, ok := statusFromProto(res.GetStatus())
	if !ok {
		return nil, fmt.Errorf("solver returned status %v: %s", res.GetStatus(), res.GetSolutionInfo())
	}
	log.Infof("solver returned %v (objective %v) in %v", res.GetStatus(), res.GetObjectiveValue(), wall)

	if !status.HasSolution() {
		return &Plan{Status: status, WallTime: wall, Response: res}, nil
	}
	plan, err := m.extract(res)
	if err != nil {
		return nil, err
	}
	plan.Status = status
	plan.WallTime = wall
	return plan, nil
}

// Solve builds the model for `schedule` and solves it. See Build and Model.Solve.
func Solve(schedule Schedule, prefs Preferences, groups []Group, opts Options) (*Plan, error) {
	m, err := Build(schedule, prefs, groups)
	if err != nil {
		return nil, err
	}
	return m.Solve(opts)
}
