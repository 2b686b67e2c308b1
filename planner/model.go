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

// Package planner picks one food per meal slot of a weekly menu so that the total preference
// score is maximal, under per-group limits and minimum gaps.
//
// `Build` turns a Schedule, Preferences and Groups into a CP-SAT model with one selection
// variable and one score variable per slot, plus one match indicator per (slot, group) pair.
// `Model.Solve` hands the model to the CP-SAT solver and extracts a Plan from the response.
// `Solve` does both in one call.
package planner

import (
	"errors"
	"fmt"
	"slices"

	log "github.com/golang/glog"
	"github.com/google/or-tools/ortools/sat/go/cpmodel"

	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
)

// ErrDuplicateSlot is returned by Build when a slot appears twice in a schedule.
var ErrDuplicateSlot = errors.New("duplicate slot in schedule")

// slotVars holds the variables of a modeled slot.
type slotVars struct {
	// Ordinal position of the slot in the schedule.
	pos    int
	entry  Entry
	scores []int64
	sel    cpmodel.IntVar
	score  cpmodel.IntVar
}

// Stats describes the size of a built model.
type Stats struct {
	// Slots is the number of modeled slots, i.e. slots with at least one option.
	Slots       int
	Variables   int
	Constraints int
	// Indicators counts the (slot, group) pairs with at least one matching option.
	Indicators int
	// GapPairs counts the mutual exclusions added for group gaps.
	GapPairs int
	// Restricted counts the slots whose selection was narrowed to options of the slot's meal.
	Restricted int
}

// Model is a CP-SAT model of one planning problem. It is built by Build and is meant to be solved
// once and discarded.
type Model struct {
	cp       *cpmodel.Builder
	schedule Schedule
	prefs    Preferences
	groups   []Group
	matchers []*Matcher
	slots    []slotVars
	stats    Stats
	// Constraints that are violated whatever the choices are.
	conflicts []string
}

// Build creates the model for `schedule`, scored with `prefs` and constrained by `groups`.
//
// Slots without options are left out of the model. Build fails if a group is malformed (see
// CompileGroup) or if the schedule lists the same slot twice.
func Build(schedule Schedule, prefs Preferences, groups []Group) (*Model, error) {
	seen := make(map[Slot]bool, len(schedule))
	for _, e := range schedule {
		if seen[e.Slot] {
			return nil, fmt.Errorf("slot %v: %w", e.Slot, ErrDuplicateSlot)
		}
		seen[e.Slot] = true
	}

	m := &Model{
		cp:       cpmodel.NewCpModelBuilder(),
		schedule: schedule,
		prefs:    prefs,
		groups:   groups,
	}
	for _, g := range groups {
		mt, err := CompileGroup(g)
		if err != nil {
			return nil, err
		}
		m.matchers = append(m.matchers, mt)
	}

	for pos, e := range schedule {
		if len(e.Options) == 0 {
			log.V(1).Infof("slot %v has no options, leaving it out", e.Slot)
			continue
		}
		m.addSlot(pos, e)
	}

	for i, g := range groups {
		if len(g.Patterns) == 0 {
			continue
		}
		m.addGroup(i, g, m.matchers[i])
	}

	m.addObjective()

	pb, err := m.cp.Model()
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate the CP model: %w", err)
	}
	m.stats.Slots = len(m.slots)
	m.stats.Variables = len(pb.GetVariables())
	m.stats.Constraints = len(pb.GetConstraints())
	return m, nil
}

// addSlot creates the selection and score variables of one slot and links them.
func (m *Model) addSlot(pos int, e Entry) {
	n := int64(len(e.Options))
	scores := make([]int64, len(e.Options))
	for i, o := range e.Options {
		scores[i] = m.prefs.Score(o.Food)
	}

	sel := m.cp.NewIntVar(0, n-1).WithName(fmt.Sprintf("meal_%s_%s", e.Slot.Day, e.Slot.Meal))
	score := m.cp.NewIntVar(slices.Min(scores), slices.Max(scores)).WithName(fmt.Sprintf("score_%s_%s", e.Slot.Day, e.Slot.Meal))
	m.cp.AddElement(sel, scores, score)

	// Options tagged with another meal type are menu noise. Only drop them when something is left.
	var valid []int64
	for i, o := range e.Options {
		if o.Meal == e.Slot.Meal {
			valid = append(valid, int64(i))
		}
	}
	if len(valid) > 0 && int64(len(valid)) < n {
		table := m.cp.AddAllowedAssignments(sel)
		for _, i := range valid {
			table.AddTuple(i)
		}
		m.stats.Restricted++
	}

	m.slots = append(m.slots, slotVars{pos: pos, entry: e, scores: scores, sel: sel, score: score})
}

// addObjective maximizes the sum of the score variables.
func (m *Model) addObjective() {
	obj := cpmodel.NewLinearExpr()
	for _, sv := range m.slots {
		obj.Add(sv.score)
	}
	m.cp.Maximize(obj)
}

func (m *Model) conflictf(format string, a ...any) {
	c := fmt.Sprintf(format, a...)
	log.Warningf("model is infeasible: %s", c)
	m.conflicts = append(m.conflicts, c)
}

// Conflicts describes the group constraints that no assignment can satisfy, such as a limit lower
// than the number of slots that only offer matching foods. A model with conflicts solves to
// StatusNoSolution.
func (m *Model) Conflicts() []string {
	return m.conflicts
}

// Proto returns the underlying CP model proto. It must not be modified.
func (m *Model) Proto() (*cmpb.CpModelProto, error) {
	return m.cp.Model()
}

// Stats returns the size of the model.
func (m *Model) Stats() Stats {
	return m.stats
}
