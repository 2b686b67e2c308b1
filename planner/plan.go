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
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"github.com/samber/lo"

	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
)

// ErrObjectiveMismatch is returned when the scores of the extracted choices do not add up to the
// objective reported by the solver.
var ErrObjectiveMismatch = errors.New("plan score does not match solver objective")

// Choice is the option selected for one slot.
type Choice struct {
	Slot   Slot
	Option Option
	// Index is the position of Option in the slot's option list.
	Index int
	Score int64
	// Alternatives are the other options of the slot, best score first. Ties keep menu order.
	Alternatives []Option
	// Groups lists the names of the constraint groups the chosen food belongs to.
	Groups []string
}

// Plan is the result of a solve. Slots that were not modeled have no choice, which means there is
// nothing to select for them.
type Plan struct {
	Status Status
	// Score is the sum of the scores of all choices.
	Score   int64
	Choices []Choice
	// WallTime is the time spent in the solver.
	WallTime time.Duration
	// Response is the raw solver response. It is nil when no solver was run.
	Response *cmpb.CpSolverResponse
}

// Lookup returns the choice made for `slot`.
func (p *Plan) Lookup(slot Slot) (Choice, bool) {
	return lo.Find(p.Choices, func(c Choice) bool { return c.Slot == slot })
}

// Assignments returns the chosen option of every planned slot.
func (p *Plan) Assignments() map[Slot]Option {
	out := make(map[Slot]Option, len(p.Choices))
	for _, c := range p.Choices {
		out[c.Slot] = c.Option
	}
	return out
}

// ByLocation groups the choices by the location serving the chosen option, keeping plan order
// inside each location.
func (p *Plan) ByLocation() map[string][]Choice {
	return lo.GroupBy(p.Choices, func(c Choice) string { return c.Option.Location })
}

// extract reads the selected options out of a solver response.
func (m *Model) extract(res *cmpb.CpSolverResponse) (*Plan, error) {
	plan := &Plan{Response: res}
	for _, sv := range m.slots {
		idx := cpmodel.SolutionIntegerValue(res, sv.sel)
		if idx < 0 || idx >= int64(len(sv.entry.Options)) {
			return nil, fmt.Errorf("slot %v: selected index %d out of range [0, %d)", sv.entry.Slot, idx, len(sv.entry.Options))
		}
		c := Choice{
			Slot:         sv.entry.Slot,
			Option:       sv.entry.Options[idx],
			Index:        int(idx),
			Score:        sv.scores[idx],
			Alternatives: alternatives(sv, int(idx)),
		}
		for i, g := range m.groups {
			if len(g.Patterns) > 0 && m.matchers[i].Match(c.Option.Food) {
				c.Groups = append(c.Groups, g.label(i))
			}
		}
		plan.Score += c.Score
		plan.Choices = append(plan.Choices, c)
	}

	if obj := res.GetObjectiveValue(); float64(plan.Score) != obj {
		return nil, fmt.Errorf("plan score %d, objective %v: %w", plan.Score, obj, ErrObjectiveMismatch)
	}
	return plan, nil
}

// alternatives returns the options of `sv` other than the chosen one, best score first.
func alternatives(sv slotVars, chosen int) []Option {
	type scored struct {
		opt   Option
		score int64
	}
	var others []scored
	for i, o := range sv.entry.Options {
		if i != chosen && o.Food != sv.entry.Options[chosen].Food {
			others = append(others, scored{o, sv.scores[i]})
		}
	}
	sort.SliceStable(others, func(i, j int) bool { return others[i].score > others[j].score })
	return lo.Map(others, func(s scored, _ int) Option { return s.opt })
}
