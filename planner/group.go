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
	"regexp"
	"strings"

	log "github.com/golang/glog"
	"github.com/google/or-tools/ortools/sat/go/cpmodel"
)

// ErrInvalidGroup is returned when a constraint group cannot be compiled.
var ErrInvalidGroup = errors.New("invalid constraint group")

// Group is a set of food-name patterns sharing a limit and/or a gap policy.
//
// A food belongs to the group if it matches at least one pattern. A pattern is a list of
// whitespace-separated tokens and matches a food name if every token, read as an unanchored
// regular expression, is found in the name. Tokens may appear in any order.
//
// Limit caps the number of slots whose chosen food belongs to the group. Gap requires that two
// such slots are at least Gap ordinal positions apart, so a gap of 2 forbids neighbors. Nil
// means unset.
type Group struct {
	Name     string
	Patterns []string
	Limit    *int64
	Gap      *int64
}

func (g Group) label(i int) string {
	if g.Name != "" {
		return g.Name
	}
	return fmt.Sprintf("c%d", i)
}

// Matcher tests food names against the compiled patterns of a Group.
type Matcher struct {
	// One conjunction of tokens per pattern.
	patterns [][]*regexp.Regexp
}

// CompileGroup validates `g` and compiles its patterns. The returned error wraps
// ErrInvalidGroup.
func CompileGroup(g Group) (*Matcher, error) {
	if g.Limit != nil && *g.Limit < 0 {
		return nil, fmt.Errorf("group %q: limit %d is negative: %w", g.Name, *g.Limit, ErrInvalidGroup)
	}
	if g.Gap != nil && *g.Gap < 1 {
		return nil, fmt.Errorf("group %q: gap %d must be positive: %w", g.Name, *g.Gap, ErrInvalidGroup)
	}
	m := &Matcher{}
	for i, p := range g.Patterns {
		tokens := strings.Fields(p)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("group %q: pattern %d is blank: %w", g.Name, i, ErrInvalidGroup)
		}
		var conj []*regexp.Regexp
		for _, tok := range tokens {
			re, err := regexp.Compile(tok)
			if err != nil {
				return nil, fmt.Errorf("group %q: pattern %q: %v: %w", g.Name, p, err, ErrInvalidGroup)
			}
			conj = append(conj, re)
		}
		m.patterns = append(m.patterns, conj)
	}
	return m, nil
}

// Match reports whether `food` belongs to the group.
func (m *Matcher) Match(food string) bool {
	for _, conj := range m.patterns {
		if matchAll(conj, food) {
			return true
		}
	}
	return false
}

func matchAll(conj []*regexp.Regexp, food string) bool {
	for _, re := range conj {
		if !re.MatchString(food) {
			return false
		}
	}
	return true
}

// matchingIndices returns the indices of `opts` whose food belongs to the group.
func (m *Matcher) matchingIndices(opts []Option) []int64 {
	var indices []int64
	for i, o := range opts {
		if m.Match(o.Food) {
			indices = append(indices, int64(i))
		}
	}
	return indices
}

// indicator is the match indicator of one modeled slot for one group.
type indicator struct {
	pos int
	lit cpmodel.BoolVar
	// Set when every option of the slot belongs to the group.
	forced bool
}

// addGroup adds the match indicators of group `g` and its limit and gap constraints. Indicators
// are never shared between groups.
func (m *Model) addGroup(gi int, g Group, mt *Matcher) {
	name := g.label(gi)
	var inds []indicator
	for _, sv := range m.slots {
		matching := mt.matchingIndices(sv.entry.Options)
		if len(matching) == 0 {
			continue
		}
		if len(matching) == len(sv.entry.Options) {
			inds = append(inds, indicator{pos: sv.pos, lit: m.cp.TrueVar(), forced: true})
			continue
		}
		complement := make([]int64, 0, len(sv.entry.Options)-len(matching))
		next := 0
		for i := range sv.entry.Options {
			if next < len(matching) && matching[next] == int64(i) {
				next++
				continue
			}
			complement = append(complement, int64(i))
		}

		lit := m.cp.NewBoolVar().WithName(fmt.Sprintf("%s_match_%s_%s", name, sv.entry.Slot.Day, sv.entry.Slot.Meal))
		m.cp.AddLinearConstraintForDomain(sv.sel, cpmodel.FromValues(matching)).OnlyEnforceIf(lit)
		m.cp.AddLinearConstraintForDomain(sv.sel, cpmodel.FromValues(complement)).OnlyEnforceIf(lit.Not())
		inds = append(inds, indicator{pos: sv.pos, lit: lit})
	}
	m.stats.Indicators += len(inds)

	if len(inds) == 0 {
		log.V(1).Infof("group %s matches no option, skipping", name)
		return
	}

	if g.Limit != nil {
		// Forced indicators are constants: they use up the limit before any choice is made.
		var forced int64
		sum := cpmodel.NewLinearExpr()
		free := 0
		for _, ind := range inds {
			if ind.forced {
				forced++
				continue
			}
			sum.Add(ind.lit)
			free++
		}
		switch {
		case forced > *g.Limit:
			m.conflictf("group %s: %d slots only offer matching foods, limit is %d", name, forced, *g.Limit)
		case free > 0:
			m.cp.AddLessOrEqual(sum, cpmodel.NewConstant(*g.Limit-forced)).WithName(name + "_limit")
		}
	}

	if g.Gap != nil {
		gap := int(*g.Gap)
		// inds is sorted by position.
		for i := range inds {
			for j := i + 1; j < len(inds) && inds[j].pos-inds[i].pos < gap; j++ {
				if inds[i].forced && inds[j].forced {
					m.conflictf("group %s: %v and %v only offer matching foods and are closer than gap %d",
						name, m.schedule[inds[i].pos].Slot, m.schedule[inds[j].pos].Slot, gap)
					continue
				}
				m.cp.AddAtMostOne(inds[i].lit, inds[j].lit)
				m.stats.GapPairs++
			}
		}
	}
}
