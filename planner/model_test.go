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
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"

	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
)

var (
	monLunch = Slot{Day: "Mon", Meal: "Lunch"}
	tueLunch = Slot{Day: "Tue", Meal: "Lunch"}
	wedLunch = Slot{Day: "Wed", Meal: "Lunch"}
	monDin   = Slot{Day: "Mon", Meal: "Dinner"}
)

func lunch(foods ...string) []Option {
	var opts []Option
	for _, f := range foods {
		opts = append(opts, Option{Food: f, Meal: "Lunch", Location: "A"})
	}
	return opts
}

func mustBuild(t *testing.T, s Schedule, p Preferences, groups []Group) *Model {
	t.Helper()
	m, err := Build(s, p, groups)
	if err != nil {
		t.Fatalf("Build() returned with unexpected err %v", err)
	}
	return m
}

func mustProto(t *testing.T, m *Model) *cmpb.CpModelProto {
	t.Helper()
	pb, err := m.Proto()
	if err != nil {
		t.Fatalf("Proto() returned with unexpected err %v", err)
	}
	return pb
}

func TestBuild_SingleSlotProto(t *testing.T) {
	s := Schedule{{Slot: monLunch, Options: lunch("Pizza", "Rice")}}
	p := Preferences{"Pizza": 5, "Rice": 1}

	m := mustBuild(t, s, p, nil)

	want := &cmpb.CpModelProto{
		Variables: []*cmpb.IntegerVariableProto{
			{Name: "meal_Mon_Lunch", Domain: []int64{0, 1}},
			{Name: "score_Mon_Lunch", Domain: []int64{1, 5}},
			{Domain: []int64{5, 5}},
			{Domain: []int64{1, 1}},
		},
		Constraints: []*cmpb.ConstraintProto{
			{
				Constraint: &cmpb.ConstraintProto_Element{
					Element: &cmpb.ElementConstraintProto{Index: 0, Target: 1, Vars: []int32{2, 3}},
				},
			},
		},
		Objective: &cmpb.CpObjectiveProto{
			Vars:          []int32{1},
			Coeffs:        []int64{-1},
			ScalingFactor: -1,
		},
	}
	got := mustProto(t, m)
	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("Proto() returned with unexpected diff (-want+got):\n%s", diff)
	}
}

func TestBuild_IndicatorProto(t *testing.T) {
	s := Schedule{{Slot: monLunch, Options: lunch("Pizza", "Rice", "Pizza Margherita")}}
	p := Preferences{"Pizza": 5, "Rice": 1}
	groups := []Group{{Name: "pizza", Patterns: []string{"Pizza"}, Limit: proto.Int64(1)}}

	m := mustBuild(t, s, p, groups)
	pb := mustProto(t, m)

	// Variables: selection, score, constants 5, 1 and 0, then the indicator.
	wantVar := &cmpb.IntegerVariableProto{Name: "pizza_match_Mon_Lunch", Domain: []int64{0, 1}}
	if diff := cmp.Diff(wantVar, pb.GetVariables()[5], protocmp.Transform()); diff != "" {
		t.Errorf("GetVariables()[5] returned with unexpected diff (-want+got):\n%s", diff)
	}

	want := []*cmpb.ConstraintProto{
		{
			EnforcementLiteral: []int32{5},
			Constraint: &cmpb.ConstraintProto_Linear{
				Linear: &cmpb.LinearConstraintProto{Vars: []int32{0}, Coeffs: []int64{1}, Domain: []int64{0, 0, 2, 2}},
			},
		},
		{
			EnforcementLiteral: []int32{-6},
			Constraint: &cmpb.ConstraintProto_Linear{
				Linear: &cmpb.LinearConstraintProto{Vars: []int32{0}, Coeffs: []int64{1}, Domain: []int64{1, 1}},
			},
		},
		{
			Name: "pizza_limit",
			Constraint: &cmpb.ConstraintProto_Linear{
				Linear: &cmpb.LinearConstraintProto{Vars: []int32{5}, Coeffs: []int64{1}, Domain: []int64{math.MinInt64, 1}},
			},
		},
	}
	got := pb.GetConstraints()[1:]
	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("GetConstraints() returned with unexpected diff (-want+got):\n%s", diff)
	}
}

func TestBuild_MealTypeRestriction(t *testing.T) {
	testCases := []struct {
		name           string
		options        []Option
		wantRestricted int
		wantTable      *cmpb.TableConstraintProto
	}{
		{
			name: "SomeMismatched",
			options: []Option{
				{Food: "Pizza", Meal: "Dinner"},
				{Food: "Steak", Meal: "Dinner"},
				{Food: "Rice", Meal: "Lunch"},
			},
			wantRestricted: 1,
			wantTable:      &cmpb.TableConstraintProto{Vars: []int32{0}, Values: []int64{2}},
		},
		{
			name: "AllMismatched",
			options: []Option{
				{Food: "Pizza", Meal: "Dinner"},
				{Food: "Steak", Meal: "Dinner"},
			},
		},
		{
			name:    "NoneMismatched",
			options: lunch("Pizza", "Rice"),
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			m := mustBuild(t, Schedule{{Slot: monLunch, Options: test.options}}, nil, nil)
			if got := m.Stats().Restricted; got != test.wantRestricted {
				t.Errorf("Stats().Restricted = %v, want %v", got, test.wantRestricted)
			}
			var gotTable *cmpb.TableConstraintProto
			for _, ct := range mustProto(t, m).GetConstraints() {
				if ct.GetTable() != nil {
					gotTable = ct.GetTable()
				}
			}
			if diff := cmp.Diff(test.wantTable, gotTable, protocmp.Transform()); diff != "" {
				t.Errorf("table constraint has unexpected diff (-want+got):\n%s", diff)
			}
		})
	}
}

func TestBuild_Stats(t *testing.T) {
	s := Schedule{
		{Slot: monLunch, Options: lunch("Pizza", "Rice")},
		{Slot: monDin, Options: []Option{{Food: "Pizza", Meal: "Dinner"}, {Food: "Cheese Pizza", Meal: "Dinner"}}},
		{Slot: tueLunch, Options: lunch("Soup", "Rice")},
		{Slot: wedLunch, Options: lunch("Pizza", "Soup")},
	}

	testCases := []struct {
		name  string
		group Group
		want  Stats
	}{
		{
			name:  "LimitOnly",
			group: Group{Patterns: []string{"Pizza"}, Limit: proto.Int64(3)},
			// Mon lunch and Wed lunch get a free indicator, Mon dinner a forced one.
			want: Stats{Slots: 4, Indicators: 3},
		},
		{
			name:  "GapTwo",
			group: Group{Patterns: []string{"Pizza"}, Gap: proto.Int64(2)},
			want:  Stats{Slots: 4, Indicators: 3, GapPairs: 1},
		},
		{
			name:  "GapThree",
			group: Group{Patterns: []string{"Pizza"}, Gap: proto.Int64(3)},
			want:  Stats{Slots: 4, Indicators: 3, GapPairs: 2},
		},
		{
			name:  "NoMatch",
			group: Group{Patterns: []string{"Kebab"}, Limit: proto.Int64(1), Gap: proto.Int64(7)},
			want:  Stats{Slots: 4},
		},
		{
			name:  "NoPatterns",
			group: Group{Limit: proto.Int64(0)},
			want:  Stats{Slots: 4},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			m := mustBuild(t, s, Preferences{"Pizza": 3}, []Group{test.group})
			got := m.Stats()
			got.Variables, got.Constraints = 0, 0
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Stats() returned with unexpected diff (-want+got):\n%s", diff)
			}
		})
	}
}

func TestBuild_EmptySlotKeepsPosition(t *testing.T) {
	s := Schedule{
		{Slot: monLunch, Options: lunch("Pizza", "Rice")},
		{Slot: tueLunch},
		{Slot: wedLunch, Options: lunch("Pizza", "Rice")},
	}

	testCases := []struct {
		gap          int64
		wantGapPairs int
	}{
		{gap: 2, wantGapPairs: 0},
		{gap: 3, wantGapPairs: 1},
	}

	for _, test := range testCases {
		m := mustBuild(t, s, nil, []Group{{Patterns: []string{"Pizza"}, Gap: proto.Int64(test.gap)}})
		got := m.Stats()
		if got.Slots != 2 {
			t.Errorf("gap %d: Stats().Slots = %v, want 2", test.gap, got.Slots)
		}
		if got.GapPairs != test.wantGapPairs {
			t.Errorf("gap %d: Stats().GapPairs = %v, want %v", test.gap, got.GapPairs, test.wantGapPairs)
		}
	}
}

func TestBuild_GroupsDoNotShareIndicators(t *testing.T) {
	s := Schedule{{Slot: monLunch, Options: lunch("Pizza Kebab", "Rice")}}
	groups := []Group{
		{Name: "pizza", Patterns: []string{"Pizza"}, Limit: proto.Int64(1)},
		{Name: "kebab", Patterns: []string{"Kebab"}, Limit: proto.Int64(1)},
	}

	pb := mustProto(t, mustBuild(t, s, nil, groups))

	var names []string
	for _, v := range pb.GetVariables() {
		if v.GetName() != "" {
			names = append(names, v.GetName())
		}
	}
	want := []string{"meal_Mon_Lunch", "score_Mon_Lunch", "pizza_match_Mon_Lunch", "kebab_match_Mon_Lunch"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("variable names have unexpected diff (-want+got):\n%s", diff)
	}
}

func TestBuild_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		schedule Schedule
		groups   []Group
		want     error
	}{
		{
			name: "DuplicateSlot",
			schedule: Schedule{
				{Slot: monLunch, Options: lunch("Pizza")},
				{Slot: monLunch, Options: lunch("Rice")},
			},
			want: ErrDuplicateSlot,
		},
		{
			name:     "MalformedPattern",
			schedule: Schedule{{Slot: monLunch, Options: lunch("Pizza")}},
			groups:   []Group{{Patterns: []string{"Pizza[", "Rice"}}},
			want:     ErrInvalidGroup,
		},
		{
			name:     "MalformedPatternWithoutSlots",
			schedule: nil,
			groups:   []Group{{Patterns: []string{"*"}}},
			want:     ErrInvalidGroup,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := Build(test.schedule, nil, test.groups)
			if !errors.Is(err, test.want) {
				t.Errorf("Build() returned err = %v, want %v", err, test.want)
			}
		})
	}
}

func TestBuild_Conflicts(t *testing.T) {
	allPizza := []Option{{Food: "Pizza", Meal: "Lunch"}, {Food: "Cheese Pizza", Meal: "Lunch"}}

	testCases := []struct {
		name     string
		schedule Schedule
		group    Group
	}{
		{
			name:     "ZeroLimit",
			schedule: Schedule{{Slot: monLunch, Options: allPizza}},
			group:    Group{Patterns: []string{"Pizza"}, Limit: proto.Int64(0)},
		},
		{
			name: "LimitBelowForced",
			schedule: Schedule{
				{Slot: monLunch, Options: allPizza},
				{Slot: tueLunch, Options: allPizza},
			},
			group: Group{Patterns: []string{"Pizza"}, Limit: proto.Int64(1)},
		},
		{
			name: "GapBetweenForced",
			schedule: Schedule{
				{Slot: monLunch, Options: allPizza},
				{Slot: tueLunch, Options: allPizza},
			},
			group: Group{Patterns: []string{"Pizza"}, Gap: proto.Int64(2)},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			m := mustBuild(t, test.schedule, Preferences{"Pizza": 1}, []Group{test.group})
			if len(m.Conflicts()) != 1 {
				t.Fatalf("Conflicts() = %q, want one conflict", m.Conflicts())
			}
			plan, err := m.Solve(Options{})
			if err != nil {
				t.Fatalf("Solve() returned with unexpected err %v", err)
			}
			if plan.Status != StatusNoSolution {
				t.Errorf("Solve() returned status = %v, want %v", plan.Status, StatusNoSolution)
			}
			if len(plan.Choices) != 0 {
				t.Errorf("Solve() returned %d choices, want none", len(plan.Choices))
			}
		})
	}
}

func TestModel_SolveWithoutSlots(t *testing.T) {
	s := Schedule{{Slot: monLunch}, {Slot: tueLunch}}

	plan, err := Solve(s, nil, []Group{{Patterns: []string{"Pizza"}, Limit: proto.Int64(0)}}, Options{})
	if err != nil {
		t.Fatalf("Solve() returned with unexpected err %v", err)
	}
	if plan.Status != StatusOptimal {
		t.Errorf("Solve() returned status = %v, want %v", plan.Status, StatusOptimal)
	}
	if len(plan.Choices) != 0 || plan.Score != 0 {
		t.Errorf("Solve() returned (choices, score) = (%v, %v), want (0, 0)", len(plan.Choices), plan.Score)
	}
}
