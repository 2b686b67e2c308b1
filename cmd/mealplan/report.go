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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealsat/mealsat/ledger"
	"github.com/mealsat/mealsat/planner"
	"github.com/samber/lo"
)

type reservation struct {
	Day          string   `json:"day"`
	Meal         string   `json:"meal"`
	Food         string   `json:"food"`
	Score        int64    `json:"score"`
	Alternatives []string `json:"alternatives,omitempty"`
	Groups       []string `json:"groups,omitempty"`
}

type report struct {
	RunID      string                   `json:"run_id"`
	Status     string                   `json:"status"`
	Score      int64                    `json:"score"`
	WallTimeMS int64                    `json:"wall_time_ms"`
	Locations  map[string][]reservation `json:"locations"`
}

func newReport(runID string, p *planner.Plan) report {
	r := report{
		RunID:      runID,
		Status:     p.Status.String(),
		Score:      p.Score,
		WallTimeMS: p.WallTime.Milliseconds(),
		Locations:  make(map[string][]reservation),
	}
	for loc, cs := range p.ByLocation() {
		r.Locations[loc] = lo.Map(cs, func(c planner.Choice, _ int) reservation {
			return reservation{
				Day:          c.Slot.Day,
				Meal:         c.Slot.Meal,
				Food:         c.Option.Food,
				Score:        c.Score,
				Alternatives: lo.Map(c.Alternatives, func(o planner.Option, _ int) string { return o.Food }),
				Groups:       c.Groups,
			}
		})
	}
	return r
}

// writeJSON writes the plan as an indented JSON document.
func writeJSON(w io.Writer, r report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// writeText writes the plan grouped by location, locations in name order.
func writeText(w io.Writer, r report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	fmt.Fprintf(&b, "Status: %s\n", r.Status)
	if r.Status == planner.StatusNoSolution.String() {
		b.WriteString("No plan satisfies the constraints.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "Score: %d\n", r.Score)

	locs := lo.Keys(r.Locations)
	sort.Strings(locs)
	for _, loc := range locs {
		fmt.Fprintf(&b, "\n%s\n", loc)
		for _, res := range r.Locations[loc] {
			fmt.Fprintf(&b, "  %s %s: %s (%d)\n", res.Day, res.Meal, res.Food, res.Score)
			if len(res.Alternatives) > 0 {
				fmt.Fprintf(&b, "    fallback: %s\n", strings.Join(res.Alternatives, ", "))
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeRuns writes one line per recorded run.
func writeRuns(w io.Writer, runs []ledger.Run) error {
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "%s  %s  %s  score %d  %v\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Status, r.Score, r.WallTime)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeChoices writes the recorded choices of run `id` in plan order.
func writeChoices(w io.Writer, id uuid.UUID, choices []planner.Choice) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", id)
	for _, c := range choices {
		fmt.Fprintf(&b, "  %s %s: %s at %s (%d)\n", c.Slot.Day, c.Slot.Meal, c.Option.Food, c.Option.Location, c.Score)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeFoods lists the ledger foods, marking the ones in `added` with a '+'.
func writeFoods(w io.Writer, all, added []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Foods: %d (%d new)\n", len(all), len(added))
	for _, f := range all {
		mark := " "
		if lo.Contains(added, f) {
			mark = "+"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, f)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
