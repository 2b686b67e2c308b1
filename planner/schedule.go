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

import "fmt"

// Slot is one meal opportunity, identified by its day label and meal-type label.
type Slot struct {
	Day  string
	Meal string
}

func (s Slot) String() string {
	return fmt.Sprintf("%s/%s", s.Day, s.Meal)
}

// Option is a candidate food for a slot. Meal is the meal-type label the menu attached to the
// food, which is normally equal to the meal of the slot it is offered in.
type Option struct {
	Food     string
	Meal     string
	Location string
}

// Entry holds the ordered candidate options of a single slot.
type Entry struct {
	Slot    Slot
	Options []Option
}

// Schedule is an ordered list of slots with their options.
//
// The position of an entry in the schedule is its ordinal position: group gaps are measured in
// positions, not in calendar days. Callers must put entries in the order in which the gap should
// be counted, usually chronological with lunch before dinner. Entries without options keep their
// position but are never modeled.
type Schedule []Entry

// Add appends `opts` to the entry of `slot`, creating the entry at the end of the schedule if it
// does not exist yet.
func (s *Schedule) Add(slot Slot, opts ...Option) {
	for i := range *s {
		if (*s)[i].Slot == slot {
			(*s)[i].Options = append((*s)[i].Options, opts...)
			return
		}
	}
	*s = append(*s, Entry{Slot: slot, Options: append([]Option(nil), opts...)})
}

// Foods returns the distinct food names offered anywhere in the schedule, in first-seen order.
func (s Schedule) Foods() []string {
	seen := make(map[string]bool)
	var foods []string
	for _, e := range s {
		for _, o := range e.Options {
			if !seen[o.Food] {
				seen[o.Food] = true
				foods = append(foods, o.Food)
			}
		}
	}
	return foods
}

// Preferences maps food names to integer scores. Foods missing from the table score 0.
type Preferences map[string]int64

// Score returns the score of `food`.
func (p Preferences) Score(food string) int64 {
	return p[food]
}
