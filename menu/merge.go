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

package menu

import (
	"github.com/mealsat/mealsat/planner"
)

// Item is one dish on a raw menu.
type Item struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price,omitempty"`
}

// MealMenu lists the items served for one meal.
type MealMenu struct {
	Meal  string `yaml:"meal"`
	Items []Item `yaml:"items"`
}

// DayMenu lists the meals served on one day.
type DayMenu struct {
	Day   string     `yaml:"day"`
	Meals []MealMenu `yaml:"meals"`
}

// LocationMenu is the raw weekly menu of a single location.
type LocationMenu struct {
	Location string    `yaml:"location"`
	Days     []DayMenu `yaml:"days"`
}

// Merge adds the items of `lm` to `s`. Items of a (day, meal) already present in `s` are appended
// to its options, so menus of several locations serving the same slot end up in one entry. New
// slots are appended in menu order.
func Merge(s *planner.Schedule, lm LocationMenu) {
	for _, dm := range lm.Days {
		for _, mm := range dm.Meals {
			slot := planner.Slot{Day: dm.Day, Meal: mm.Meal}
			opts := make([]planner.Option, 0, len(mm.Items))
			for _, it := range mm.Items {
				opts = append(opts, planner.Option{Food: it.Name, Meal: mm.Meal, Location: lm.Location})
			}
			s.Add(slot, opts...)
		}
	}
}
