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

// Package menu reads the planner inputs from files and turns user preferences into scores.
//
// Schedules and constraint groups are YAML documents. JSON is valid YAML, so the JSON files
// written by a menu scraper can be read as is.
package menu

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mealsat/mealsat/planner"
	"gopkg.in/yaml.v3"
)

// OptionSpec is one candidate food of a slot.
type OptionSpec struct {
	Food     string `yaml:"food"`
	Meal     string `yaml:"meal"`
	Location string `yaml:"location"`
}

// SlotSpec is one slot with its options.
type SlotSpec struct {
	Day     string       `yaml:"day"`
	Meal    string       `yaml:"meal"`
	Options []OptionSpec `yaml:"options"`
}

// ScheduleFile is the document read by LoadSchedule. Slots are added first, then the location
// menus in file order.
type ScheduleFile struct {
	Slots     []SlotSpec     `yaml:"slots"`
	Locations []LocationMenu `yaml:"locations"`
}

// GroupSpec is one constraint group. Foods and Patterns are concatenated; Foods is the key used
// by older constraint files.
type GroupSpec struct {
	Name     string   `yaml:"name"`
	Foods    []string `yaml:"foods"`
	Patterns []string `yaml:"patterns"`
	Limit    *int64   `yaml:"limit"`
	Gap      *int64   `yaml:"gap"`
}

// Group returns the planner.Group described by g.
func (g GroupSpec) Group() planner.Group {
	return planner.Group{
		Name:     g.Name,
		Patterns: append(append([]string(nil), g.Foods...), g.Patterns...),
		Limit:    g.Limit,
		Gap:      g.Gap,
	}
}

// Schedule builds the planner schedule described by the file.
func (f ScheduleFile) Schedule() planner.Schedule {
	var s planner.Schedule
	for _, spec := range f.Slots {
		slot := planner.Slot{Day: spec.Day, Meal: spec.Meal}
		opts := make([]planner.Option, 0, len(spec.Options))
		for _, o := range spec.Options {
			meal := o.Meal
			if meal == "" {
				meal = spec.Meal
			}
			opts = append(opts, planner.Option{Food: o.Food, Meal: meal, Location: o.Location})
		}
		s.Add(slot, opts...)
	}
	for _, lm := range f.Locations {
		Merge(&s, lm)
	}
	return s
}

// DecodeSchedule reads a schedule document from `r`.
func DecodeSchedule(r io.Reader) (planner.Schedule, error) {
	var f ScheduleFile
	if err := decode(r, &f); err != nil {
		return nil, fmt.Errorf("decoding schedule: %w", err)
	}
	return f.Schedule(), nil
}

// LoadSchedule reads the schedule file at `path`.
func LoadSchedule(path string) (planner.Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := DecodeSchedule(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// DecodeGroups reads a list of constraint groups from `r` and validates them.
func DecodeGroups(r io.Reader) ([]planner.Group, error) {
	var specs []GroupSpec
	if err := decode(r, &specs); err != nil {
		return nil, fmt.Errorf("decoding constraint groups: %w", err)
	}
	groups := make([]planner.Group, 0, len(specs))
	for _, spec := range specs {
		g := spec.Group()
		if _, err := planner.CompileGroup(g); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// LoadGroups reads the constraint groups file at `path`.
func LoadGroups(path string) ([]planner.Group, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	groups, err := DecodeGroups(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return groups, nil
}

// DecodeRanking reads one short food name per line, best first. Blank lines and lines starting
// with '#' are skipped.
func DecodeRanking(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ranking: %w", err)
	}
	return names, nil
}

// LoadRanking reads the ranking file at `path`.
func LoadRanking(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeRanking(f)
}

// decode decodes a single YAML document and rejects unknown fields. An empty input leaves `v`
// untouched.
func decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(v)
}
