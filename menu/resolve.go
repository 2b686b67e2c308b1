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
	"strings"

	log "github.com/golang/glog"
	"github.com/mealsat/mealsat/planner"
	"github.com/samber/lo"
)

// containsWords reports whether every whitespace separated word of `short` occurs in `full`.
func containsWords(full, short string) bool {
	words := strings.Fields(short)
	if len(words) == 0 {
		return false
	}
	return lo.EveryBy(words, func(w string) bool { return strings.Contains(full, w) })
}

// Resolve maps each short name of `ranked` to a full food name of `foods`.
//
// A full name matches a short name when it contains all of its words. Among several matches the
// shortest full name wins, ties going to the earliest in `foods`. A full name is used at most once,
// so a later short name cannot claim a food already resolved. Short names without a match are
// logged and dropped; the result keeps the order of `ranked`.
func Resolve(foods, ranked []string) []string {
	pool := lo.Uniq(foods)
	var out []string
	for _, short := range ranked {
		matches := lo.Filter(pool, func(full string, _ int) bool { return containsWords(full, short) })
		if len(matches) == 0 {
			log.Warningf("No food matches preference %q", short)
			continue
		}
		best := lo.MinBy(matches, func(a, b string) bool { return len(a) < len(b) })
		log.V(1).Infof("Preference %q resolved to %q", short, best)
		out = append(out, best)
		pool = lo.Without(pool, best)
	}
	return out
}

// RankScores scores a best-first ranking: with n names, the i-th (0-based) scores n-i. Repeated
// names keep their first score.
func RankScores(ranked []string) planner.Preferences {
	n := int64(len(ranked))
	prefs := make(planner.Preferences, len(ranked))
	for i, name := range ranked {
		if _, ok := prefs[name]; ok {
			continue
		}
		prefs[name] = n - int64(i)
	}
	return prefs
}

// Preferences resolves `ranked` against the foods of `s` and scores the result.
func Preferences(s planner.Schedule, ranked []string) planner.Preferences {
	return RankScores(Resolve(s.Foods(), ranked))
}
