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

// Package ledger persists the foods seen across weekly menus and the history of solved plans in a
// SQLite database.
//
// The foods table is append-only: a name is recorded the first time it is seen and never
// rewritten, so the ledger can be used to spot dishes new to the menu.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/mealsat/mealsat/planner"

	_ "modernc.org/sqlite"
)

// ErrUnknownRun is returned when a run id is not in the ledger.
var ErrUnknownRun = errors.New("unknown run")

const schema = `
CREATE TABLE IF NOT EXISTS foods (
    name TEXT PRIMARY KEY,
    first_seen DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL,
    status TEXT NOT NULL,
    score INTEGER NOT NULL,
    wall_time_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS choices (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    day TEXT NOT NULL,
    meal TEXT NOT NULL,
    food TEXT NOT NULL,
    food_meal TEXT NOT NULL,
    location TEXT NOT NULL,
    score INTEGER NOT NULL,
    PRIMARY KEY (run_id, position),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Ledger is a handle on the ledger database. It is safe for concurrent use.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Run is one recorded solve.
type Run struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Status    string
	Score     int64
	WallTime  time.Duration
}

// Open opens or creates the ledger at `path`.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	// A single connection keeps writers serialized on the file.
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db, now: time.Now}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return l, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordFoods adds the names of `foods` not yet in the ledger and returns them, sorted.
func (l *Ledger) RecordFoods(ctx context.Context, foods []string) ([]string, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := l.now().UTC()
	var added []string
	for _, name := range foods {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO foods (name, first_seen) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`, name, now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert food %q: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			added = append(added, name)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit foods: %w", err)
	}
	sort.Strings(added)
	log.V(1).Infof("Ledger recorded %d new foods out of %d", len(added), len(foods))
	return added, nil
}

// Foods returns every food in the ledger, sorted by name.
func (l *Ledger) Foods(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT name FROM foods ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	var foods []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan food: %w", err)
		}
		foods = append(foods, name)
	}
	return foods, rows.Err()
}

// SavePlan records `plan` under `id`. Plans without a solution are recorded without choices.
func (l *Ledger) SavePlan(ctx context.Context, id uuid.UUID, plan *planner.Plan) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, status, score, wall_time_ms) VALUES (?, ?, ?, ?, ?)`,
		id.String(), l.now().UTC(), plan.Status.String(), plan.Score, plan.WallTime.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", id, err)
	}

	for i, c := range plan.Choices {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO choices (run_id, position, day, meal, food, food_meal, location, score) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id.String(), i, c.Slot.Day, c.Slot.Meal, c.Option.Food, c.Option.Meal, c.Option.Location, c.Score)
		if err != nil {
			return fmt.Errorf("failed to insert choice %v: %w", c.Slot, err)
		}
	}
	return tx.Commit()
}

// Runs returns up to `limit` recorded runs, most recent first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, created_at, status, score, wall_time_ms FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r      Run
			id     string
			wallMS int64
		)
		if err := rows.Scan(&id, &r.CreatedAt, &r.Status, &r.Score, &wallMS); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run %q: %w", id, err)
		}
		r.WallTime = time.Duration(wallMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Choices returns the choices recorded for run `id` in plan order. Only the slot, option and score
// of a choice are persisted.
func (l *Ledger) Choices(ctx context.Context, id uuid.UUID) ([]planner.Choice, error) {
	var exists int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id.String()).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRun, id)
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT day, meal, food, food_meal, location, score FROM choices WHERE run_id = ? ORDER BY position`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query choices: %w", err)
	}
	defer rows.Close()

	var choices []planner.Choice
	for rows.Next() {
		var c planner.Choice
		if err := rows.Scan(&c.Slot.Day, &c.Slot.Meal, &c.Option.Food, &c.Option.Meal, &c.Option.Location, &c.Score); err != nil {
			return nil, fmt.Errorf("failed to scan choice: %w", err)
		}
		choices = append(choices, c)
	}
	return choices, rows.Err()
}
