// Package sqlite provides a single-file capture journal for deployments without
// PostgreSQL.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/repository"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// Journal stores capture records in a SQLite database.
type Journal struct {
	conn *sqlx.DB
}

var _ repository.ConquestJournal = (*Journal)(nil)

// pragmas are applied by the modernc driver on every new connection.
const pragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	conn, err := sqlx.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)

	j := &Journal{conn: conn}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS capital_captures (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		day INTEGER NOT NULL,
		settlement TEXT NOT NULL,
		old_faction TEXT NOT NULL,
		new_faction TEXT NOT NULL,
		capturer TEXT NOT NULL,
		cause TEXT NOT NULL,
		steps_json TEXT NOT NULL,
		failed INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_captures_settlement ON capital_captures(settlement);
	`
	_, err := j.conn.Exec(schema)
	return err
}

type captureRow struct {
	ID         string `db:"id"`
	Day        int64  `db:"day"`
	Settlement string `db:"settlement"`
	OldFaction string `db:"old_faction"`
	NewFaction string `db:"new_faction"`
	Capturer   string `db:"capturer"`
	Cause      string `db:"cause"`
	StepsJSON  string `db:"steps_json"`
	CreatedAt  string `db:"created_at"`
}

func (r captureRow) record() (model.CaptureRecord, error) {
	rec := model.CaptureRecord{
		ID:         r.ID,
		Day:        uint64(r.Day),
		Settlement: capitals.SettlementID(r.Settlement),
		OldFaction: capitals.FactionID(r.OldFaction),
		NewFaction: capitals.FactionID(r.NewFaction),
		Capturer:   capitals.HeroID(r.Capturer),
		Cause:      capitals.ChangeCause(r.Cause),
	}
	if err := json.Unmarshal([]byte(r.StepsJSON), &rec.Steps); err != nil {
		return rec, fmt.Errorf("decode steps of %s: %w", r.ID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return rec, fmt.Errorf("parse created_at of %s: %w", r.ID, err)
	}
	rec.CreatedAt = t
	return rec, nil
}

const selectCaptures = `SELECT id, day, settlement, old_faction, new_faction, capturer, cause, steps_json, created_at
	FROM capital_captures`

// SaveCapture appends a capture record. Saving the same record twice is a no-op.
func (j *Journal) SaveCapture(ctx context.Context, rec *model.CaptureRecord) error {
	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	failed := 0
	if rec.Failed() {
		failed = 1
	}
	_, err = j.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO capital_captures
		(id, day, settlement, old_faction, new_faction, capturer, cause, steps_json, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, int64(rec.Day), string(rec.Settlement), string(rec.OldFaction), string(rec.NewFaction),
		string(rec.Capturer), string(rec.Cause), string(steps), failed,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save capture: %w", err)
	}
	return nil
}

// RecentCaptures returns the newest records first.
func (j *Journal) RecentCaptures(ctx context.Context, limit int) ([]model.CaptureRecord, error) {
	var rows []captureRow
	if err := j.conn.SelectContext(ctx, &rows, selectCaptures+` ORDER BY seq DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("recent captures: %w", err)
	}
	return records(rows)
}

// CapturesOf returns every capture of one settlement, newest first.
func (j *Journal) CapturesOf(ctx context.Context, settlement capitals.SettlementID) ([]model.CaptureRecord, error) {
	var rows []captureRow
	if err := j.conn.SelectContext(ctx, &rows, selectCaptures+` WHERE settlement = ? ORDER BY seq DESC`, string(settlement)); err != nil {
		return nil, fmt.Errorf("captures of %s: %w", settlement, err)
	}
	return records(rows)
}

func records(rows []captureRow) ([]model.CaptureRecord, error) {
	out := make([]model.CaptureRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
