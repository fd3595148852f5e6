package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/repository"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// Journal stores capture records in the capital_captures table.
type Journal struct {
	db *sql.DB
}

var _ repository.ConquestJournal = (*Journal)(nil)

// NewJournal creates a Journal.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

const captureColumns = `id, day, settlement, old_faction, new_faction, capturer, cause, steps, created_at`

// SaveCapture inserts a capture record. Saving the same record twice is a no-op.
func (j *Journal) SaveCapture(ctx context.Context, rec *model.CaptureRecord) error {
	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO capital_captures (id, day, settlement, old_faction, new_faction, capturer, cause, steps, failed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, int64(rec.Day), rec.Settlement, rec.OldFaction, rec.NewFaction, rec.Capturer,
		rec.Cause, steps, rec.Failed(), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save capture: %w", err)
	}
	return nil
}

// RecentCaptures returns the newest records first.
func (j *Journal) RecentCaptures(ctx context.Context, limit int) ([]model.CaptureRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+captureColumns+` FROM capital_captures ORDER BY created_at DESC, day DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent captures: %w", err)
	}
	defer rows.Close()
	return scanCaptures(rows)
}

// CapturesOf returns every capture of one settlement, newest first.
func (j *Journal) CapturesOf(ctx context.Context, settlement capitals.SettlementID) ([]model.CaptureRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+captureColumns+` FROM capital_captures WHERE settlement = $1 ORDER BY created_at DESC`, settlement)
	if err != nil {
		return nil, fmt.Errorf("captures of %s: %w", settlement, err)
	}
	defer rows.Close()
	return scanCaptures(rows)
}

func scanCaptures(rows *sql.Rows) ([]model.CaptureRecord, error) {
	var out []model.CaptureRecord
	for rows.Next() {
		var (
			r     model.CaptureRecord
			day   int64
			steps []byte
		)
		if err := rows.Scan(&r.ID, &day, &r.Settlement, &r.OldFaction, &r.NewFaction, &r.Capturer,
			&r.Cause, &steps, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		r.Day = uint64(day)
		if err := json.Unmarshal(steps, &r.Steps); err != nil {
			return nil, fmt.Errorf("decode steps of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
