package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/trajectory"
)

// samples is the column encoding of a hit's parallel sample arrays.
type samples struct {
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
	Z      []float64 `json:"z"`
	T      []float64 `json:"t"`
	Speeds []float64 `json:"speeds"`
}

// SaveDataset replaces the stored dataset with d in one transaction.
// Player ordinals and per-round hit order are preserved.
func (db *DB) SaveDataset(ctx context.Context, d *dataset.Dataset) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM hits`); err != nil {
		return fmt.Errorf("failed to clear hits: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM players`); err != nil {
		return fmt.Errorf("failed to clear players: %w", err)
	}

	playerStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO players (player_id, name, ordinal) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer playerStmt.Close()

	hitStmt, err := tx.PrepareContext(ctx, `INSERT INTO hits (
			hit_id, player_id, round_id, seq, samples_json, metrics_json,
			sample_count, end_time, exit_velocity, projected_distance
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer hitStmt.Close()

	count := 0
	for _, p := range d.Players() {
		if _, err := playerStmt.ExecContext(ctx, p.ID, p.Name, p.Ordinal); err != nil {
			return fmt.Errorf("failed to insert player %s: %w", p.ID, err)
		}
		for _, r := range p.Rounds {
			for seq, h := range r.Hits {
				sampleJSON, err := json.Marshal(samples{X: h.X, Y: h.Y, Z: h.Z, T: h.T, Speeds: h.Speeds})
				if err != nil {
					return fmt.Errorf("failed to encode samples for hit %s: %w", h.ID, err)
				}
				metricJSON, err := json.Marshal(h.Metrics)
				if err != nil {
					return fmt.Errorf("failed to encode metrics for hit %s: %w", h.ID, err)
				}
				if _, err := hitStmt.ExecContext(ctx,
					h.ID, p.ID, r.ID, seq, string(sampleJSON), string(metricJSON),
					h.Len(), h.EndTime(), h.ExitVelocity(), h.ProjectedDistance(),
				); err != nil {
					return fmt.Errorf("failed to insert hit %s: %w", h.ID, err)
				}
				count++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}
	log.Printf("[db] saved %d players, %d hits to %s", len(d.Players()), count, db.path)
	return nil
}

// LoadDataset reads the stored dataset. Rows that no longer validate are
// rejected the same way as in a JSON load.
func (db *DB) LoadDataset(ctx context.Context) (*dataset.Dataset, dataset.LoadReport, error) {
	var report dataset.LoadReport
	d := dataset.New()

	prows, err := db.QueryContext(ctx, `SELECT player_id, name FROM players ORDER BY ordinal`)
	if err != nil {
		return nil, report, fmt.Errorf("failed to query players: %w", err)
	}
	for prows.Next() {
		var id, name string
		if err := prows.Scan(&id, &name); err != nil {
			prows.Close()
			return nil, report, fmt.Errorf("failed to scan player: %w", err)
		}
		d.AddPlayer(id, name)
	}
	prows.Close()
	if err := prows.Err(); err != nil {
		return nil, report, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT h.hit_id, h.player_id, h.round_id, h.samples_json, h.metrics_json
		FROM hits h
		JOIN players p ON p.player_id = h.player_id
		ORDER BY p.ordinal, h.round_id, h.seq`)
	if err != nil {
		return nil, report, fmt.Errorf("failed to query hits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return nil, report, err
		}
		d.AddOrReject(h, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, report, err
	}
	return d, report, nil
}

func scanHit(rows *sql.Rows) (*trajectory.Hit, error) {
	var (
		h                       trajectory.Hit
		sampleJSON, metricsJSON string
	)
	if err := rows.Scan(&h.ID, &h.PlayerID, &h.RoundID, &sampleJSON, &metricsJSON); err != nil {
		return nil, fmt.Errorf("failed to scan hit: %w", err)
	}
	var s samples
	if err := json.Unmarshal([]byte(sampleJSON), &s); err != nil {
		return nil, fmt.Errorf("failed to decode samples for hit %s: %w", h.ID, err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &h.Metrics); err != nil {
		return nil, fmt.Errorf("failed to decode metrics for hit %s: %w", h.ID, err)
	}
	h.X, h.Y, h.Z, h.T, h.Speeds = s.X, s.Y, s.Z, s.T, s.Speeds
	return &h, nil
}

// HitCount returns the number of stored hits.
func (db *DB) HitCount(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hits`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count hits: %w", err)
	}
	return n, nil
}
