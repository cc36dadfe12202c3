// Package testutil provides shared derby fixtures for tests across packages.
package testutil

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/trajectory"
)

// Hit returns a valid four-sample flight of 300 ft ending at 4.5 s. Speeds
// start at exitVelocity and fall off; the projected distance is four times
// the exit velocity.
func Hit(id, playerID string, round int, exitVelocity float64) *trajectory.Hit {
	ev := exitVelocity
	return &trajectory.Hit{
		ID:       id,
		PlayerID: playerID,
		RoundID:  round,
		X:        []float64{0, 2, 4, 6},
		Y:        []float64{0, 100, 200, 300},
		Z:        []float64{3, 80, 90, 0},
		T:        []float64{0, 1.5, 3, 4.5},
		Speeds:   []float64{ev, ev - 10, ev - 20, ev - 25},
		Metrics: map[string]trajectory.Metric{
			trajectory.MetricExitVelocity:      {Value: ev, Scale: "MPH"},
			trajectory.MetricProjectedDistance: {Value: ev * 4, Scale: "FT"},
		},
	}
}

// TwoPlayerDataset has p1 "Alice" with hits a1 (round 1, 105 mph) and a2
// (round 2, 110 mph), then p2 "Bob" with b1 (round 1, 100 mph).
func TwoPlayerDataset(t testing.TB) *dataset.Dataset {
	t.Helper()
	d := dataset.New()
	d.AddPlayer("p1", "Alice")
	d.AddPlayer("p2", "Bob")
	for _, h := range []*trajectory.Hit{
		Hit("a1", "p1", 1, 105),
		Hit("a2", "p1", 2, 110),
		Hit("b1", "p2", 1, 100),
	} {
		if err := d.AddHit(h); err != nil {
			t.Fatalf("AddHit(%s) failed: %v", h.ID, err)
		}
	}
	return d
}

// WriteJSON marshals v into dir/name and returns the path.
func WriteJSON(t testing.TB, dir, name string, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d (%s), want %d", got, http.StatusText(got), want)
	}
}
