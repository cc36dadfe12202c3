package db

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/trajectory"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "derby.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleHit(id, player string, round int, ev float64) *trajectory.Hit {
	return &trajectory.Hit{
		ID:       id,
		PlayerID: player,
		RoundID:  round,
		X:        []float64{0, 1.5, 3},
		Y:        []float64{0, 150, 300},
		Z:        []float64{3, 90, 0},
		T:        []float64{0, 2.25, 4.5},
		Speeds:   []float64{ev, ev - 20, ev - 30},
		Metrics: map[string]trajectory.Metric{
			trajectory.MetricExitVelocity:      {Value: ev, Scale: "MPH"},
			trajectory.MetricProjectedDistance: {Value: ev * 4, Scale: "FT"},
			trajectory.MetricLaunchAngle:       {Value: 27, Scale: "deg"},
		},
	}
}

func sampleDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	d := dataset.New()
	d.AddPlayer("zz", "Zed")
	d.AddPlayer("aa", "Ann")
	for _, h := range []*trajectory.Hit{
		sampleHit("z-2a", "zz", 2, 110),
		sampleHit("z-1a", "zz", 1, 104),
		sampleHit("z-1b", "zz", 1, 99),
		sampleHit("a-1a", "aa", 1, 101),
	} {
		if err := d.AddHit(h); err != nil {
			t.Fatalf("AddHit(%s) failed: %v", h.ID, err)
		}
	}
	return d
}

func allHits(t *testing.T, d *dataset.Dataset) []*trajectory.Hit {
	t.Helper()
	v, err := d.View(dataset.AllHits)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	return v.Hits
}

func TestOpenDB_MigratesAndSetsPragmas(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("version = %d dirty = %v, want 2 clean", version, dirty)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	var foreignKeys int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("Failed to query foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("Expected foreign_keys=1, got %d", foreignKeys)
	}
}

func TestOpenDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "derby.db")
	first, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	first.Close()

	second, err := OpenDB(path)
	if err != nil {
		t.Fatalf("reopening migrated store failed: %v", err)
	}
	defer second.Close()
	if second.Path() != path {
		t.Errorf("Path() = %q, want %q", second.Path(), path)
	}
}

func TestMigrateDownAndUp(t *testing.T) {
	db := openTestDB(t)
	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	if v, _, _ := db.MigrateVersion(); v != 1 {
		t.Errorf("version after down = %d, want 1", v)
	}
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if v, _, _ := db.MigrateVersion(); v != 2 {
		t.Errorf("version after up = %d, want 2", v)
	}
}

func TestSaveLoadDataset_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	want := sampleDataset(t)

	if err := db.SaveDataset(ctx, want); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}
	n, err := db.HitCount(ctx)
	if err != nil || n != 4 {
		t.Fatalf("HitCount = %d, %v; want 4", n, err)
	}

	got, report, err := db.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if report.Loaded != 4 || report.Rejected != 0 {
		t.Errorf("report = %+v, want 4 loaded", report)
	}

	if got.Players()[0].ID != "zz" || got.Players()[1].ID != "aa" {
		t.Errorf("player order not preserved: %s, %s", got.Players()[0].ID, got.Players()[1].ID)
	}
	if diff := cmp.Diff(allHits(t, want), allHits(t, got)); diff != "" {
		t.Errorf("hits differ after round trip (-want +got):\n%s", diff)
	}
}

func TestSaveDataset_Replaces(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.SaveDataset(ctx, sampleDataset(t)); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}

	small := dataset.New()
	small.AddPlayer("solo", "Solo")
	if err := small.AddHit(sampleHit("s1", "solo", 3, 100)); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveDataset(ctx, small); err != nil {
		t.Fatalf("second SaveDataset failed: %v", err)
	}

	got, _, err := db.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if got.Len() != 1 || len(got.Players()) != 1 {
		t.Errorf("expected only the second dataset, got %d hits / %d players", got.Len(), len(got.Players()))
	}
}

func TestLoadDataset_RejectsCorruptRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.SaveDataset(ctx, sampleDataset(t)); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}
	if _, err := db.Exec(`UPDATE hits SET samples_json = '{"x":[0,1],"y":[5,1],"z":[0,0],"t":[0,1],"speeds":[1,1]}' WHERE hit_id = 'a-1a'`); err != nil {
		t.Fatal(err)
	}

	got, report, err := db.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if report.Rejected != 1 || got.Len() != 3 {
		t.Errorf("report = %+v, len = %d; want 1 rejected, 3 kept", report, got.Len())
	}
}

func TestHitSummaryView(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveDataset(context.Background(), sampleDataset(t)); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}

	rows, err := db.Query(`SELECT player, round_id, hits FROM hit_summary`)
	if err != nil {
		t.Fatalf("query hit_summary failed: %v", err)
	}
	defer rows.Close()

	type row struct {
		Player string
		Round  int
		Hits   int
	}
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.Player, &r.Round, &r.Hits); err != nil {
			t.Fatal(err)
		}
		got = append(got, r)
	}
	want := []row{{"Zed", 1, 2}, {"Zed", 2, 1}, {"Ann", 1, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hit_summary mismatch (-want +got):\n%s", diff)
	}
}

func TestAttachAdminRoutes_Backup(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveDataset(context.Background(), sampleDataset(t)); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}

	mux := http.NewServeMux()
	if err := db.AttachAdminRoutes(mux); err != nil {
		t.Fatalf("AttachAdminRoutes failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	req.RemoteAddr = "127.0.0.1:40000" // debug routes only answer local callers
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("backup is not gzip: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 16 || string(data[:15]) != "SQLite format 3" {
		t.Errorf("backup does not look like a SQLite file")
	}
}
