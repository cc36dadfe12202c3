// Command derby-import samples a polynomial hits export into the dataset
// JSON consumed by derbyviz, and optionally into the SQLite store.
//
// Usage:
//
//	go run ./cmd/tools/derby-import -in raw.json -out hits.json [-db derby.db]
//	go run ./cmd/tools/derby-import -url https://example.com/hrs.json -db derby.db
//
// Flags:
//
//	-in           Raw polynomial export on disk
//	-url          Raw polynomial export to fetch over HTTP
//	-out          Dataset JSON to write
//	-db           SQLite store to replace with the imported hits
//	-config       Derby config JSON (samples_per_hit, min_landing_time)
//	-samples      Override samples_per_hit
//	-min-landing  Override min_landing_time, in seconds
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	in := flag.String("in", "", "Raw polynomial export to read")
	url := flag.String("url", "", "Raw polynomial export to fetch")
	out := flag.String("out", "", "Dataset JSON to write")
	dbPath := flag.String("db", "", "SQLite store to write")
	configPath := flag.String("config", "", "Derby config JSON")
	samples := flag.Int("samples", 0, "Samples per hit (0 uses config)")
	minLanding := flag.Float64("min-landing", 0, "Minimum landing time in seconds (0 uses config)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := importOptions{
		In:         *in,
		URL:        *url,
		Out:        *out,
		DBPath:     *dbPath,
		ConfigPath: *configPath,
		Samples:    *samples,
		MinLanding: *minLanding,
	}
	report, err := RunImport(ctx, opts, nil)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	log.Printf("done: loaded=%d rejected=%d", report.Loaded, report.Rejected)
}
