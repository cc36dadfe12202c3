package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/derbyviz/internal/config"
	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/db"
	"github.com/banshee-data/derbyviz/internal/httputil"
	"github.com/banshee-data/derbyviz/internal/security"
)

const maxRawSize = 64 * 1024 * 1024

type importOptions struct {
	In         string
	URL        string
	Out        string
	DBPath     string
	ConfigPath string
	Samples    int
	MinLanding float64
}

func (o importOptions) validate() error {
	if (o.In == "") == (o.URL == "") {
		return errors.New("exactly one of -in or -url is required")
	}
	if o.Out == "" && o.DBPath == "" {
		return errors.New("at least one of -out or -db is required")
	}
	if o.Out != "" {
		return security.ValidateExportPath(o.Out)
	}
	return nil
}

// openRaw returns the raw export from disk or, with -url, from client.
func openRaw(ctx context.Context, o importOptions, client httputil.HTTPClient) (io.ReadCloser, error) {
	if o.URL != "" {
		body, err := httputil.Fetch(ctx, client, o.URL, maxRawSize)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	f, err := os.Open(filepath.Clean(o.In))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", o.In, err)
	}
	return f, nil
}

// RunImport samples the raw export and writes the result to -out and/or the
// store. A nil client uses http.DefaultClient.
func RunImport(ctx context.Context, o importOptions, client httputil.HTTPClient) (dataset.LoadReport, error) {
	if err := o.validate(); err != nil {
		return dataset.LoadReport{}, err
	}

	cfg := config.DefaultDerbyConfig()
	if o.ConfigPath != "" {
		loaded, err := config.LoadDerbyConfig(o.ConfigPath)
		if err != nil {
			return dataset.LoadReport{}, err
		}
		cfg = loaded
	}
	samples := cfg.GetSamplesPerHit()
	if o.Samples > 0 {
		samples = o.Samples
	}
	minLanding := cfg.GetMinLandingTime()
	if o.MinLanding > 0 {
		minLanding = o.MinLanding
	}

	rc, err := openRaw(ctx, o, client)
	if err != nil {
		return dataset.LoadReport{}, err
	}
	defer rc.Close()

	d, report, err := dataset.FromRaw(rc, samples, minLanding)
	if err != nil {
		return report, err
	}
	log.Printf("[import] sampled %d hits at %d samples, %d rejected", report.Loaded, samples, report.Rejected)

	if o.Out != "" {
		data, err := d.MarshalJSON()
		if err != nil {
			return report, err
		}
		if err := os.WriteFile(o.Out, data, 0o644); err != nil {
			return report, fmt.Errorf("failed to write %s: %w", o.Out, err)
		}
		log.Printf("[import] wrote %s", o.Out)
	}

	if o.DBPath != "" {
		store, err := db.OpenDB(o.DBPath)
		if err != nil {
			return report, err
		}
		defer store.Close()
		if err := store.SaveDataset(ctx, d); err != nil {
			return report, err
		}
		log.Printf("[import] saved %d hits to %s", d.Len(), o.DBPath)
	}
	return report, nil
}
