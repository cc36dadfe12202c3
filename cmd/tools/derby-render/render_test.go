package main

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/db"
	"github.com/banshee-data/derbyviz/internal/testutil"
)

func baseOptions(t *testing.T) renderOptions {
	dir := t.TempDir()
	return renderOptions{
		DataPath: testutil.WriteJSON(t, dir, "hits.json", testutil.TwoPlayerDataset(t)),
		Player:   "all",
		Round:    "all",
		Mode:     "velocity",
		View:     "side",
		Format:   "png",
		Out:      filepath.Join(dir, "out.png"),
		Width:    320,
		Height:   200,
		Slice:    -1,
	}
}

func TestRunRender_PNG(t *testing.T) {
	o := baseOptions(t)
	o.Player = "p1"
	o.Slice = 150

	n, err := RunRender(context.Background(), o)
	if err != nil {
		t.Fatalf("RunRender failed: %v", err)
	}
	if n != 2 {
		t.Errorf("drew %d hits, want 2", n)
	}

	f, err := os.Open(o.Out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("output is not a png: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 200 {
		t.Errorf("image is %dx%d, want 320x200", cfg.Width, cfg.Height)
	}
}

func TestRunRender_ThumbnailFromStore(t *testing.T) {
	o := baseOptions(t)
	o.DBPath = filepath.Join(t.TempDir(), "derby.db")
	store, err := db.OpenDB(o.DBPath)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	if err := store.SaveDataset(context.Background(), testutil.TwoPlayerDataset(t)); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}
	store.Close()

	o.DataPath = ""
	o.View = "top"
	o.Format = "webp"
	o.Thumb = 80
	o.Out = filepath.Join(t.TempDir(), "out.webp")

	n, err := RunRender(context.Background(), o)
	if err != nil {
		t.Fatalf("RunRender failed: %v", err)
	}
	if n != 3 {
		t.Errorf("drew %d hits, want 3", n)
	}
	data, err := os.ReadFile(o.Out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WEBP")) {
		t.Errorf("output is not a webp file")
	}
}

func TestRunRender_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*renderOptions)
		target error
	}{
		{"bad view", func(o *renderOptions) { o.View = "front" }, nil},
		{"bad format", func(o *renderOptions) { o.Format = "gif" }, nil},
		{"no source", func(o *renderOptions) { o.DataPath = "" }, nil},
		{"unknown player", func(o *renderOptions) { o.Player = "p404" }, dataset.ErrUnknownPlayer},
		{"bad round", func(o *renderOptions) { o.Round = "zero" }, dataset.ErrInvalidRound},
		{"out under /etc", func(o *renderOptions) { o.Out = "/etc/derby.png" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := baseOptions(t)
			tt.modify(&o)
			_, err := RunRender(context.Background(), o)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
			if _, statErr := os.Stat(o.Out); statErr == nil {
				t.Errorf("output %s written despite error", o.Out)
			}
		})
	}
}
