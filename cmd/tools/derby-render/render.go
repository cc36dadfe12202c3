package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/banshee-data/derbyviz/internal/colormap"
	"github.com/banshee-data/derbyviz/internal/config"
	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/db"
	"github.com/banshee-data/derbyviz/internal/render"
	"github.com/banshee-data/derbyviz/internal/scene"
	"github.com/banshee-data/derbyviz/internal/security"
)

type renderOptions struct {
	DataPath string
	DBPath   string
	Player   string
	Round    string
	Mode     string
	View     string
	Format   string
	Out      string
	Width    int
	Height   int
	Slice    float64
	Thumb    int
}

func loadDataset(ctx context.Context, o renderOptions) (*dataset.Dataset, error) {
	if o.DataPath != "" {
		d, _, err := dataset.LoadFile(o.DataPath)
		return d, err
	}
	if o.DBPath == "" {
		return nil, errors.New("one of -data or -db is required")
	}
	store, err := db.OpenDB(o.DBPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	d, _, err := store.LoadDataset(ctx)
	return d, err
}

// RunRender renders the filtered view to o.Out and returns the number of
// hits drawn.
func RunRender(ctx context.Context, o renderOptions) (int, error) {
	view, err := render.ParseView(o.View)
	if err != nil {
		return 0, err
	}
	format, err := render.ParseFormat(o.Format)
	if err != nil {
		return 0, err
	}
	if err := security.ValidateExportPath(o.Out); err != nil {
		return 0, err
	}

	d, err := loadDataset(ctx, o)
	if err != nil {
		return 0, err
	}

	opts := scene.OptionsFromConfig(config.DefaultDerbyConfig())
	opts.Mode = colormap.ParseMode(o.Mode)
	ctrl, err := scene.NewController(d, opts)
	if err != nil {
		return 0, err
	}
	if err := ctrl.SetFilter(dataset.Filter{PlayerID: o.Player, RoundID: o.Round}); err != nil {
		return 0, err
	}
	hits, colors := ctrl.ColoredHits()

	ropts := render.Options{
		View:       view,
		Title:      fmt.Sprintf("player %s, round %s", o.Player, o.Round),
		Width:      o.Width,
		Height:     o.Height,
		SlicePlane: o.Slice,
		ShowSlice:  o.Slice >= 0,

		SpeedRadiusDivisor: opts.SpeedRadiusDivisor,
	}
	if ropts.Width <= 0 || ropts.Height <= 0 {
		def := render.DefaultOptions()
		ropts.Width, ropts.Height = def.Width, def.Height
	}
	p, err := render.Plot(hits, colors, ropts)
	if err != nil {
		return 0, err
	}
	img := render.Image(p, ropts.Width, ropts.Height)
	if o.Thumb > 0 {
		img = render.Thumbnail(img, o.Thumb)
	}

	f, err := os.Create(o.Out)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", o.Out, err)
	}
	if err := render.Encode(f, img, format); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", o.Out, err)
	}
	return len(hits), nil
}
