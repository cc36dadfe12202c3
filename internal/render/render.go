// Package render draws static side and top projections of a set of hits.
// The images are diagnostic previews served by the API and written by the
// derby-render tool.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/HugoSmits86/nativewebp"
	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/derbyviz/internal/colormap"
	"github.com/banshee-data/derbyviz/internal/trajectory"
)

// View selects the projection plane.
type View string

const (
	// ViewSide plots height against distance from the plate.
	ViewSide View = "side"
	// ViewTop plots lateral offset against distance from the plate.
	ViewTop View = "top"
)

// Format selects the image encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

var (
	ErrNoHits        = errors.New("nothing to render")
	ErrUnknownView   = errors.New("view must be \"side\" or \"top\"")
	ErrUnknownFormat = errors.New("format must be \"png\" or \"webp\"")
)

// ParseView parses a view name; empty means side.
func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewSide:
		return ViewSide, nil
	case ViewTop:
		return ViewTop, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// ParseFormat parses a format name; empty means png.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatWebP:
		return FormatWebP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

// Options control a projection.
type Options struct {
	View   View
	Title  string
	Width  int // pixels
	Height int // pixels
	// SlicePlane, when ShowSlice is set, draws the plane and each hit's
	// crossing point.
	SlicePlane float64
	ShowSlice  bool
	// SpeedRadiusDivisor maps crossing speed onto the marker colour scale,
	// as the scene controller does for slice fills. Non-positive uses 200.
	SpeedRadiusDivisor float64
}

const defaultSpeedRadiusDivisor = 200.0

// DefaultOptions returns a 1200x600 side view.
func DefaultOptions() Options {
	return Options{View: ViewSide, Width: 1200, Height: 600}
}

func toRGBA(c colormap.RGB) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// project maps a sample to plot coordinates for v.
func project(v View, x, y, z float64) plotter.XY {
	if v == ViewTop {
		return plotter.XY{X: y, Y: x}
	}
	return plotter.XY{X: y, Y: z}
}

// crossing interpolates where h crosses plane without touching the hit's
// cached bracket, which belongs to the scene controller.
func crossing(h *trajectory.Hit, plane float64) trajectory.SlicePoint {
	return trajectory.Interpolate(h, trajectory.Locate(h.Y, plane), plane)
}

// markerColor is the slice marker fill for a crossing speed.
func markerColor(speed, divisor float64) colormap.RGB {
	if divisor <= 0 {
		divisor = defaultSpeedRadiusDivisor
	}
	return colormap.YlOrRd.At(speed / divisor)
}

// Plot builds the projection. colors[i] is the line colour of hits[i].
func Plot(hits []*trajectory.Hit, colors []colormap.RGB, opts Options) (*plot.Plot, error) {
	if len(hits) == 0 {
		return nil, ErrNoHits
	}
	if len(colors) != len(hits) {
		return nil, fmt.Errorf("render: %d colours for %d hits", len(colors), len(hits))
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Distance (ft)"
	if opts.View == ViewTop {
		p.Y.Label.Text = "Lateral (ft)"
	} else {
		p.Y.Label.Text = "Height (ft)"
	}
	p.Add(plotter.NewGrid())

	lo, hi := math.Inf(1), math.Inf(-1)
	var marks plotter.XYs
	var markColors []color.Color
	for i, h := range hits {
		pts := make(plotter.XYs, h.Len())
		for j := range h.Y {
			pts[j] = project(opts.View, h.X[j], h.Y[j], h.Z[j])
			lo = math.Min(lo, pts[j].Y)
			hi = math.Max(hi, pts[j].Y)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("hit %s: %w", h.ID, err)
		}
		line.Color = toRGBA(colors[i])
		line.Width = vg.Points(1)
		p.Add(line)

		if opts.ShowSlice {
			sp := crossing(h, opts.SlicePlane)
			marks = append(marks, project(opts.View, sp.X, sp.Y, sp.Z))
			markColors = append(markColors, toRGBA(markerColor(sp.Speed, opts.SpeedRadiusDivisor)))
		}
	}

	if opts.ShowSlice {
		plane, err := plotter.NewLine(plotter.XYs{{X: opts.SlicePlane, Y: lo}, {X: opts.SlicePlane, Y: hi}})
		if err != nil {
			return nil, fmt.Errorf("slice plane: %w", err)
		}
		plane.Color = color.Gray{Y: 96}
		plane.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(plane)

		sc, err := plotter.NewScatter(marks)
		if err != nil {
			return nil, fmt.Errorf("slice markers: %w", err)
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{Color: markColors[i], Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
		}
		p.Add(sc)
	}
	return p, nil
}

// Image rasterises p at width x height pixels.
func Image(p *plot.Plot, width, height int) image.Image {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Points(float64(width)), vg.Points(float64(height))),
		vgimg.UseDPI(72),
	)
	p.Draw(draw.New(c))
	return c.Image()
}

// Thumbnail scales img to width, keeping the aspect ratio.
func Thumbnail(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width <= 0 || b.Dx() == 0 {
		return img
	}
	height := int(math.Round(float64(b.Dy()) * float64(width) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Encode writes img in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("failed to encode webp: %w", err)
		}
	case FormatPNG, "":
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return nil
}

// Snapshot plots, rasterises and encodes in one call.
func Snapshot(w io.Writer, hits []*trajectory.Hit, colors []colormap.RGB, opts Options, f Format) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	p, err := Plot(hits, colors, opts)
	if err != nil {
		return err
	}
	return Encode(w, Image(p, opts.Width, opts.Height), f)
}
