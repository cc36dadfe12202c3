package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/httputil"
	"github.com/banshee-data/derbyviz/internal/render"
	"github.com/banshee-data/derbyviz/internal/security"
)

// echartsAssetsHost serves the echarts JS for the debug pages.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// maxChartPoints caps the samples per arc sent to the browser.
const maxChartPoints = 200

// handleSnapshot renders the active view as a static projection.
// Query params:
//   - view: side (default) or top
//   - format: png (default) or webp
//   - width: thumbnail width in pixels (optional)
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	view, err := render.ParseView(q.Get("view"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	format, err := render.ParseFormat(q.Get("format"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	thumbWidth := 0
	if ws := q.Get("width"); ws != "" {
		thumbWidth, err = strconv.Atoi(ws)
		if err != nil || thumbWidth < 16 || thumbWidth > 4096 {
			httputil.BadRequest(w, "width must be an integer between 16 and 4096")
			return
		}
	}

	hits, colors := s.ctrl.ColoredHits()
	if len(hits) == 0 {
		httputil.NotFound(w, "no hits in the active view")
		return
	}

	_, slices := s.ctrl.Visibility()
	o := render.DefaultOptions()
	o.View = view
	o.Title = filterTitle(s.ctrl.Filter())
	o.SlicePlane = s.ctrl.SlicePlane()
	o.ShowSlice = slices
	o.SpeedRadiusDivisor = s.cfg.GetSpeedRadiusDivisor()

	p, err := render.Plot(hits, colors, o)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to plot: %v", err))
		return
	}
	img := render.Image(p, o.Width, o.Height)
	if thumbWidth > 0 {
		img = render.Thumbnail(img, thumbWidth)
	}

	var buf bytes.Buffer
	if err := render.Encode(&buf, img, format); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	f := s.ctrl.Filter()
	name := security.SanitizeFilename(fmt.Sprintf("derby_%s_%s_%s.%s", f.PlayerID, f.RoundID, view, format))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	_, _ = w.Write(buf.Bytes())
}

func filterTitle(f dataset.Filter) string {
	player := "All players"
	if f.PlayerID != dataset.All && f.PlayerID != "" {
		player = f.PlayerID
	}
	round := "all rounds"
	if id, err := strconv.Atoi(f.RoundID); err == nil {
		round = dataset.RoundName(id)
	}
	return player + ", " + round
}

// handleArcsChart renders the active view as an interactive 3D line chart.
// This is a debugging-only endpoint for checking paths without a renderer.
func (s *Server) handleArcsChart(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	hits, colors := s.ctrl.ColoredHits()
	if len(hits) == 0 {
		httputil.NotFound(w, "no hits in the active view")
		return
	}

	chart := charts.NewLine3D()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Derby arcs", Width: "100%", Height: "800px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Home run derby", Subtitle: fmt.Sprintf("%s, %d hits", filterTitle(s.ctrl.Filter()), len(hits))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "Lateral (ft)"}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Distance (ft)"}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Height (ft)"}),
	)

	for i, h := range hits {
		stride := 1
		if h.Len() > maxChartPoints {
			stride = (h.Len() + maxChartPoints - 1) / maxChartPoints
		}
		data := make([]opts.Chart3DData, 0, h.Len()/stride+1)
		for j := 0; j < h.Len(); j += stride {
			data = append(data, opts.Chart3DData{Value: []interface{}{h.X[j], h.Y[j], h.Z[j]}})
		}
		hex := colors[i].Hex()
		chart.AddSeries(h.ID, data,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hex}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: hex, Width: 2}),
		)
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
