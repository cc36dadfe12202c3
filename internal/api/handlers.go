package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/banshee-data/derbyviz/internal/colormap"
	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/httputil"
	"github.com/banshee-data/derbyviz/internal/scene"
	"github.com/banshee-data/derbyviz/internal/units"
)

// PlayerInfo is one entry of the player filter options.
type PlayerInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
	Hits    int    `json:"hits"`
}

// RoundInfo is one entry of the round filter options.
type RoundInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// FilterResponse reports the state after a filter change.
type FilterResponse struct {
	Filter        dataset.Filter `json:"filter"`
	Bounds        dataset.Bounds `json:"bounds"`
	BoundsVersion uint64         `json:"bounds_version"`
	Hits          int            `json:"hits"`
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		httputil.MethodNotAllowed(w)
		return false
	}
	return true
}

// loadedDataset writes a 503 and returns nil while nothing is loaded.
func (s *Server) loadedDataset(w http.ResponseWriter) *dataset.Dataset {
	d := s.ctrl.Dataset()
	if d == nil {
		httputil.ServiceUnavailable(w, scene.ErrNoDataset.Error())
	}
	return d
}

func (s *Server) handleHits(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	d := s.loadedDataset(w)
	if d == nil {
		return
	}
	httputil.WriteJSONOK(w, d)
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	d := s.loadedDataset(w)
	if d == nil {
		return
	}
	players := d.Players()
	out := make([]PlayerInfo, len(players))
	for i, p := range players {
		out[i] = PlayerInfo{ID: p.ID, Name: p.Name, Ordinal: p.Ordinal, Hits: p.HitCount()}
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	d := s.loadedDataset(w)
	if d == nil {
		return
	}
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = dataset.All
	}
	ids, err := d.RoundOptions(playerID)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	out := make([]RoundInfo, len(ids))
	for i, id := range ids {
		out[i] = RoundInfo{ID: id, Name: dataset.RoundName(id)}
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	httputil.WriteJSONOK(w, s.ctrl.Frame())
}

func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	speedUnits := units.MPH
	if u := r.URL.Query().Get("units"); u != "" {
		if !units.IsValid(u) {
			httputil.BadRequest(w, fmt.Sprintf("invalid units %q, must be one of: %s", u, units.GetValidUnitsString()))
			return
		}
		speedUnits = u
	}

	b, version := s.ctrl.Bounds()
	b.ExitVelocityMin = units.ConvertSpeed(b.ExitVelocityMin, speedUnits)
	b.ExitVelocityMax = units.ConvertSpeed(b.ExitVelocityMax, speedUnits)
	httputil.WriteJSONOK(w, map[string]interface{}{
		"bounds":  b,
		"version": version,
		"units":   speedUnits,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	httputil.WriteJSONOK(w, s.cfg)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var f dataset.Filter
	if err := httputil.DecodeJSONBody(w, r, &f); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if f.PlayerID == "" {
		f.PlayerID = dataset.All
	}
	if f.RoundID == "" {
		f.RoundID = dataset.All
	}

	if err := s.ctrl.SetFilter(f); err != nil {
		switch {
		case errors.Is(err, scene.ErrNoDataset):
			httputil.ServiceUnavailable(w, err.Error())
		case errors.Is(err, dataset.ErrUnknownPlayer), errors.Is(err, dataset.ErrInvalidRound):
			httputil.BadRequest(w, err.Error())
		default:
			httputil.InternalServerError(w, err.Error())
		}
		return
	}

	b, version := s.ctrl.Bounds()
	httputil.WriteJSONOK(w, FilterResponse{
		Filter:        s.ctrl.Filter(),
		Bounds:        b,
		BoundsVersion: version,
		Hits:          len(s.ctrl.ActiveHits()),
	})
}

func (s *Server) handleSlice(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Plane *float64 `json:"plane"`
	}
	if err := httputil.DecodeJSONBody(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Plane == nil {
		httputil.BadRequest(w, "plane is required")
		return
	}
	if math.IsNaN(*req.Plane) || math.IsInf(*req.Plane, 0) {
		httputil.BadRequest(w, "plane must be finite")
		return
	}
	s.ctrl.SetSlicePlane(*req.Plane)
	httputil.WriteJSONOK(w, map[string]float64{"plane": s.ctrl.SlicePlane()})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := httputil.DecodeJSONBody(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	m := colormap.ParseMode(req.Mode)
	if string(m) != req.Mode {
		httputil.BadRequest(w, fmt.Sprintf("unknown colour mode %q", req.Mode))
		return
	}
	s.ctrl.SetMode(m)
	httputil.WriteJSONOK(w, map[string]colormap.Mode{"mode": m})
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Playing *bool `json:"playing"`
	}
	if err := httputil.DecodeJSONBody(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Playing == nil {
		httputil.BadRequest(w, "playing is required")
		return
	}
	s.ctrl.SetPlaying(*req.Playing)
	httputil.WriteJSONOK(w, map[string]bool{"playing": *req.Playing})
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	s.ctrl.Replay()
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Trails *bool `json:"trails"`
		Slices *bool `json:"slices"`
	}
	if err := httputil.DecodeJSONBody(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	trails, slices := s.ctrl.Visibility()
	if req.Trails != nil {
		trails = *req.Trails
	}
	if req.Slices != nil {
		slices = *req.Slices
	}
	s.ctrl.SetVisibility(trails, slices)
	httputil.WriteJSONOK(w, map[string]bool{"trails": trails, "slices": slices})
}
