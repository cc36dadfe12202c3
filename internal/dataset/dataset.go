// Package dataset holds the loaded hit collection and the filtered views the
// scene controller animates.
//
// Players keep the order they were first seen in the source, and that order
// fixes each player's palette ordinal for the whole session. Rounds within a
// player are ordered by numeric round id; hits within a round keep source
// order.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/banshee-data/derbyviz/internal/metrics"
	"github.com/banshee-data/derbyviz/internal/monitoring"
	"github.com/banshee-data/derbyviz/internal/trajectory"
)

// All selects every player or every round in a Filter.
const All = "all"

var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrInvalidRound  = errors.New("round must be \"all\" or a positive integer")
)

var roundNames = map[int]string{
	1: "Quarterfinals",
	2: "Semifinals",
	3: "Finals",
}

// RoundName returns the display name for a 1-based round id.
func RoundName(id int) string {
	if name, ok := roundNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Round %d", id)
}

// Player is one batter and the hits recorded for them.
type Player struct {
	ID      string
	Name    string
	Ordinal int // first-seen position, stable for the session
	Rounds  []*Round
}

// Round is the ordered hits a player recorded in one round.
type Round struct {
	ID   int
	Hits []*trajectory.Hit
}

// HitCount returns the number of hits across all rounds.
func (p *Player) HitCount() int {
	n := 0
	for _, r := range p.Rounds {
		n += len(r.Hits)
	}
	return n
}

func (p *Player) round(id int) *Round {
	i := sort.Search(len(p.Rounds), func(i int) bool { return p.Rounds[i].ID >= id })
	if i < len(p.Rounds) && p.Rounds[i].ID == id {
		return p.Rounds[i]
	}
	r := &Round{ID: id}
	p.Rounds = append(p.Rounds, nil)
	copy(p.Rounds[i+1:], p.Rounds[i:])
	p.Rounds[i] = r
	return r
}

// Dataset is the full set of loaded hits. It is built once and then only
// read; filtering produces new Views rather than mutating it.
type Dataset struct {
	players []*Player
	byID    map[string]*Player
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{byID: make(map[string]*Player)}
}

// AddPlayer registers a player, assigning the next ordinal. Re-adding a
// known id keeps the original ordinal and fills in a missing name.
func (d *Dataset) AddPlayer(id, name string) *Player {
	if p, ok := d.byID[id]; ok {
		if p.Name == "" {
			p.Name = name
		}
		return p
	}
	p := &Player{ID: id, Name: name, Ordinal: len(d.players)}
	d.players = append(d.players, p)
	d.byID[id] = p
	return p
}

// AddHit validates h and files it under its player and round. Hits without
// an ID get a random one. Invalid hits are returned as errors and not added.
func (d *Dataset) AddHit(h *trajectory.Hit) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if h.RoundID < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidRound, h.RoundID)
	}
	p, ok := d.byID[h.PlayerID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, h.PlayerID)
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	r := p.round(h.RoundID)
	r.Hits = append(r.Hits, h)
	return nil
}

// AddOrReject adds h and updates report. Rejected hits are logged and
// counted rather than returned.
func (d *Dataset) AddOrReject(h *trajectory.Hit, report *LoadReport) {
	if err := d.AddHit(h); err != nil {
		reject(h, err, report)
		return
	}
	report.Loaded++
}

func reject(h *trajectory.Hit, err error, report *LoadReport) {
	report.Rejected++
	metrics.TrajectoriesRejected.WithLabelValues(rejectReason(err)).Inc()
	monitoring.Rejectf(h.ID, h.PlayerID, err)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, trajectory.ErrTooFewSamples):
		return "too_few_samples"
	case errors.Is(err, trajectory.ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, trajectory.ErrNonMonotonic):
		return "non_monotonic"
	case errors.Is(err, trajectory.ErrTimeDecreasing):
		return "time_decreasing"
	case errors.Is(err, trajectory.ErrNonFiniteSample):
		return "non_finite"
	case errors.Is(err, trajectory.ErrMissingMetric):
		return "missing_metric"
	case errors.Is(err, trajectory.ErrNoLanding):
		return "no_landing"
	case errors.Is(err, ErrInvalidRound):
		return "invalid_round"
	case errors.Is(err, ErrUnknownPlayer):
		return "unknown_player"
	default:
		return "other"
	}
}

// Players returns players in first-seen order.
func (d *Dataset) Players() []*Player {
	return d.players
}

// Player looks up a player by id.
func (d *Dataset) Player(id string) (*Player, bool) {
	p, ok := d.byID[id]
	return p, ok
}

// Ordinal returns the player's first-seen ordinal.
func (d *Dataset) Ordinal(playerID string) (int, bool) {
	p, ok := d.byID[playerID]
	if !ok {
		return 0, false
	}
	return p.Ordinal, true
}

// Len returns the total number of hits.
func (d *Dataset) Len() int {
	n := 0
	for _, p := range d.players {
		n += p.HitCount()
	}
	return n
}

// RoundOptions lists the round ids selectable for a player filter. For All
// it is the fixed tournament bracket; for a player, the rounds they hit in.
func (d *Dataset) RoundOptions(playerID string) ([]int, error) {
	if playerID == All {
		ids := make([]int, 0, len(roundNames))
		for id := range roundNames {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		return ids, nil
	}
	p, ok := d.byID[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, playerID)
	}
	ids := make([]int, 0, len(p.Rounds))
	for _, r := range p.Rounds {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// Filter selects the hits in a View.
type Filter struct {
	PlayerID string `json:"player_id"`
	RoundID  string `json:"round_id"`
}

// AllHits is the unfiltered selection.
var AllHits = Filter{PlayerID: All, RoundID: All}

// round parses RoundID, returning 0 for All.
func (f Filter) round() (int, error) {
	if f.RoundID == All || f.RoundID == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(f.RoundID)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRound, f.RoundID)
	}
	return id, nil
}

// View is an ordered selection of hits. Elements are shared with the
// Dataset; presentation index is the position in Hits.
type View struct {
	Filter Filter
	Hits   []*trajectory.Hit
}

// Len returns the number of hits in the view.
func (v *View) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Hits)
}

// View builds a fresh View for f, in player then round then source order.
func (d *Dataset) View(f Filter) (*View, error) {
	roundID, err := f.round()
	if err != nil {
		return nil, err
	}

	players := d.players
	if f.PlayerID != All && f.PlayerID != "" {
		p, ok := d.byID[f.PlayerID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, f.PlayerID)
		}
		players = []*Player{p}
	}

	v := &View{Filter: f}
	for _, p := range players {
		for _, r := range p.Rounds {
			if roundID != 0 && r.ID != roundID {
				continue
			}
			v.Hits = append(v.Hits, r.Hits...)
		}
	}
	return v, nil
}
