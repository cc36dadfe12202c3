package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/banshee-data/derbyviz/internal/trajectory"
)

// maxDatasetSize bounds files read by LoadFile.
const maxDatasetSize = 256 * 1024 * 1024

// LoadReport summarises a load: how many hits were kept and how many were
// rejected by validation.
type LoadReport struct {
	Loaded   int `json:"loaded"`
	Rejected int `json:"rejected"`
}

// playerWire is one entry of the hits payload.
type playerWire struct {
	Name   string                       `json:"name"`
	Rounds map[string][]*trajectory.Hit `json:"rounds"`
}

// Decode reads the hits payload: a JSON object keyed by player id whose
// values hold the player's name and hits grouped by round id. Object key
// order is preserved so player ordinals follow the source. Malformed hits are
// dropped and counted in the report; structural JSON errors fail the load.
func Decode(r io.Reader) (*Dataset, LoadReport, error) {
	var report LoadReport
	dec := json.NewDecoder(bufio.NewReader(r))

	tok, err := dec.Token()
	if err != nil {
		return nil, report, fmt.Errorf("failed to read dataset: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, report, fmt.Errorf("dataset must be a JSON object keyed by player id, got %v", tok)
	}

	d := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, report, fmt.Errorf("failed to read player id: %w", err)
		}
		playerID, ok := tok.(string)
		if !ok {
			return nil, report, fmt.Errorf("unexpected token %v where player id expected", tok)
		}

		var pw playerWire
		if err := dec.Decode(&pw); err != nil {
			return nil, report, fmt.Errorf("failed to decode player %s: %w", playerID, err)
		}
		d.AddPlayer(playerID, pw.Name)

		roundKeys := make([]string, 0, len(pw.Rounds))
		for k := range pw.Rounds {
			roundKeys = append(roundKeys, k)
		}
		sort.Slice(roundKeys, func(i, j int) bool {
			a, _ := strconv.Atoi(roundKeys[i])
			b, _ := strconv.Atoi(roundKeys[j])
			return a < b
		})

		for _, key := range roundKeys {
			roundID, convErr := strconv.Atoi(key)
			for _, h := range pw.Rounds[key] {
				if h == nil {
					continue
				}
				if h.PlayerID == "" {
					h.PlayerID = playerID
				}
				if h.RoundID == 0 && convErr == nil {
					h.RoundID = roundID
				}
				d.AddOrReject(h, &report)
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, report, fmt.Errorf("failed to read end of dataset: %w", err)
	}
	return d, report, nil
}

// LoadFile decodes the dataset at path.
func LoadFile(path string) (*Dataset, LoadReport, error) {
	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("failed to stat dataset: %w", err)
	}
	if info.Size() > maxDatasetSize {
		return nil, LoadReport{}, fmt.Errorf("dataset too large: %d bytes (max %d)", info.Size(), maxDatasetSize)
	}
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// MarshalJSON writes the hits payload in player order.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range d.players {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		pw := playerWire{Name: p.Name, Rounds: make(map[string][]*trajectory.Hit, len(p.Rounds))}
		for _, r := range p.Rounds {
			pw.Rounds[strconv.Itoa(r.ID)] = r.Hits
		}
		val, err := json.Marshal(pw)
		if err != nil {
			return nil, fmt.Errorf("failed to encode player %s: %w", p.ID, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RawFile is the polynomial export consumed by the importer: one entry per
// home run with the fitted flight polynomials.
type RawFile struct {
	HRs []RawHit `json:"hrs"`
}

// RawHit is a single polynomial-form hit.
type RawHit struct {
	ID         string                       `json:"id,omitempty"`
	PlayerID   string                       `json:"player_id"`
	PlayerName string                       `json:"player_name"`
	Round      int                          `json:"round"`
	Metrics    map[string]trajectory.Metric `json:"metrics"`
	Result     struct {
		Hit trajectory.PolyPath `json:"hit"`
	} `json:"result"`
}

// FromRaw samples every polynomial hit in r into a Dataset. Players are
// ordered by first appearance in the hrs list.
func FromRaw(r io.Reader, samples int, minLanding float64) (*Dataset, LoadReport, error) {
	var raw RawFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, LoadReport{}, fmt.Errorf("failed to decode raw hits: %w", err)
	}

	var report LoadReport
	d := New()
	for _, rh := range raw.HRs {
		d.AddPlayer(rh.PlayerID, rh.PlayerName)

		h, err := rh.Result.Hit.Sample(samples, minLanding)
		if err != nil {
			reject(&trajectory.Hit{ID: rh.ID, PlayerID: rh.PlayerID}, err, &report)
			continue
		}
		h.ID = rh.ID
		h.PlayerID = rh.PlayerID
		h.RoundID = rh.Round
		h.Metrics = rh.Metrics
		d.AddOrReject(h, &report)
	}
	return d, report, nil
}
