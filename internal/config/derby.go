package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/derby.defaults.json"

// DerbyConfig is the runtime configuration for the replay server and tools.
// Every field is optional; the Get* methods supply the default for anything
// omitted, so a partial file is always safe.
type DerbyConfig struct {
	// Animation
	StaggerSeconds        *float64 `json:"stagger_seconds,omitempty"`
	TrailWindowSeconds    *float64 `json:"trail_window_seconds,omitempty"`
	PausedTrailMultiplier *float64 `json:"paused_trail_multiplier,omitempty"`
	FrameInterval         *string  `json:"frame_interval,omitempty"` // duration string like "16ms"

	// Scene
	SlicePlaneFt       *float64 `json:"slice_plane_ft,omitempty"`
	ColorMode          *string  `json:"color_mode,omitempty"`
	SpeedRadiusDivisor *float64 `json:"speed_radius_divisor,omitempty"`
	ShowTrails         *bool    `json:"show_trails,omitempty"`
	ShowSlices         *bool    `json:"show_slices,omitempty"`

	// Import sampling
	SamplesPerHit  *int     `json:"samples_per_hit,omitempty"`
	MinLandingTime *float64 `json:"min_landing_time,omitempty"`

	// Serving
	ListenAddr       *string `json:"listen_addr,omitempty"`
	GRPCAddr         *string `json:"grpc_addr,omitempty"`
	MaxStreamClients *int    `json:"max_stream_clients,omitempty"`
	WatchDebounce    *string `json:"watch_debounce,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyDerbyConfig returns a config with every field unset.
func EmptyDerbyConfig() *DerbyConfig {
	return &DerbyConfig{}
}

// DefaultDerbyConfig returns a config with every field set to its default.
func DefaultDerbyConfig() *DerbyConfig {
	return &DerbyConfig{
		StaggerSeconds:        ptrFloat64(0.05),
		TrailWindowSeconds:    ptrFloat64(2),
		PausedTrailMultiplier: ptrFloat64(100),
		FrameInterval:         ptrString("16ms"),
		SlicePlaneFt:          ptrFloat64(20),
		ColorMode:             ptrString("player"),
		SpeedRadiusDivisor:    ptrFloat64(200),
		ShowTrails:            ptrBool(true),
		ShowSlices:            ptrBool(false),
		SamplesPerHit:         ptrInt(100),
		MinLandingTime:        ptrFloat64(1.0),
		ListenAddr:            ptrString(":8080"),
		GRPCAddr:              ptrString("localhost:50051"),
		MaxStreamClients:      ptrInt(5),
		WatchDebounce:         ptrString("250ms"),
	}
}

// LoadDerbyConfig loads a DerbyConfig from a JSON file. The file must have a
// .json extension and be under 1MB.
func LoadDerbyConfig(path string) (*DerbyConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDerbyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory or
// a parent. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *DerbyConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/tools/derby-import/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadDerbyConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *DerbyConfig) Validate() error {
	if c.StaggerSeconds != nil && *c.StaggerSeconds < 0 {
		return fmt.Errorf("stagger_seconds must be non-negative, got %f", *c.StaggerSeconds)
	}
	if c.TrailWindowSeconds != nil && *c.TrailWindowSeconds <= 0 {
		return fmt.Errorf("trail_window_seconds must be positive, got %f", *c.TrailWindowSeconds)
	}
	if c.PausedTrailMultiplier != nil && *c.PausedTrailMultiplier <= 0 {
		return fmt.Errorf("paused_trail_multiplier must be positive, got %f", *c.PausedTrailMultiplier)
	}
	if c.SpeedRadiusDivisor != nil && *c.SpeedRadiusDivisor <= 0 {
		return fmt.Errorf("speed_radius_divisor must be positive, got %f", *c.SpeedRadiusDivisor)
	}
	if c.SamplesPerHit != nil && *c.SamplesPerHit < 2 {
		return fmt.Errorf("samples_per_hit must be at least 2, got %d", *c.SamplesPerHit)
	}
	if c.MaxStreamClients != nil && *c.MaxStreamClients < 1 {
		return fmt.Errorf("max_stream_clients must be at least 1, got %d", *c.MaxStreamClients)
	}
	for name, v := range map[string]*string{
		"frame_interval": c.FrameInterval,
		"watch_debounce": c.WatchDebounce,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}
	return nil
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetStaggerSeconds returns the per-index replay delay.
func (c *DerbyConfig) GetStaggerSeconds() float64 {
	if c.StaggerSeconds == nil {
		return 0.05
	}
	return *c.StaggerSeconds
}

// GetTrailWindowSeconds returns the playing trail length.
func (c *DerbyConfig) GetTrailWindowSeconds() float64 {
	if c.TrailWindowSeconds == nil {
		return 2
	}
	return *c.TrailWindowSeconds
}

// GetPausedTrailMultiplier returns the factor applied to the loop end to
// size the trail while paused.
func (c *DerbyConfig) GetPausedTrailMultiplier() float64 {
	if c.PausedTrailMultiplier == nil {
		return 100
	}
	return *c.PausedTrailMultiplier
}

// GetFrameInterval parses FrameInterval.
func (c *DerbyConfig) GetFrameInterval() time.Duration {
	return durationOr(c.FrameInterval, 16*time.Millisecond)
}

// GetSlicePlaneFt returns the initial slice plane in feet along y.
func (c *DerbyConfig) GetSlicePlaneFt() float64 {
	if c.SlicePlaneFt == nil {
		return 20
	}
	return *c.SlicePlaneFt
}

// GetColorMode returns the initial colour mode name.
func (c *DerbyConfig) GetColorMode() string {
	if c.ColorMode == nil || *c.ColorMode == "" {
		return "player"
	}
	return *c.ColorMode
}

// GetSpeedRadiusDivisor returns the mph per scene unit of slice radius.
func (c *DerbyConfig) GetSpeedRadiusDivisor() float64 {
	if c.SpeedRadiusDivisor == nil {
		return 200
	}
	return *c.SpeedRadiusDivisor
}

func (c *DerbyConfig) GetShowTrails() bool {
	if c.ShowTrails == nil {
		return true
	}
	return *c.ShowTrails
}

func (c *DerbyConfig) GetShowSlices() bool {
	if c.ShowSlices == nil {
		return false
	}
	return *c.ShowSlices
}

// GetSamplesPerHit returns how many points the importer samples per hit.
func (c *DerbyConfig) GetSamplesPerHit() int {
	if c.SamplesPerHit == nil {
		return 100
	}
	return *c.SamplesPerHit
}

// GetMinLandingTime returns the earliest root accepted as a landing, in
// seconds after contact.
func (c *DerbyConfig) GetMinLandingTime() float64 {
	if c.MinLandingTime == nil {
		return 1.0
	}
	return *c.MinLandingTime
}

func (c *DerbyConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return ":8080"
	}
	return *c.ListenAddr
}

func (c *DerbyConfig) GetGRPCAddr() string {
	if c.GRPCAddr == nil || *c.GRPCAddr == "" {
		return "localhost:50051"
	}
	return *c.GRPCAddr
}

func (c *DerbyConfig) GetMaxStreamClients() int {
	if c.MaxStreamClients == nil {
		return 5
	}
	return *c.MaxStreamClients
}

// GetWatchDebounce parses WatchDebounce.
func (c *DerbyConfig) GetWatchDebounce() time.Duration {
	return durationOr(c.WatchDebounce, 250*time.Millisecond)
}
