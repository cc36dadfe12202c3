package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultDerbyConfig(t *testing.T) {
	cfg := DefaultDerbyConfig()

	if cfg.StaggerSeconds == nil || *cfg.StaggerSeconds != 0.05 {
		t.Errorf("Expected StaggerSeconds 0.05, got %v", cfg.StaggerSeconds)
	}
	if cfg.ColorMode == nil || *cfg.ColorMode != "player" {
		t.Errorf("Expected ColorMode 'player', got %v", cfg.ColorMode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEmptyConfigGetters(t *testing.T) {
	empty := EmptyDerbyConfig()
	def := DefaultDerbyConfig()

	type snapshot struct {
		Stagger, Trail, Paused, Plane, Divisor, MinLanding float64
		Frame, Debounce                                    time.Duration
		Mode, Listen, GRPC                                 string
		Samples, Clients                                   int
		Trails, Slices                                     bool
	}
	take := func(c *DerbyConfig) snapshot {
		return snapshot{
			Stagger: c.GetStaggerSeconds(), Trail: c.GetTrailWindowSeconds(),
			Paused: c.GetPausedTrailMultiplier(), Plane: c.GetSlicePlaneFt(),
			Divisor: c.GetSpeedRadiusDivisor(), MinLanding: c.GetMinLandingTime(),
			Frame: c.GetFrameInterval(), Debounce: c.GetWatchDebounce(),
			Mode: c.GetColorMode(), Listen: c.GetListenAddr(), GRPC: c.GetGRPCAddr(),
			Samples: c.GetSamplesPerHit(), Clients: c.GetMaxStreamClients(),
			Trails: c.GetShowTrails(), Slices: c.GetShowSlices(),
		}
	}

	if diff := cmp.Diff(take(def), take(empty)); diff != "" {
		t.Errorf("empty config getters differ from defaults (-default +empty):\n%s", diff)
	}
	if got := empty.GetFrameInterval(); got != 16*time.Millisecond {
		t.Errorf("GetFrameInterval() = %v, want 16ms", got)
	}
}

func TestLoadDerbyConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "derby.json")

	testJSON := `{
  "stagger_seconds": 0.1,
  "frame_interval": "33ms",
  "color_mode": "velocity",
  "show_slices": true
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadDerbyConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.GetStaggerSeconds(); got != 0.1 {
		t.Errorf("GetStaggerSeconds() = %v, want 0.1", got)
	}
	if got := cfg.GetFrameInterval(); got != 33*time.Millisecond {
		t.Errorf("GetFrameInterval() = %v, want 33ms", got)
	}
	if got := cfg.GetColorMode(); got != "velocity" {
		t.Errorf("GetColorMode() = %q, want velocity", got)
	}
	if !cfg.GetShowSlices() {
		t.Error("GetShowSlices() = false, want true")
	}
	// omitted fields keep defaults
	if got := cfg.GetTrailWindowSeconds(); got != 2 {
		t.Errorf("GetTrailWindowSeconds() = %v, want 2", got)
	}
}

func TestLoadDerbyConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"wrong extension", write("derby.yaml", `{}`), ".json extension"},
		{"missing file", filepath.Join(tmpDir, "nope.json"), "failed to stat"},
		{"bad json", write("bad.json", `{"stagger_seconds":`), "failed to parse"},
		{"negative stagger", write("neg.json", `{"stagger_seconds": -1}`), "stagger_seconds"},
		{"zero trail", write("trail.json", `{"trail_window_seconds": 0}`), "trail_window_seconds"},
		{"bad duration", write("dur.json", `{"frame_interval": "soon"}`), "frame_interval"},
		{"negative debounce", write("deb.json", `{"watch_debounce": "-1s"}`), "watch_debounce"},
		{"one sample", write("samples.json", `{"samples_per_hit": 1}`), "samples_per_hit"},
		{"no clients", write("clients.json", `{"max_stream_clients": 0}`), "max_stream_clients"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDerbyConfig(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDerbyConfig_TooLarge(t *testing.T) {
	p := filepath.Join(t.TempDir(), "big.json")
	if err := os.WriteFile(p, []byte(`{"color_mode": "`+strings.Repeat("x", 1024*1024)+`"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDerbyConfig(p); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultDerbyConfig(), cfg); diff != "" {
		t.Errorf("%s does not match DefaultDerbyConfig (-want +got):\n%s", DefaultConfigPath, diff)
	}
}
