package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inqwatch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if !*cfg.Browser.Headless {
		t.Error("headless should default to true")
	}
	if cfg.Watch.PollInterval != time.Second {
		t.Errorf("poll_interval: %v", cfg.Watch.PollInterval)
	}
	if cfg.Watch.MutationDebounce != 250*time.Millisecond {
		t.Errorf("mutation_debounce: %v", cfg.Watch.MutationDebounce)
	}
	want := []time.Duration{0, 500 * time.Millisecond, 2 * time.Second}
	if len(cfg.Watch.BurstDelays) != len(want) {
		t.Fatalf("burst_delays: %v", cfg.Watch.BurstDelays)
	}
	for i, d := range want {
		if cfg.Watch.BurstDelays[i] != d {
			t.Errorf("burst_delays[%d] = %v, want %v", i, cfg.Watch.BurstDelays[i], d)
		}
	}
	if cfg.Gate.MinFinalLen != 10 || cfg.Gate.MinDraftLen != 10 {
		t.Errorf("gate defaults: %+v", cfg.Gate)
	}
	if len(cfg.Sinks) != 1 || cfg.Sinks[0].Type != "stdout" {
		t.Errorf("default sink: %+v", cfg.Sinks)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
browser:
  headless: false
  recycle_interval: 1h
watch:
  start_url: https://rmesse.rms.rakuten.co.jp/inquiry
  poll_interval: 2s
  burst_delays: [0s, 1s]
gate:
  min_final_len: 20
sinks:
  - type: stdout
  - type: webhook
    url: https://hooks.example.com/inqwatch
  - type: history
    path: history.db
    retention: 720h
api:
  addr: 127.0.0.1:9000
mcp:
  enabled: true
log_level: debug
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if *cfg.Browser.Headless {
		t.Error("headless should be false")
	}
	if cfg.Browser.RecycleInterval != time.Hour {
		t.Errorf("recycle_interval: %v", cfg.Browser.RecycleInterval)
	}
	if cfg.Watch.StartURL != "https://rmesse.rms.rakuten.co.jp/inquiry" {
		t.Errorf("start_url: %q", cfg.Watch.StartURL)
	}
	if cfg.Watch.PollInterval != 2*time.Second {
		t.Errorf("poll_interval: %v", cfg.Watch.PollInterval)
	}
	if len(cfg.Watch.BurstDelays) != 2 || cfg.Watch.BurstDelays[1] != time.Second {
		t.Errorf("burst_delays: %v", cfg.Watch.BurstDelays)
	}
	if cfg.Gate.MinFinalLen != 20 {
		t.Errorf("min_final_len: %d", cfg.Gate.MinFinalLen)
	}
	// Unset gate field still gets its default.
	if cfg.Gate.MinDraftLen != 10 {
		t.Errorf("min_draft_len: %d", cfg.Gate.MinDraftLen)
	}
	if len(cfg.Sinks) != 3 || cfg.Sinks[2].Retention != 720*time.Hour {
		t.Errorf("sinks: %+v", cfg.Sinks)
	}
	if cfg.API.Addr != "127.0.0.1:9000" {
		t.Errorf("api addr: %q", cfg.API.Addr)
	}
	if !cfg.MCP.Enabled {
		t.Error("mcp should be enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level: %q", cfg.LogLevel)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"webhook without url", "sinks:\n  - type: webhook\n"},
		{"history without path", "sinks:\n  - type: history\n"},
		{"unknown sink type", "sinks:\n  - type: nats\n"},
		{"bad log level", "log_level: verbose\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := LoadFile(writeConfig(t, c.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
