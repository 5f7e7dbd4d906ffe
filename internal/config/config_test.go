// ABOUTME: Tests for configuration defaults, environment and flags
// ABOUTME: Checks precedence, help handling and validation
package config

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"
)

func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Device != "default" || cfg.Backend != "auto" || cfg.ChunkSize != 1024 || cfg.LogLevel != "info" || cfg.TUI {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadEnv(t *testing.T) {
	cfg := DefaultConfig()
	problems := cfg.LoadEnv(envOf(map[string]string{
		EnvDevice:    "hw:1,0",
		EnvBackend:   "PULSE",
		EnvChunkSize: "512",
		EnvLogLevel:  "debug",
	}))

	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if cfg.Device != "hw:1,0" || cfg.Backend != "pulse" || cfg.ChunkSize != 512 || cfg.LogLevel != "debug" {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadEnvReportsBadNumbers(t *testing.T) {
	cfg := DefaultConfig()
	problems := cfg.LoadEnv(envOf(map[string]string{EnvChunkSize: "lots"}))

	if len(problems) != 1 {
		t.Fatalf("problems = %v, want one", problems)
	}
	if cfg.ChunkSize != 1024 {
		t.Errorf("chunk size = %d, want default kept", cfg.ChunkSize)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Config
	}{
		{
			name: "no arguments",
			args: nil,
			want: *DefaultConfig(),
		},
		{
			name: "device only",
			args: []string{"hw:0,0"},
			want: Config{Device: "hw:0,0", Backend: "auto", ChunkSize: 1024, LogLevel: "info"},
		},
		{
			name: "flags and device",
			args: []string{"-backend", "oto", "-chunk-size", "256", "-log-level", "warn", "-tui", "default"},
			want: Config{Device: "default", Backend: "oto", ChunkSize: 256, LogLevel: "warn", TUI: true},
		},
		{
			name: "flags after device",
			args: []string{"hw:0,0", "-tui", "-chunk-size", "256"},
			want: Config{Device: "hw:0,0", Backend: "auto", ChunkSize: 256, LogLevel: "info", TUI: true},
		},
		{
			name: "flags around device",
			args: []string{"-backend", "pulse", "default", "-log-level", "debug"},
			want: Config{Device: "default", Backend: "pulse", ChunkSize: 1024, LogLevel: "debug"},
		},
		{
			name: "device after terminator",
			args: []string{"-tui", "--", "-odd-name"},
			want: Config{Device: "-odd-name", Backend: "auto", ChunkSize: 1024, LogLevel: "info", TUI: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Parse("play-silence", tt.args, &bytes.Buffer{}); err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if *cfg != tt.want {
				t.Errorf("got %+v, want %+v", *cfg, tt.want)
			}
		})
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoadEnv(envOf(map[string]string{EnvDevice: "hw:1,0", EnvChunkSize: "512"}))

	if err := cfg.Parse("play-silence", []string{"-chunk-size", "128", "pulse"}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "pulse" || cfg.ChunkSize != 128 {
		t.Errorf("flags should win: %+v", cfg)
	}
}

func TestParseHelp(t *testing.T) {
	for _, arg := range []string{"-h", "--help"} {
		var out bytes.Buffer
		err := DefaultConfig().Parse("play-silence", []string{arg}, &out)
		if !errors.Is(err, flag.ErrHelp) {
			t.Errorf("%s: err = %v, want flag.ErrHelp", arg, err)
		}
		if !strings.Contains(out.String(), "Usage: play-silence") {
			t.Errorf("%s: usage not printed", arg)
		}
	}
}

func TestParseUsageErrors(t *testing.T) {
	tests := [][]string{
		{"hw:0,0", "hw:1,0"},
		{"hw:0,0", "-tui", "hw:1,0"},
		{"--", "hw:0,0", "hw:1,0"},
		{"hw:0,0", "-nosuchflag"},
		{"-chunk-size", "many"},
		{"-nosuchflag"},
	}

	for _, args := range tests {
		err := DefaultConfig().Parse("play-silence", args, &bytes.Buffer{})
		if !errors.Is(err, ErrUsage) {
			t.Errorf("Parse(%v) = %v, want ErrUsage", args, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty device", func(c *Config) { c.Device = " " }},
		{"unknown backend", func(c *Config) { c.Backend = "jack" }},
		{"zero chunk", func(c *Config) { c.ChunkSize = 0 }},
		{"huge chunk", func(c *Config) { c.ChunkSize = MaxChunkSize + 1 }},
		{"bad level", func(c *Config) { c.LogLevel = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateNormalisesBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "MiniAudio"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != "miniaudio" {
		t.Errorf("backend = %q, want miniaudio", cfg.Backend)
	}
}
