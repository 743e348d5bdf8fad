package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.EffectiveProvider(); got != ProviderSimulated {
		t.Fatalf("provider=%q, want %q", got, ProviderSimulated)
	}
	if got := cfg.EffectiveMaxToolRounds(); got != 10 {
		t.Fatalf("max_tool_rounds=%d, want 10", got)
	}
	if got := cfg.EffectiveMaxOutputTokens(); got != 2000 {
		t.Fatalf("max_output_tokens=%d, want 2000", got)
	}
	if got := cfg.EffectiveTemperature(); got != 0.01 {
		t.Fatalf("temperature=%v, want 0.01", got)
	}
}

func TestLoad_ParsesFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "config.yaml")
	data := "provider: openai\nmodel: gpt-4o\nmax_tool_rounds: 3\nlog_format: json\n"
	if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.EffectiveProvider(); got != ProviderOpenAI {
		t.Fatalf("provider=%q, want %q", got, ProviderOpenAI)
	}
	if got := cfg.EffectiveModel(); got != "gpt-4o" {
		t.Fatalf("model=%q, want %q", got, "gpt-4o")
	}
	if got := cfg.EffectiveMaxToolRounds(); got != 3 {
		t.Fatalf("max_tool_rounds=%d, want 3", got)
	}
	if got := cfg.EffectiveLogFormat(); got != "json" {
		t.Fatalf("log_format=%q, want json", got)
	}
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data string
	}{
		{"bad provider", "provider: cohere\n"},
		{"bad base_url scheme", "base_url: ftp://example.com\n"},
		{"rounds out of range", "max_tool_rounds: 0\n"},
		{"negative tokens", "max_output_tokens: -1\n"},
		{"temperature out of range", "temperature: 3.5\n"},
		{"bad log level", "log_level: chatty\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(p, []byte(tc.data), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(p); err == nil {
				t.Fatalf("Load accepted %q", tc.data)
			}
		})
	}
}

func TestConfig_StatePaths(t *testing.T) {
	t.Parallel()

	cfg := &Config{StateDir: "/var/lib/clipforge"}
	if got := cfg.SecretsPath(); got != filepath.Join("/var/lib/clipforge", "secrets.json") {
		t.Fatalf("SecretsPath=%q", got)
	}
	if got := cfg.TelemetryPath(); got != filepath.Join("/var/lib/clipforge", "events.db") {
		t.Fatalf("TelemetryPath=%q", got)
	}
}

func TestConfig_EffectiveClampsRounds(t *testing.T) {
	t.Parallel()

	high := 99
	cfg := &Config{MaxToolRounds: &high}
	if got := cfg.EffectiveMaxToolRounds(); got != 50 {
		t.Fatalf("max_tool_rounds=%d, want clamp to 50", got)
	}
}
