package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixture = `Time Base: 1.000000e-3
Channel A Sensitivity: 2.000000
Channel A Connected: Yes
Channel B Sensitivity: 1.000000
Channel B Connected: Yes
Time    Channel A    Channel B
----
0.000 1.5 0.2
0.001 -0.5 0.4
0.002 1.0 -0.3
0.003 -1.0 0.1
`

func setupEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "fixture.scp")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	path := setupEnv(t)
	out, err := execute(t, "stats", path, "--width", "40", "--height", "4", "--color=false", "--sort", "rms")
	if err != nil {
		t.Fatalf("stats: %v\n%s", err, out)
	}
	for _, want := range []string{"Capture statistics: fixture.scp", "Sample rate", "Channel B", "Legend:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Channel A  ") > strings.Index(out, "Channel B  ") {
		t.Fatalf("expected Channel A (higher RMS) first:\n%s", out)
	}
}

func TestStatsCommandRejectsUnknownSort(t *testing.T) {
	path := setupEnv(t)
	if _, err := execute(t, "stats", path, "--sort", "volume", "--no-plot"); err == nil {
		t.Fatalf("expected error for unknown sort key")
	}
}

func TestExportCommand(t *testing.T) {
	path := setupEnv(t)
	target := filepath.Join(t.TempDir(), "report.json")
	out, err := execute(t, "export", path, "--format", "json", "--out", target)
	if err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	if strings.TrimSpace(out) != target {
		t.Fatalf("expected path output %q, got %q", target, out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var report struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Source != "fixture.scp" {
		t.Fatalf("unexpected source %q", report.Source)
	}
}

func TestExportCommandUsesConfigDir(t *testing.T) {
	path := setupEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "scopeview", "config.toml")
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg := "[export]\nformat = \"csv\"\ndir = \"" + filepath.ToSlash(dir) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := execute(t, "export", path); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "fixture_data.csv")); err != nil {
		t.Fatalf("expected csv in config dir: %v", err)
	}
}

func TestGenerateCommand(t *testing.T) {
	setupEnv(t)
	target := filepath.Join(t.TempDir(), "synthetic.scp")
	out, err := execute(t, "generate", "--out", target, "--samples", "500", "--rate", "50000", "--wave", "sine,square", "--seed", "3")
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	if strings.TrimSpace(out) != target {
		t.Fatalf("expected path output %q, got %q", target, out)
	}

	out, err = execute(t, "stats", target, "--no-plot")
	if err != nil {
		t.Fatalf("stats: %v\n%s", err, out)
	}
	for _, want := range []string{"Capture statistics: synthetic.scp", "Channel A", "Channel B"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateCommandRejectsUnknownWave(t *testing.T) {
	setupEnv(t)
	target := filepath.Join(t.TempDir(), "synthetic.scp")
	if _, err := execute(t, "generate", "--out", target, "--wave", "chirp"); err == nil {
		t.Fatalf("expected error for unknown waveform")
	}
}
