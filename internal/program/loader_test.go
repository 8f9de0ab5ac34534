package program

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const programsYAML = `---
BASILIC:
  light:
    red: 70
    green: 20
    blue: 40
    "on": "06:00"
    "off": "22:00"
  water.flow.on: 5
  water.flow.off: 25
  water:
    temperature:
      low: 18.5
      high: 24
  air.temperature.low: 19
  air.temperature.high: 27
TOMATE:
  light:
    red: 90
`

func TestLoaderLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "programs.yaml")
	if err := os.WriteFile(path, []byte(programsYAML), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	p, err := NewLoader(path).Load("BASILIC")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if p.Name() != "BASILIC" {
		t.Errorf("Name() = %q, want BASILIC", p.Name())
	}

	tests := map[string]string{
		"light.red":              "70",
		"light.green":            "20",
		"light.blue":             "40",
		"light.on":               "06:00",
		"light.off":              "22:00",
		"water.flow.on":          "5",
		"water.flow.off":         "25",
		"water.temperature.low":  "18.5",
		"water.temperature.high": "24",
		"air.temperature.low":    "19",
		"air.temperature.high":   "27",
	}
	for key, want := range tests {
		got, ok := p.Parameter(key)
		if !ok {
			t.Errorf("Parameter(%q) missing", key)
			continue
		}
		if got != want {
			t.Errorf("Parameter(%q) = %q, want %q", key, got, want)
		}
	}

	if len(p.Keys()) != len(tests) {
		t.Errorf("Keys() = %v, want %d keys", p.Keys(), len(tests))
	}
}

func TestLoaderLoadUnknownProgram(t *testing.T) {
	_, err := Parse([]byte(programsYAML), "CAROTTE")
	if !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("Parse() error = %v, want ErrProgramNotFound", err)
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	loader := NewLoader("/nonexistent/path/programs.yaml")
	_, err := loader.Load("BASILIC")
	if err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestParseRejectsSequences(t *testing.T) {
	doc := "BASILIC:\n  light:\n    red: [1, 2]\n"
	if _, err := Parse([]byte(doc), "BASILIC"); err == nil {
		t.Error("Parse() should reject sequence values")
	}
}

func TestParseSkipsNulls(t *testing.T) {
	doc := "BASILIC:\n  light:\n    red: ~\n    blue: 10\n"
	p, err := Parse([]byte(doc), "BASILIC")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := p.Parameter("light.red"); ok {
		t.Error("null parameter should be absent")
	}
	if v, _ := p.Parameter("light.blue"); v != "10" {
		t.Errorf("light.blue = %q, want 10", v)
	}
}

func TestProgramIsImmutable(t *testing.T) {
	src := map[string]string{"light.red": "70"}
	p := New("BASILIC", src)
	src["light.red"] = "0"

	params := p.Parameters()
	params["light.red"] = "1"

	if v, _ := p.Parameter("light.red"); v != "70" {
		t.Errorf("light.red = %q, program must not share maps with callers", v)
	}
}
