package deps

import (
	"os"
	"path/filepath"
	"testing"

	"redub/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
}

func TestCheckBinariesEmptyCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Unset", Command: "  "}})
	if results[0].Available {
		t.Fatal("expected unconfigured command to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %q", results[0].Detail)
	}
}

func TestSeparationAvailable(t *testing.T) {
	binDir := t.TempDir()
	tool := filepath.Join(binDir, "demucs")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	cfg := config.Default()
	cfg.Separation.Enabled = true
	cfg.Separation.Command = tool
	if !SeparationAvailable(&cfg) {
		t.Fatal("expected separation to be available with stub on disk")
	}

	cfg.Separation.Command = "definitely-missing-separator"
	if SeparationAvailable(&cfg) {
		t.Fatal("expected separation to be unavailable for missing binary")
	}

	cfg.Separation.Enabled = false
	if SeparationAvailable(&cfg) {
		t.Fatal("disabled separation must not probe")
	}
}

func TestRequirementsIncludesOptionalSeparator(t *testing.T) {
	cfg := config.Default()
	cfg.Separation.Enabled = true
	reqs := Requirements(&cfg)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(reqs))
	}
	if !reqs[2].Optional {
		t.Fatal("separation requirement should be optional")
	}

	cfg.Separation.Enabled = false
	if got := len(Requirements(&cfg)); got != 2 {
		t.Fatalf("expected 2 requirements with separation disabled, got %d", got)
	}
}
