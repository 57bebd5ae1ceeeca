// Package deps probes the external binaries the pipeline shells out to.
//
// Required tools (ffmpeg, ffprobe) gate startup; optional tools (the vocal
// separation command) merely disable their feature branch when absent. Probes
// run once at pipeline start and the results are threaded through as flags,
// not re-checked per call.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"redub/internal/config"
)

// Requirement defines an external dependency redub relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the dependency set for the provided configuration.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "FFmpeg", Command: "ffmpeg", Description: "audio extraction, tempo adjustment, assembly, remux"},
		{Name: "FFprobe", Command: "ffprobe", Description: "media inspection"},
	}
	if cfg != nil && cfg.Separation.Enabled {
		reqs = append(reqs, Requirement{
			Name:        "Vocal separation",
			Command:     cfg.Separation.Command,
			Description: "background track preservation during dubbing",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// SeparationAvailable reports whether the optional vocal separation tool can
// run. This is the capability probe the dubbing pipeline performs once at
// start; a false result disables the background-preservation branch.
func SeparationAvailable(cfg *config.Config) bool {
	if cfg == nil || !cfg.Separation.Enabled {
		return false
	}
	command := strings.TrimSpace(cfg.Separation.Command)
	if command == "" {
		return false
	}
	_, err := exec.LookPath(command)
	return err == nil
}
