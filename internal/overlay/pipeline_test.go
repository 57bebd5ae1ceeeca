package overlay

import (
	"path/filepath"
	"testing"
)

func TestLocalizedPathSanitizesStem(t *testing.T) {
	got := localizedPath("/in/ad|copy?.png", "/out")
	want := filepath.Join("/out", "adcopy_localized.png")
	if got != want {
		t.Fatalf("localizedPath = %q, want %q", got, want)
	}
}
