package version

import (
	"strings"
	"testing"
)

// TestVersion tests the banner shows our name and version.
func TestVersion(t *testing.T) {
	x := GetVersionString()
	y := GetVersionBanner()

	if !strings.Contains(y, x) {
		t.Fatalf("banner doesn't contain our version")
	}
	if !strings.HasPrefix(y, "dosfs ") {
		t.Fatalf("banner doesn't contain our name: %q", y)
	}
}
