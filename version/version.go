// Package version holds the release tag of dosfs.
//
// The -version flag prints the banner, and the shell's VER command shows
// it after the emulated DOS version.
package version

import "fmt"

var (
	// version is set at link time with -ldflags "-X".
	version = "unreleased"
)

// GetVersionBanner returns the program name, release and homepage, one
// per line.
func GetVersionBanner() string {
	return fmt.Sprintf("dosfs %s\n%s\n", version, "https://github.com/skx/dosfs/")
}

// GetVersionString returns the bare release tag.
func GetVersionString() string {
	return version
}
