// Package version exposes build-time version metadata.
// The variables are overridden at build time via -ldflags.
package version

// Set via -ldflags "-X github.com/fleetsight/fleetsight/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Map returns version metadata for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}
