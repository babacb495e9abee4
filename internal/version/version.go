// Package version carries the build identity of the clsmerge binary.
package version

import "github.com/fatih/color"

// Overridable at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = colorize("0", "1", "0") + "-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// colorize renders major.minor.patch with one color per segment.
func colorize(major, minor, patch string) string {
	return color.New(color.FgYellow, color.Bold).Sprint(major) + "." +
		color.New(color.FgGreen, color.Bold).Sprint(minor) + "." +
		color.New(color.FgBlue, color.Bold).Sprint(patch)
}
