// SPDX-License-Identifier: MIT
//
// Package build exposes build metadata injected at compile time via linker
// flags, e.g.:
//
//	go build -ldflags "-X audiovis/pkg/build.buildName=audiovis \
//	    -X audiovis/pkg/build.buildVersion=0.1.0"
//
// Development builds without ldflags fall back to "dev" values.
package build

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        "audiovis",
		Description: "Real-time audio analysis pipeline with spectrum and beat features",
		Time:        "dev",
		Commit:      "dev",
		Version:     "dev",
	}
)

// Initialize copies whatever build information the linker injected into the
// buildFlags struct. Fields not set at link time keep their development
// defaults. Call once early in program startup.
func Initialize() {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
}

// GetBuildFlags returns the current build information. Safe to call at any
// time; before Initialize it reports the development defaults.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
