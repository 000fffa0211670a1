// Package version exposes the application version derived from build
// metadata. Go 1.18+ embeds VCS info into the binary via
// runtime/debug.BuildInfo, so no -ldflags are required.
package version

import "runtime/debug"

// AppName identifies this application in user-agent strings and logs.
const AppName = "investigator"

// GitCommit is the short git commit hash (8 chars) from build info, or
// "dev" when build info is unavailable (e.g. `go test`, non-git builds).
var GitCommit = initGitCommit()

func initGitCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 8 {
				return s.Value[:8]
			}
			return s.Value
		}
	}
	return "dev"
}

// Full returns "investigator/<commit>" for logging and health responses.
func Full() string { return AppName + "/" + GitCommit }
