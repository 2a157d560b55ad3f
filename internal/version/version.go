// Package version holds build metadata injected at link time.
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// Name is the program name reported by the CLI and the API.
const Name = "switchboard"

// Set with -ldflags "-X github.com/smazurov/switchboard/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	BuildID   = "unknown"
	// Engine is the media backend compiled in, "gstreamer" or "sim".
	Engine = "sim"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	Engine    string `json:"engine"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// Get returns build metadata. Commit and date fall back to the VCS stamp
// the go tool embeds when ldflags did not set them.
func Get() Info {
	commit, date := GitCommit, BuildDate
	if commit == "unknown" || date == "unknown" {
		vcsCommit, vcsDate := vcsStamp()
		if commit == "unknown" && vcsCommit != "" {
			commit = vcsCommit
		}
		if date == "unknown" && vcsDate != "" {
			date = vcsDate
		}
	}
	return Info{
		Version:   Version,
		GitCommit: commit,
		BuildDate: date,
		BuildID:   BuildID,
		Engine:    Engine,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func vcsStamp() (commit, date string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
		case "vcs.time":
			date = s.Value
		}
	}
	return commit, date
}

// String returns a one-line description such as
// "switchboard dev (commit abc1234, built 2026-01-01, engine sim)".
func String() string {
	info := Get()
	details := make([]string, 0, 3)
	if info.GitCommit != "unknown" {
		details = append(details, "commit "+shortCommit(info.GitCommit))
	}
	if info.BuildDate != "unknown" {
		details = append(details, "built "+info.BuildDate)
	}
	details = append(details, "engine "+info.Engine)
	return Name + " " + info.Version + " (" + strings.Join(details, ", ") + ")"
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
