// Package version reports build information along with the template set and
// ledger schema a forge binary carries.
package version

import (
	"fmt"
	"runtime"

	"github.com/teranos/forge/ledger"
	"github.com/teranos/forge/templates"
)

// Build information, set at build time via ldflags:
//
//	-X github.com/teranos/forge/version.Version=v0.4.0
var (
	CommitHash = "dev"
	BuildTime  = "unknown"
	Version    = "dev"
)

// Info describes the running binary.
type Info struct {
	Version      string `json:"version"`
	CommitHash   string `json:"commit_hash"`
	BuildTime    string `json:"build_time"`
	Templates    string `json:"templates"`
	LedgerSchema string `json:"ledger_schema"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:      Version,
		CommitHash:   CommitHash,
		BuildTime:    BuildTime,
		Templates:    templates.SetVersion,
		LedgerSchema: ledger.SchemaVersion(),
		GoVersion:    runtime.Version(),
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String is the one-line form printed by `forge version`. Two binaries with
// the same template set render identical projects.
func (i Info) String() string {
	commit := i.CommitHash
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("forge %s (templates %s, commit %s, built %s)", i.Version, i.Templates, commit, i.BuildTime)
}
