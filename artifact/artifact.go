// Package artifact defines the values passed between planning and
// synchronization: the run mode, planned file requests, and their outcomes.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/teranos/forge/errors"
)

// Mode selects whether a run creates a new project or updates an existing one.
type Mode string

const (
	// ModeNew renders into an empty or missing destination
	ModeNew Mode = "new"
	// ModeIncremental renders into an existing, possibly hand-edited project
	ModeIncremental Mode = "incremental"
)

// ParseMode accepts "new" or "incremental".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNew, ModeIncremental:
		return Mode(s), nil
	}
	return "", errors.Newf("unknown mode %q (expected new or incremental)", s)
}

// ModeFor maps the CLI's --incremental flag to a Mode.
func ModeFor(incremental bool) Mode {
	if incremental {
		return ModeIncremental
	}
	return ModeNew
}

// Category is informational and used only for reporting.
type Category string

const (
	CategoryDirectory Category = "directory"
	CategoryConfig    Category = "config"
	CategoryComponent Category = "component"
	CategoryPage      Category = "page"
	CategoryRoute     Category = "route"
	CategoryModel     Category = "model"
	CategoryEntry     Category = "entry"
	CategoryStyle     Category = "style"
	CategoryTest      Category = "test"
	CategoryDoc       Category = "doc"
	CategoryScript    Category = "script"
)

// Kind distinguishes directory requests from file requests.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Policy controls what happens when the destination already exists.
type Policy string

const (
	// PolicySync creates, skips when identical, and overwrites otherwise
	PolicySync Policy = "sync"
	// PolicySeed creates once; an existing file belongs to the user
	PolicySeed Policy = "seed"
)

// Request is one planned file or directory. Path is slash-separated and
// relative to the project root.
type Request struct {
	Path       string
	Content    string
	Category   Category
	Kind       Kind
	Policy     Policy
	Executable bool
}

// Digest returns the hex SHA-256 of the request content.
func (r Request) Digest() string {
	return Digest([]byte(r.Content))
}

// Digest returns the hex SHA-256 of b.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Outcome is what synchronization did with one request.
type Outcome string

const (
	Created          Outcome = "created"
	Updated          Outcome = "updated"
	SkippedIdentical Outcome = "skipped(identical)"
	SkippedNoop      Outcome = "skipped(no-op)"
)

// Skipped reports whether the outcome left the destination untouched.
func (o Outcome) Skipped() bool {
	return o == SkippedIdentical || o == SkippedNoop
}

// Wrote reports whether the outcome wrote to the destination.
func (o Outcome) Wrote() bool {
	return o == Created || o == Updated
}
