// Package errors provides error handling for forge.
//
// This package re-exports github.com/cockroachdb/errors so every forge package
// gets stack traces, wrapping and user-facing hints from a single import:
//
//	// Wrap with context
//	if err := os.WriteFile(path, data, 0644); err != nil {
//	    return errors.Wrapf(err, "failed to write %s", path)
//	}
//
//	// Add hints for users
//	return errors.WithHint(err, "re-run with --incremental to update an existing project")
//
//	// Classify render failures
//	if errors.Is(err, errors.ErrTemplateNotFound) {
//	    // planning aborted before any write
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Classification
var (
	// Mark makes err match reference under Is while keeping err's own message and chain
	Mark = crdb.Mark
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapOnce     = crdb.UnwrapOnce
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Sentinel errors for the render pipeline.
// Typed errors in spec, templates, planner and filesync report Is() against
// these so callers can classify a failure without importing those packages.
var (
	// ErrInvalidSpec indicates the Specification failed validation
	ErrInvalidSpec = New("invalid specification")

	// ErrTemplateNotFound indicates no template is registered for a (category, framework) pair
	ErrTemplateNotFound = New("template not found")

	// ErrDuplicateArtifact indicates two planned artifacts target the same path
	ErrDuplicateArtifact = New("duplicate artifact path")

	// ErrDependencyConflict indicates two stack layers request incompatible version ranges
	ErrDependencyConflict = New("dependency version conflict")

	// ErrEnrichment indicates the design-system collaborator failed
	ErrEnrichment = New("design enrichment failed")

	// ErrFilesystem indicates an I/O failure during synchronization
	ErrFilesystem = New("filesystem error")

	// ErrDestinationNotEmpty indicates a new-project render targeted a non-empty directory
	ErrDestinationNotEmpty = New("destination is not empty")
)

// IsPlanningError reports whether err aborted a run before any filesystem access.
func IsPlanningError(err error) bool {
	return err != nil && IsAny(err,
		ErrInvalidSpec,
		ErrTemplateNotFound,
		ErrDuplicateArtifact,
		ErrDependencyConflict,
		ErrEnrichment,
	)
}

// IsFilesystemError checks if an error is or wraps ErrFilesystem
func IsFilesystemError(err error) bool {
	return err != nil && Is(err, ErrFilesystem)
}
