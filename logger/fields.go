package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across forge.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Runs
	FieldRunID = "run_id"
	FieldMode  = "mode"
	FieldRoot  = "root"
	FieldApp   = "app"

	// Artifacts
	FieldPath      = "path"
	FieldCategory  = "category"
	FieldOutcome   = "outcome"
	FieldFramework = "framework"
	FieldTemplate  = "template"
	FieldDigest    = "digest"
	FieldSize      = "size"

	// Counts
	FieldCount     = "count"
	FieldCreated   = "created"
	FieldUpdated   = "updated"
	FieldSkipped   = "skipped"
	FieldArtifacts = "artifacts"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Collaborators
	FieldEndpoint  = "endpoint"
	FieldComponent = "component"
	FieldFile      = "file"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
//	func New(reg *templates.Registry) *Planner {
//	    return &Planner{logger: logger.ComponentLogger("planner")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
//	runLogger := logger.ChildLogger(base, logger.FieldRunID, run.ID)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
