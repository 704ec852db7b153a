// Package report turns a RenderReport into the run summary shown to users,
// either as terminal output or as JSON for tooling.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/teranos/forge/artifact"
	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/filesync"
	"github.com/teranos/forge/logger"
)

// Summary counts outcomes. Path lists keep report order.
type Summary struct {
	Root             string        `json:"root"`
	Mode             artifact.Mode `json:"mode"`
	DryRun           bool          `json:"dry_run"`
	Created          int           `json:"created"`
	Updated          int           `json:"updated"`
	Skipped          int           `json:"skipped"`
	CreatedPaths     []string      `json:"created_paths"`
	UpdatedPaths     []string      `json:"updated_paths"`
	OverwrittenEdits []string      `json:"overwritten_edits,omitempty"`
	ElapsedMS        int64         `json:"elapsed_ms"`
}

// Total is the number of requests the pass reached.
func (s Summary) Total() int { return s.Created + s.Updated + s.Skipped }

// Summarize folds a report into a Summary.
func Summarize(r *filesync.RenderReport) Summary {
	s := Summary{
		Root:         r.Root,
		Mode:         r.Mode,
		DryRun:       r.DryRun,
		CreatedPaths: []string{},
		UpdatedPaths: []string{},
		ElapsedMS:    r.Elapsed.Milliseconds(),
	}
	for _, res := range r.Results {
		switch res.Outcome {
		case artifact.Created:
			s.Created++
			s.CreatedPaths = append(s.CreatedPaths, res.Path)
		case artifact.Updated:
			s.Updated++
			s.UpdatedPaths = append(s.UpdatedPaths, res.Path)
			if res.OverwroteEdit {
				s.OverwrittenEdits = append(s.OverwrittenEdits, res.Path)
			}
		case artifact.SkippedIdentical, artifact.SkippedNoop:
			s.Skipped++
		}
	}
	return s
}

// Document is the JSON form: the summary plus every result.
type Document struct {
	Summary Summary           `json:"summary"`
	Results []filesync.Result `json:"results"`
}

// WriteJSON writes the machine-readable report.
func WriteJSON(w io.Writer, r *filesync.RenderReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{Summary: Summarize(r), Results: r.Results}); err != nil {
		return errors.Wrap(err, "failed to write JSON report")
	}
	return nil
}

// Print renders the summary. Verbosity 0 prints counts and warnings, 1 adds
// created and updated paths, 2 and above lists every result.
func Print(w io.Writer, r *filesync.RenderReport, verbosity int) {
	s := Summarize(r)

	verb := "Rendered"
	if s.DryRun {
		verb = "Checked"
	}
	pterm.Fprintln(w, fmt.Sprintf("%s %s (%s): %s created, %s updated, %s skipped",
		verb,
		pterm.LightCyan(s.Root),
		s.Mode,
		pterm.Green(s.Created),
		pterm.Yellow(s.Updated),
		pterm.Gray(s.Skipped),
	))

	if verbosity >= logger.VerbosityDebug {
		for _, res := range r.Results {
			pterm.Fprintln(w, "  "+outcomeLabel(res.Outcome)+" "+res.Path)
		}
	} else if verbosity >= logger.VerbosityInfo {
		for _, p := range s.CreatedPaths {
			pterm.Fprintln(w, "  "+pterm.Green("+ ")+p)
		}
		for _, p := range s.UpdatedPaths {
			pterm.Fprintln(w, "  "+pterm.Yellow("~ ")+p)
		}
	}

	for _, p := range s.OverwrittenEdits {
		pterm.Fprintln(w, pterm.Yellow("warning: ")+p+" had local edits that were replaced")
	}
	if s.DryRun && (s.Created > 0 || s.Updated > 0) {
		pterm.Fprintln(w, pterm.Gray("dry run: nothing was written"))
	}
}

// labelWidth fits the longest outcome, skipped(identical).
const labelWidth = 18

// outcomeLabel pads before colouring so escape codes do not count toward the width.
func outcomeLabel(o artifact.Outcome) string {
	label := fmt.Sprintf("%-*s", labelWidth, string(o))
	switch o {
	case artifact.Created:
		return pterm.Green(label)
	case artifact.Updated:
		return pterm.Yellow(label)
	}
	return pterm.Gray(label)
}
