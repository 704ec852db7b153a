package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/forge/artifact"
	"github.com/teranos/forge/display"
	"github.com/teranos/forge/planner"
)

// PlanCmd lists the artifacts a Specification implies.
var PlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "List the artifacts a Specification implies",
	Long: `List the artifacts a Specification implies, in write order.

plan never touches the filesystem. Use --mode incremental to see the plan an
update would use (it omits create-only seeds such as .env).

Examples:
  forge plan --spec todo.json
  forge plan -s todo.json --mode incremental --json`,
	RunE: runPlan,
}

var (
	planSpec     string
	planMode     string
	planNoDesign bool
)

func init() {
	PlanCmd.Flags().StringVarP(&planSpec, "spec", "s", "", "Specification file or remote source")
	PlanCmd.Flags().StringVar(&planMode, "mode", string(artifact.ModeNew), "Planning mode: new or incremental")
	PlanCmd.Flags().BoolVar(&planNoDesign, "no-design", false, "Skip design enrichment even when configured")
	_ = PlanCmd.MarkFlagRequired("spec")
}

// plannedArtifact is the JSON form of one request; content is omitted.
type plannedArtifact struct {
	Path       string            `json:"path"`
	Kind       string            `json:"kind"`
	Category   artifact.Category `json:"category"`
	Policy     artifact.Policy   `json:"policy"`
	Executable bool              `json:"executable,omitempty"`
	Size       int               `json:"size"`
	Digest     string            `json:"digest,omitempty"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	mode, err := artifact.ParseMode(planMode)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := loadSpec(ctx, planSpec)
	if err != nil {
		return err
	}

	r, cleanup, err := buildRenderer(cfg, &pipelineFlags{noLedger: true, noDesign: planNoDesign}, false)
	if err != nil {
		return err
	}
	defer cleanup()

	requests, err := r.Plan(ctx, s, mode)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		out := make([]plannedArtifact, 0, len(requests))
		for _, req := range requests {
			pa := plannedArtifact{
				Path:       req.Path,
				Kind:       req.Kind.String(),
				Category:   req.Category,
				Policy:     req.Policy,
				Executable: req.Executable,
				Size:       len(req.Content),
			}
			if req.Kind == artifact.KindFile {
				pa.Digest = req.Digest()
			}
			out = append(out, pa)
		}
		return display.OutputJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	for i, req := range requests {
		fmt.Fprintf(w, "%3d  %s\n", i+1, planner.Describe(req))
	}
	fmt.Fprintf(w, "%d artifacts for %s (%s)\n", len(requests), s.App.Name, mode)
	return nil
}
