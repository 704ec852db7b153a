package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/forge/display"
	"github.com/teranos/forge/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show forge version information",
	Long:  `Display the forge version, the embedded template set, the ledger schema, and build information.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(cmd.OutOrStdout(), info)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, info.String())
		fmt.Fprintf(w, "Ledger schema: %s\n", info.LedgerSchema)
		fmt.Fprintf(w, "Platform: %s\n", info.Platform)
		fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
		return nil
	},
}
