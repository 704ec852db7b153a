// Package display decides how command results reach stdout.
package display

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// OutputEnv forces machine output for every command when set to "json".
const OutputEnv = "FORGE_OUTPUT"

// ShouldOutputJSON determines if a command should output JSON based on flags
// and the FORGE_OUTPUT environment variable.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return os.Getenv(OutputEnv) == "json"
	}

	// an explicit --json on the command wins either way
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("json")
		return v
	}
	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}
	return os.Getenv(OutputEnv) == "json"
}

// OutputJSON marshals v and writes it to w followed by a newline.
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
