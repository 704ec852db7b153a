package display

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommands() (*cobra.Command, *cobra.Command) {
	root := &cobra.Command{Use: "forge"}
	root.PersistentFlags().Bool("json", false, "")
	child := &cobra.Command{Use: "render", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(child)
	return root, child
}

func TestShouldOutputJSON(t *testing.T) {
	t.Setenv(OutputEnv, "")

	t.Run("default is human output", func(t *testing.T) {
		_, child := newCommands()
		assert.False(t, ShouldOutputJSON(child))
	})

	t.Run("global flag", func(t *testing.T) {
		root, child := newCommands()
		require.NoError(t, root.PersistentFlags().Set("json", "true"))
		assert.True(t, ShouldOutputJSON(child))
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(OutputEnv, "json")
		_, child := newCommands()
		assert.True(t, ShouldOutputJSON(child))
		assert.True(t, ShouldOutputJSON(nil))
	})

	t.Run("explicit false beats environment", func(t *testing.T) {
		t.Setenv(OutputEnv, "json")
		_, child := newCommands()
		child.Flags().Bool("json", false, "")
		require.NoError(t, child.Flags().Set("json", "false"))
		assert.False(t, ShouldOutputJSON(child))
	})
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OutputJSON(&buf, map[string]int{"created": 3}))
	assert.Equal(t, "{\n  \"created\": 3\n}\n", buf.String())

	assert.Error(t, OutputJSON(&buf, make(chan int)))
}
