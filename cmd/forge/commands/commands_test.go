package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/forge/errors"
	forgetest "github.com/teranos/forge/internal/testing"
	"github.com/teranos/forge/ledger"
	"github.com/teranos/forge/templates"
)

const todoSpec = `{
  "app": {"name": "todo"},
  "stack": {
    "frontend": {"framework": "react", "language": "typescript"},
    "backend": {"framework": "express", "language": "typescript"},
    "database": {"type": "sqlite"}
  },
  "components": [], "pages": [],
  "routes": [{"path": "/tasks", "method": "GET", "handler": "listTasks"}]
}`

// newRoot mirrors the binary's root command without logger setup.
func newRoot() *cobra.Command {
	root := &cobra.Command{Use: "forge", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().CountP("verbose", "v", "")
	root.PersistentFlags().Bool("json", false, "")
	for _, c := range []*cobra.Command{RenderCmd, CheckCmd, PlanCmd, WatchCmd, HistoryCmd, AmCmd, VersionCmd} {
		resetFlags(c)
		root.AddCommand(c)
	}
	return root
}

// resetFlags restores defaults; cobra keeps flag state in package variables.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSpec(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "todo.json")
	require.NoError(t, os.WriteFile(p, []byte(todoSpec), 0o644))
	return p
}

func TestRenderThenCheck(t *testing.T) {
	wd := forgetest.IsolateConfig(t)
	specPath := writeSpec(t, wd)
	out := filepath.Join(wd, "todo")

	stdout, err := execute(t, "render", "--spec", specPath, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Rendered")
	assert.FileExists(t, filepath.Join(out, "server", "src", "routes", "tasks.ts"))
	assert.DirExists(t, filepath.Join(out, ".git"), "git.init defaults to true")

	_, err = execute(t, "check", "--spec", specPath, "--out", out)
	assert.NoError(t, err, "freshly rendered project is in sync")

	route := filepath.Join(out, "server", "src", "routes", "tasks.ts")
	require.NoError(t, os.WriteFile(route, []byte("// edited\n"), 0o644))
	stdout, err = execute(t, "check", "--spec", specPath, "--out", out)
	assert.ErrorIs(t, err, ErrOutOfDate)
	assert.Contains(t, stdout, "Checked")

	edited, err := os.ReadFile(route)
	require.NoError(t, err)
	assert.Equal(t, "// edited\n", string(edited), "check never writes")
}

func TestRenderIncrementalJSON(t *testing.T) {
	wd := forgetest.IsolateConfig(t)
	specPath := writeSpec(t, wd)
	out := filepath.Join(wd, "todo")

	_, err := execute(t, "render", "-s", specPath, "-o", out)
	require.NoError(t, err)

	_, err = execute(t, "render", "-s", specPath, "-o", out)
	require.Error(t, err, "second ModeNew run needs --incremental")
	assert.True(t, errors.Is(err, errors.ErrDestinationNotEmpty))

	stdout, err := execute(t, "render", "-s", specPath, "-o", out, "--incremental", "--json")
	require.NoError(t, err)

	var doc struct {
		Summary struct {
			Created int    `json:"created"`
			Updated int    `json:"updated"`
			Mode    string `json:"mode"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "incremental", doc.Summary.Mode)
	assert.Zero(t, doc.Summary.Created)
	assert.Zero(t, doc.Summary.Updated)
}

func TestPlanJSON(t *testing.T) {
	wd := forgetest.IsolateConfig(t)
	specPath := writeSpec(t, wd)

	stdout, err := execute(t, "plan", "--spec", specPath, "--json")
	require.NoError(t, err)

	var planned []plannedArtifact
	require.NoError(t, json.Unmarshal([]byte(stdout), &planned))
	require.NotEmpty(t, planned)
	assert.Equal(t, "directory", planned[0].Kind)

	paths := map[string]plannedArtifact{}
	for _, p := range planned {
		paths[p.Path] = p
	}
	assert.Contains(t, paths, "server/src/routes/tasks.ts")
	assert.Contains(t, paths, ".env")
	assert.True(t, paths["scripts/setup.sh"].Executable)

	stdout, err = execute(t, "plan", "--spec", specPath, "--mode", "incremental")
	require.NoError(t, err)
	assert.NotContains(t, stdout, " .env (")
	assert.Contains(t, stdout, "artifacts for todo (incremental)")

	_, err = execute(t, "plan", "--spec", specPath, "--mode", "sideways")
	assert.Error(t, err)
}

func TestPlanInvalidSpec(t *testing.T) {
	wd := forgetest.IsolateConfig(t)
	bad := filepath.Join(wd, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"app": {"name": "x"}}`), 0o644))

	_, err := execute(t, "plan", "--spec", bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSpec))
}

func TestHistory(t *testing.T) {
	wd := forgetest.IsolateConfig(t)
	specPath := writeSpec(t, wd)
	out := filepath.Join(wd, "todo")

	_, err := execute(t, "render", "-s", specPath, "-o", out)
	require.NoError(t, err)
	_, err = execute(t, "render", "-s", specPath, "-o", out, "-i")
	require.NoError(t, err)

	stdout, err := execute(t, "history", "--json")
	require.NoError(t, err)
	var runs []ledger.Run
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "todo", runs[0].App)

	stdout, err = execute(t, "history", "--out", out, "--forget")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Forgot 2 runs")

	stdout, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded")
}

func TestAmSetGetValidate(t *testing.T) {
	wd := forgetest.IsolateConfig(t)

	stdout, err := execute(t, "am", "set", "watch.debounce_ms", "120")
	require.NoError(t, err)
	assert.Contains(t, stdout, "watch.debounce_ms = 120")
	assert.FileExists(t, filepath.Join(wd, "forge.toml"))

	stdout, err = execute(t, "am", "get", "watch.debounce_ms")
	require.NoError(t, err)
	assert.Equal(t, "120\n", stdout)

	_, err = execute(t, "am", "get", "nope.missing")
	assert.Error(t, err)

	_, err = execute(t, "am", "set", "log.theme", "neon")
	assert.Error(t, err, "written value fails validation")

	_, err = execute(t, "am", "validate")
	assert.Error(t, err)
}

func TestAmShowFormats(t *testing.T) {
	forgetest.IsolateConfig(t)
	t.Setenv("FORGE_DESIGN_API_KEY", "sk-secret")

	for _, format := range []string{"toml", "yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			stdout, err := execute(t, "am", "show", "--format", format)
			require.NoError(t, err)
			assert.Contains(t, stdout, "debounce_ms")
			assert.NotContains(t, stdout, "sk-secret")
		})
	}

	_, err := execute(t, "am", "show", "--format", "ini")
	assert.Error(t, err)
}

func TestAmWhere(t *testing.T) {
	wd := forgetest.IsolateConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(wd, "forge.toml"), []byte("[git]\ninit = false\n"), 0o644))

	stdout, err := execute(t, "am", "where")
	require.NoError(t, err)
	assert.Contains(t, stdout, "project: 1 settings from")
	assert.Contains(t, stdout, "git.init = false")
}

func TestVersionJSON(t *testing.T) {
	stdout, err := execute(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Equal(t, "dev", info["version"])
	assert.Equal(t, templates.SetVersion, info["templates"])
	assert.Equal(t, "002", info["ledger_schema"])
}

func TestWatchRejectsRemoteSources(t *testing.T) {
	forgetest.IsolateConfig(t)
	_, err := execute(t, "watch", "--spec", "https://example.com/todo.json", "--out", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot watch remote source")
}
