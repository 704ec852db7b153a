package version

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teranos/forge/templates"
)

func TestGetReportsRenderInputs(t *testing.T) {
	info := Get()
	assert.Equal(t, templates.SetVersion, info.Templates)
	assert.Equal(t, "002", info.LedgerSchema, "newest embedded migration")
	assert.NotEmpty(t, info.GoVersion)
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{
			name: "dev build",
			info: Info{Version: "dev", CommitHash: "dev", BuildTime: "unknown", Templates: "2026.10.1"},
			want: "forge dev (templates 2026.10.1, commit dev, built unknown)",
		},
		{
			name: "release shortens the commit",
			info: Info{Version: "v0.4.0", CommitHash: "0123456789abcdef", BuildTime: "2026-10-19", Templates: "2026.10.1"},
			want: "forge v0.4.0 (templates 2026.10.1, commit 0123456, built 2026-10-19)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.String())
		})
	}
}
