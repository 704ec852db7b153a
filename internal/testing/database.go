// Package testing holds fixtures shared by forge's package tests.
package testing

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/teranos/forge/am"
	"github.com/teranos/forge/ledger"
)

// CreateTestLedger opens a migrated ledger in a temporary file.
// Automatically registers cleanup via t.Cleanup().
func CreateTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()

	// a file rather than :memory:, so every pooled connection sees one database
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("Failed to create test ledger: %v", err)
	}

	t.Cleanup(func() {
		l.Close()
	})

	return l
}

// IsolateConfig points HOME and the working directory at fresh temporary
// directories so no user or project forge.toml leaks into a test. It returns
// the working directory.
func IsolateConfig(t *testing.T) string {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	wd := t.TempDir()
	t.Chdir(wd)

	am.Reset()
	t.Cleanup(am.Reset)
	return wd
}
