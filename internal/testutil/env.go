// Package testutil provides shared helpers for package tests: throwaway
// home directories and a logger that stays quiet unless a test fails.
package testutil

import (
	"log/slog"
	"testing"

	"github.com/foliokit/folio/internal/home"
)

// TempHome creates an initialized home directory under t.TempDir.
func TempHome(t *testing.T) *home.Dir {
	t.Helper()
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("creating test home: %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("initializing test home: %v", err)
	}
	return h
}

// Logger returns a logger that discards everything. Tests asserting on log
// output should build their own handler instead.
func Logger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
