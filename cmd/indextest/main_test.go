package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
)

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old")
	if err := os.WriteFile(old, []byte("dartmouth 1 3 2 1\ncollege 1 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no arguments", nil, apperrors.ExitUsage},
		{"three arguments", []string{old, "new", "extra"}, apperrors.ExitUsage},
		{"empty old file", []string{"", filepath.Join(dir, "new")}, apperrors.ExitInvalidArg},
		{"empty new file", []string{old, ""}, apperrors.ExitInvalidArg},
		{"unopenable old file", []string{filepath.Join(dir, "absent"), filepath.Join(dir, "new")}, apperrors.ExitIO},
		{"ok", []string{old, filepath.Join(dir, "copy")}, apperrors.ExitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run("", tt.args)
			if got := apperrors.ExitCode(err); got != tt.want {
				t.Errorf("exit code = %d, want %d (err: %v)", got, tt.want, err)
			}
		})
	}
}

func TestRunCopiesSorted(t *testing.T) {
	dir := t.TempDir()
	old, copied := filepath.Join(dir, "old"), filepath.Join(dir, "new")
	if err := os.WriteFile(old, []byte("dartmouth 2 1 1 3\ncollege 1 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run("", []string{old, copied}); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(copied)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte("college 1 1\ndartmouth 1 3 2 1\n"); !bytes.Equal(got, want) {
		t.Errorf("copy = %q, want %q", got, want)
	}
}
