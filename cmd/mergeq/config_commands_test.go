package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	socket := filepath.Join(t.TempDir(), "s")
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init"}, socket, target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init"}, socket, target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--overwrite"}, socket, target); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, socket, target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, target)
	requireContains(t, out, "interval_in_minutes = 5")
}

func TestConfigShowDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "missing.toml")
	out, _, err := runCLI(t, []string{"config", "show"}, filepath.Join(t.TempDir(), "s"), target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "not found, defaults")
}

func TestCompletionSkipsConfig(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("not = [valid"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, _, err := runCLI(t, []string{"completion", "bash"}, filepath.Join(t.TempDir(), "s"), bad)
	if err != nil {
		t.Fatalf("completion: %v", err)
	}
	requireContains(t, out, "mergeq")
}
