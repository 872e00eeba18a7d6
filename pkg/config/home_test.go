package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetHome_EnvVar(t *testing.T) {
	ResetHome()
	t.Setenv("BASELINE_RUNNER_HOME", "/custom/path")

	got := GetHome()
	if got != "/custom/path" {
		t.Errorf("GetHome() = %q, want %q", got, "/custom/path")
	}
}

func TestGetHome_FallbackNotEmpty(t *testing.T) {
	ResetHome()
	t.Setenv("BASELINE_RUNNER_HOME", "")

	if got := GetHome(); got == "" {
		t.Error("GetHome() returned empty string")
	}
}

func TestGetHome_Cached(t *testing.T) {
	ResetHome()
	t.Setenv("BASELINE_RUNNER_HOME", "/first")

	first := GetHome()

	// Changing env must not affect the cached value
	t.Setenv("BASELINE_RUNNER_HOME", "/second")
	second := GetHome()

	if first != second {
		t.Errorf("GetHome() not cached: first=%q, second=%q", first, second)
	}
}

func TestGetLogsDir(t *testing.T) {
	ResetHome()
	t.Setenv("BASELINE_RUNNER_HOME", "/test/home")

	got := GetLogsDir()
	want := filepath.Join("/test/home", "logs")
	if got != want {
		t.Errorf("GetLogsDir() = %q, want %q", got, want)
	}
}

func TestLoadWorkspace_FallsBackToHome(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "baseline.yaml"), []byte(`bundleId: from-home`), 0644); err != nil {
		t.Fatal(err)
	}
	ResetHome()
	t.Setenv("BASELINE_RUNNER_HOME", home)

	cfg, err := LoadWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BundleID != "from-home" {
		t.Errorf("expected bundleId from-home, got %s", cfg.BundleID)
	}
}

func TestLoadWorkspace_PrefersWorkspace(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "baseline.yaml"), []byte(`bundleId: from-home`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(work, "baseline.yml"), []byte(`bundleId: from-work`), 0644); err != nil {
		t.Fatal(err)
	}
	ResetHome()
	t.Setenv("BASELINE_RUNNER_HOME", home)

	cfg, err := LoadWorkspace(work)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BundleID != "from-work" {
		t.Errorf("expected bundleId from-work, got %s", cfg.BundleID)
	}
}
