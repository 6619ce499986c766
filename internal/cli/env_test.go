package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvLoader_MissingDefaultIsIgnored(t *testing.T) {
	t.Setenv(EnvFileVar, "")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, filepath.Join(t.TempDir(), ".env"))
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	path, err := loader.Load()
	if err != nil {
		t.Fatalf("expected missing default file to be ignored, got %v", err)
	}
	if path != "" {
		t.Fatalf("did not expect a loaded path, got %q", path)
	}
}

func TestEnvLoader_MissingExplicitFileFails(t *testing.T) {
	t.Setenv(EnvFileVar, "")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, ".env")
	if err := fs.Parse([]string{"--env", filepath.Join(t.TempDir(), "missing.env")}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if _, err := loader.Load(); err == nil {
		t.Fatalf("expected error for missing explicit env file")
	}
}

func TestEnvLoader_OverrideVariableWins(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "override.env")
	if err := os.WriteFile(override, []byte("TRANSLATOR_TEST_VALUE=from-override\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(EnvFileVar, override)
	t.Setenv("TRANSLATOR_TEST_VALUE", "")
	os.Unsetenv("TRANSLATOR_TEST_VALUE")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, filepath.Join(dir, ".env"))
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	path, err := loader.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path != override {
		t.Fatalf("unexpected loaded path: got %q want %q", path, override)
	}
	if got := os.Getenv("TRANSLATOR_TEST_VALUE"); got != "from-override" {
		t.Fatalf("unexpected env value: %q", got)
	}
}
