package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupAppliesAPIURLOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	content := "api_url = \"http://file.example:9000/api\"\nlog_dir = \"" + filepath.ToSlash(dir) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("XRAY_API_URL", "")
	t.Setenv("XRAY_MEDIA_URL", "")
	t.Setenv("REACT_APP_API_URL", "")

	env, err := Setup(Options{ConfigPath: cfgPath, APIURL: "https://scans.example.org/api/"})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	t.Cleanup(func() { _ = env.Close() })

	if env.API.BaseURL() != "https://scans.example.org/api" {
		t.Fatalf("BaseURL = %q", env.API.BaseURL())
	}
	if env.Config.MediaURL != "https://scans.example.org" {
		t.Fatalf("MediaURL = %q", env.Config.MediaURL)
	}
	if _, err := os.Stat(filepath.Join(dir, "xrayview.log")); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}

func TestSetupRejectsBadAPIURL(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("log_dir = \""+filepath.ToSlash(dir)+"\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Setup(Options{ConfigPath: cfgPath, APIURL: "ftp://nope"})
	if err == nil {
		t.Fatal("expected error for non-http api url")
	}
	if !strings.Contains(err.Error(), "invalid api_url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetupReportsConfigErrors(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("api_url = ["), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Setup(Options{ConfigPath: cfgPath})
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse config error, got %v", err)
	}
}
