package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvMediaURL, "")
	t.Setenv(envLegacyAPIURL, "")
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := isolateEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.MediaURL != "http://localhost:8000" {
		t.Fatalf("MediaURL = %q, want origin of api url", cfg.MediaURL)
	}
	wantLogDir, err := ExpandPath(defaultLogDir)
	if err != nil {
		t.Fatalf("ExpandPath(defaultLogDir) returned error: %v", err)
	}
	if cfg.LogDir != wantLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, wantLogDir)
	}
	if cfg.UploadTimeout != 30*time.Second {
		t.Fatalf("UploadTimeout = %v, want 30s", cfg.UploadTimeout)
	}
	if cfg.SearchDebounce != 250*time.Millisecond {
		t.Fatalf("SearchDebounce = %v, want 250ms", cfg.SearchDebounce)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := isolateEnv(t)

	path := writeConfig(t, `
api_url = "  https://xray.example.org/api/  "
media_url = " https://cdn.example.org/ "
log_dir = "  ~/.xray/logs  "
upload_timeout = "45s"
search_debounce = "0s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://xray.example.org/api" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.MediaURL != "https://cdn.example.org" {
		t.Fatalf("MediaURL = %q", cfg.MediaURL)
	}
	if !strings.HasPrefix(cfg.LogDir, home) {
		t.Fatalf("LogDir = %q, want it under HOME %q", cfg.LogDir, home)
	}
	if cfg.UploadTimeout != 45*time.Second {
		t.Fatalf("UploadTimeout = %v, want 45s", cfg.UploadTimeout)
	}
	if cfg.SearchDebounce != 0 {
		t.Fatalf("SearchDebounce = %v, want 0", cfg.SearchDebounce)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	isolateEnv(t)

	path := writeConfig(t, `
api_url = "   "
log_dir = ""
upload_timeout = ""
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.UploadTimeout != defaultUploadTimeout {
		t.Fatalf("UploadTimeout = %v, want %v", cfg.UploadTimeout, defaultUploadTimeout)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvAPIURL, "http://10.0.0.5:9000/api")

	path := writeConfig(t, `api_url = "http://file.example/api"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://10.0.0.5:9000/api" {
		t.Fatalf("APIURL = %q, want env value", cfg.APIURL)
	}
	if cfg.MediaURL != "http://10.0.0.5:9000" {
		t.Fatalf("MediaURL = %q, want env origin", cfg.MediaURL)
	}
}

func TestLoad_LegacyFrontendVariable(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv(envLegacyAPIURL, "http://legacy:8000/api")

	cfg, err := Load(filepath.Join(home, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://legacy:8000/api" {
		t.Fatalf("APIURL = %q, want legacy env value", cfg.APIURL)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	isolateEnv(t)
	_, err := Load(writeConfig(t, `api_url = [`))
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	isolateEnv(t)
	for _, body := range []string{
		`upload_timeout = "soon"`,
		`upload_timeout = "0s"`,
		`search_debounce = "-1s"`,
	} {
		_, err := Load(writeConfig(t, body))
		if err == nil || !strings.Contains(err.Error(), "parse config") {
			t.Fatalf("Load(%s) error = %v, want parse config error", body, err)
		}
	}
}

func TestLoad_InvalidAPIURLFails(t *testing.T) {
	isolateEnv(t)
	_, err := Load(writeConfig(t, `api_url = "localhost:8000"`))
	if err == nil || !strings.Contains(err.Error(), "invalid api_url") {
		t.Fatalf("Load error = %v, want invalid api_url", err)
	}
}

func TestSetAPIURL_MediaFollowsUnlessExplicit(t *testing.T) {
	var cfg Config
	if err := cfg.SetAPIURL("https://a.example/api/"); err != nil {
		t.Fatalf("SetAPIURL: %v", err)
	}
	if cfg.APIURL != "https://a.example/api" || cfg.MediaURL != "https://a.example" {
		t.Fatalf("got api=%q media=%q", cfg.APIURL, cfg.MediaURL)
	}

	cfg = Config{MediaURL: "https://cdn.example", mediaExplicit: true}
	if err := cfg.SetAPIURL("https://b.example/api"); err != nil {
		t.Fatalf("SetAPIURL: %v", err)
	}
	if cfg.MediaURL != "https://cdn.example" {
		t.Fatalf("MediaURL = %q, want explicit value kept", cfg.MediaURL)
	}
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://already-set/api")
	t.Setenv(EnvMediaURL, "")
	os.Unsetenv(EnvMediaURL)

	path := filepath.Join(t.TempDir(), ".env")
	body := EnvAPIURL + "=http://from-file/api\n" + EnvMediaURL + "=http://media-from-file\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv(EnvAPIURL); got != "http://already-set/api" {
		t.Fatalf("%s = %q, want existing value", EnvAPIURL, got)
	}
	if got := os.Getenv(EnvMediaURL); got != "http://media-from-file" {
		t.Fatalf("%s = %q, want value from file", EnvMediaURL, got)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := ExpandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestLogPath_DefaultsWhenLogDirEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var cfg Config
	got := cfg.LogPath()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("LogPath = %q, want it under HOME %q", got, home)
	}
	if !strings.HasSuffix(got, filepath.FromSlash("/xrayview.log")) {
		t.Fatalf("LogPath = %q, want it to end with /xrayview.log", got)
	}
}
