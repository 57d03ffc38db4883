package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "xrayview.log")

	log, closer, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	log.Info().Str("scan", "42").Msg("opened detail")
	log.Debug().Msg("hidden at info level")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "opened detail") || !strings.Contains(out, "scan=42") {
		t.Fatalf("log output = %q, want message and field", out)
	}
	if strings.Contains(out, "hidden at info level") {
		t.Fatalf("debug line written at info level: %q", out)
	}
}

func TestNew_EmptyPathDiscards(t *testing.T) {
	log, closer, err := New(Options{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	log.Info().Msg("nowhere")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewConsole_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsole(&buf, true)
	log.Debug().Msg("request sent")
	if !strings.Contains(buf.String(), "request sent") {
		t.Fatalf("output = %q, want debug line", buf.String())
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("output contains colour codes: %q", buf.String())
	}
}
