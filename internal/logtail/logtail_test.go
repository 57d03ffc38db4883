package logtail

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/five82/xrayview/internal/logging"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "xrayview.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("2025-10-08T21:01:0%dZ INF request completed status=200", i%10)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0o644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if lines != nil {
		t.Fatalf("Read() = %v, want nil", lines)
	}
}

func TestLineLevelMatchesConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewConsole(&buf, true)
	log.Debug().Msg("probe image")
	log.Info().Str("api", "http://localhost:8000/api").Msg("xrayview starting")
	log.Warn().Msg("scan list request failed")
	log.Error().Msg("ui exited with error")

	want := []zerolog.Level{zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel, zerolog.ErrorLevel}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i, line := range lines {
		got, ok := LineLevel(line)
		if !ok || got != want[i] {
			t.Errorf("LineLevel(%q) = %v/%v, want %v", line, got, ok, want[i])
		}
	}
}

func TestFilter(t *testing.T) {
	lines := []string{
		"2025-10-08T21:01:05Z DBG request completed",
		"2025-10-08T21:01:06Z INF xrayview starting",
		"2025-10-08T21:01:07Z WRN upload failed",
		"    wrapped detail",
		"2025-10-08T21:01:08Z DBG image load failed",
		"    also dropped",
		"2025-10-08T21:01:09Z ERR ui exited with error",
	}

	got := Filter(lines, zerolog.WarnLevel)
	want := []string{lines[2], lines[3], lines[6]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter() = %v, want %v", got, want)
	}

	if got := Filter(lines, zerolog.TraceLevel); len(got) != len(lines) {
		t.Errorf("Filter(trace) kept %d lines, want %d", len(got), len(lines))
	}
}
