package ui

import (
	"testing"

	"github.com/five82/xrayview/internal/imageguard"
	"github.com/five82/xrayview/internal/prefs"
)

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 {
		t.Fatalf("ThemeNames() returned %d names, want 3", len(names))
	}
	if names[0] != "Radiograph" {
		t.Fatalf("ThemeNames()[0] = %q, want Radiograph", names[0])
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Radiograph"); got != "Lightbox" {
		t.Fatalf("NextTheme(Radiograph) = %q, want Lightbox", got)
	}
	if got := NextTheme("Slate"); got != "Radiograph" {
		t.Fatalf("NextTheme(Slate) = %q, want Radiograph", got)
	}
	if got := NextTheme("Unknown"); got != "Radiograph" {
		t.Fatalf("NextTheme(Unknown) = %q, want Radiograph", got)
	}
}

func TestGetTheme_FallsBack(t *testing.T) {
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate).Name = %q", got)
	}
	if got := GetTheme("Unknown").Name; got != "Radiograph" {
		t.Fatalf("GetTheme(Unknown).Name = %q, want Radiograph (fallback)", got)
	}
}

func TestDefaultPrefsThemeExists(t *testing.T) {
	p := prefs.Load(t.TempDir() + "/missing.toml")
	if _, ok := themes[p.Theme]; !ok {
		t.Fatalf("default prefs theme %q is not a known theme", p.Theme)
	}
}

func TestImageColor(t *testing.T) {
	th := GetTheme("Slate")
	cases := map[imageguard.State]string{
		imageguard.Loaded:  th.Success,
		imageguard.Loading: th.Info,
		imageguard.Failed:  th.Danger,
		imageguard.Missing: th.Faint,
	}
	for state, want := range cases {
		if got := th.ImageColor(state); got != want {
			t.Fatalf("ImageColor(%v) = %q, want %q", state, got, want)
		}
	}
}
