package ui

import "testing"

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"Chest", 10, "Chest"},
		{"Pneumothorax", 8, "Pneum..."},
		{"abc", 2, "ab"},
		{"anything", 0, ""},
		{"Ödem der Lunge", 6, "Öde..."},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestTruncateMiddle_KeepsFileName(t *testing.T) {
	got := truncateMiddle("/home/user/scans/2024/chest-pa.png", 20)
	if len([]rune(got)) != 20 {
		t.Fatalf("truncateMiddle length = %d, want 20 (%q)", len([]rune(got)), got)
	}
	if got[len(got)-6:] != "pa.png" {
		t.Fatalf("truncateMiddle = %q, want file name suffix kept", got)
	}
}

func TestTitleCase(t *testing.T) {
	if got := titleCase("body_part"); got != "Body Part" {
		t.Fatalf("titleCase(body_part) = %q, want Body Part", got)
	}
	if got := titleCase("MISSING"); got != "Missing" {
		t.Fatalf("titleCase(MISSING) = %q, want Missing", got)
	}
}

func TestDisplayValue(t *testing.T) {
	if got := displayValue("  "); got != "(blank)" {
		t.Fatalf("displayValue blank = %q", got)
	}
	if got := displayValue("Knee"); got != "Knee" {
		t.Fatalf("displayValue = %q", got)
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Fatalf("padRight = %q", got)
	}
	if got := padRight("abcdef", 4); got != "a..." {
		t.Fatalf("padRight truncating = %q", got)
	}
}
