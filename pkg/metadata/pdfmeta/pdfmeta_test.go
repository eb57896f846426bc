package pdfmeta

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
	}{
		{"D:20200204190738", time.Date(2020, 2, 4, 19, 7, 38, 0, time.UTC)},
		{"D:20200204190738Z", time.Date(2020, 2, 4, 19, 7, 38, 0, time.UTC)},
		// Wall-clock time is kept as written; the offset suffix is dropped.
		{"D:20200204190738+05'00'", time.Date(2020, 2, 4, 19, 7, 38, 0, time.UTC)},
		{"D:20200204190738-08'00'", time.Date(2020, 2, 4, 19, 7, 38, 0, time.UTC)},
		// Omitted components default to the start of their range.
		{"D:2020", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"D:202002", time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"D:20200204", time.Date(2020, 2, 4, 0, 0, 0, 0, time.UTC)},
		{"D:2020020419", time.Date(2020, 2, 4, 19, 0, 0, 0, time.UTC)},
		// Some producers skip the D: prefix entirely.
		{"20200204190738", time.Date(2020, 2, 4, 19, 7, 38, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.input)
		if err != nil {
			t.Errorf("ParseDate(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.expected) {
			t.Errorf("ParseDate(%q): expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestParseDateFallback(t *testing.T) {
	got, err := ParseDate("2020-02-04 19:07:38")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2020 || got.Month() != 2 || got.Day() != 4 {
		t.Errorf("fallback parse wrong: %v", got)
	}
}

func TestParseDateInvalid(t *testing.T) {
	if _, err := ParseDate("not a date at all"); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestInfoKeyCatalog(t *testing.T) {
	// The subfield catalog is part of the compatibility surface.
	for _, subfield := range []string{
		"author", "creator", "producer", "created", "modified",
		"subject", "title", "keywords",
	} {
		if _, ok := infoKeys[subfield]; !ok {
			t.Errorf("missing pdf subfield %q", subfield)
		}
	}
}
