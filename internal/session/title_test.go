package session

import (
	"strings"
	"testing"
	"time"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name  string
		first string
		want  string
	}{
		{"short message kept", "Hello there", "Hello there"},
		{"exactly twenty", "abcdefghijklmnopqrst", "abcdefghijklmnopqrst"},
		{"long message truncated", "What is the capital city of France?", "What is the capital..."},
		{"cut after twenty graphemes", "Tell me a story abou t dragons", "Tell me a story abou..."},
		{"surrounding whitespace dropped", "  hi  ", "hi"},
		{"grapheme clusters are not split", strings.Repeat("👍🏽", 21), strings.Repeat("👍🏽", 20) + "..."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.first); got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.first, got, tt.want)
			}
		})
	}
}

func TestFormatTimeDifference(t *testing.T) {
	base := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		offset time.Duration
		want   string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{59 * time.Second, "59 seconds"},
		{time.Minute, "1 minute"},
		{45 * time.Minute, "45 minutes"},
		{2 * time.Hour, "2 hours"},
		{24 * time.Hour, "1 day"},
		{10 * 24 * time.Hour, "10 days"},
		{60 * 24 * time.Hour, "2 months"},
		{400 * 24 * time.Hour, "1 year"},
	}

	for _, tt := range tests {
		if got := FormatTimeDifference(base, base.Add(-tt.offset)); got != tt.want {
			t.Errorf("FormatTimeDifference(-%v) = %q, want %q", tt.offset, got, tt.want)
		}
		if got := FormatTimeDifference(base.Add(-tt.offset), base); got != tt.want {
			t.Errorf("FormatTimeDifference is not symmetric for %v: %q", tt.offset, got)
		}
	}
}
