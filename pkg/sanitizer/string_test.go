package sanitizer

import (
	"strings"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim spaces",
			input: "  Ridge Hut  ",
			want:  "Ridge Hut",
		},
		{
			name:  "multiple spaces between words",
			input: "Ridge    Hut",
			want:  "Ridge Hut",
		},
		{
			name:  "tabs and newlines",
			input: "Ridge\t\nHut",
			want:  "Ridge Hut",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "preserve special characters",
			input: " Cabane du Mont-Fort & Co ",
			want:  "Cabane du Mont-Fort & Co",
		},
		{
			name:  "non latin characters",
			input: " Hütte  Élan ",
			want:  "Hütte Élan",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeName(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeName_ExtremelyLongInput(t *testing.T) {
	input := strings.Repeat("a   ", 5000)
	got := NormalizeName(input)
	if strings.Contains(got, "  ") {
		t.Error("expected whitespace runs to be collapsed")
	}
	if strings.HasSuffix(got, " ") {
		t.Error("expected trailing whitespace to be trimmed")
	}
}

func TestNormalizeDescription(t *testing.T) {
	got := NormalizeDescription("  Line one\nLine two  \n")
	if got != "Line one\nLine two" {
		t.Errorf("NormalizeDescription = %q", got)
	}
}

func TestNormalizeEnum(t *testing.T) {
	tests := map[string]string{
		" Exclusive ":    "exclusive",
		"INCLUSIVE_ONLY": "inclusive_only",
		"":               "",
	}
	for in, want := range tests {
		if got := NormalizeEnum(in); got != want {
			t.Errorf("NormalizeEnum(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeID(t *testing.T) {
	if got := NormalizeID("  507f1f77bcf86cd799439011 "); got != "507f1f77bcf86cd799439011" {
		t.Errorf("NormalizeID = %q", got)
	}
}
