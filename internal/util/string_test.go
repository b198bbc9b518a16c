package util

import "testing"

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"under limit", "abc", 10, "abc"},
		{"exact limit", "abc", 3, "abc"},
		{"over limit", "abcdef", 3, "abc"},
		{"multibyte runes", "一二三四五", 3, "一二三"},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateRunes(tt.input, tt.maxRunes); got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"WWW.Xiaohongshu.com/user/abc", "wwwxiaohongshucomuserabc"},
		{"a-b_c:d", "abcd"},
		{"  Spaced Out  ", "spacedout"},
		{"花叔（别名）", "花叔（别名）"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeKey(tt.input); got != tt.want {
			t.Errorf("SanitizeKey(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  MiXeD Case \n"); got != "mixed case" {
		t.Errorf("got %q", got)
	}
}
