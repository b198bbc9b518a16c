package domain

import "testing"

func TestIsProfileURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://www.xiaohongshu.com/user/profile/abc123", true},
		{"www.xiaohongshu.com/user/profile/abc123?xsec_token=x", true},
		{"https://example.com/user/profile/abc123", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := IsProfileURL(tc.url); got != tc.want {
			t.Errorf("IsProfileURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestDeriveBloggerIDFromUserPath(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "profile path",
			url:  "https://www.xiaohongshu.com/user/profile/abc123",
			want: "abc123",
		},
		{
			name: "query string stripped",
			url:  "https://www.xiaohongshu.com/user/profile/abc123?xsec_token=zzz",
			want: "abc123",
		},
		{
			name: "direct user segment",
			url:  "https://www.xiaohongshu.com/user/xyz789",
			want: "xyz789",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveBloggerID(tc.url, "花叔"); got != tc.want {
				t.Errorf("DeriveBloggerID(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestDeriveBloggerIDFallback(t *testing.T) {
	got := DeriveBloggerID("https://www.xiaohongshu.com/discovery/item/1", "花叔")
	if got == "" {
		t.Fatal("expected non-empty derived id")
	}
	if len([]rune(got)) > BloggerIDMaxLength {
		t.Errorf("derived id %q exceeds %d runes", got, BloggerIDMaxLength)
	}

	// Same URL and nickname must derive the same key.
	again := DeriveBloggerID("https://www.xiaohongshu.com/discovery/item/1", "花叔")
	if got != again {
		t.Errorf("derivation not stable: %q vs %q", got, again)
	}
}
