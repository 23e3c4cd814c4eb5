package proxy

import "testing"

func TestFixQueryString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"api_verno=1&api_token=abc", "api_verno=1&api_token=abc"},
		{"name=%E7%AC%AC", "name=%E7%AC%AC"},
		{"name=第", "name=%E7%AC%AC"},
		{"a=b c", "a=b%20c"},
		{"a=\x7f", "a=%7F"},
		{"q=1+2&r=x/y?z", "q=1+2&r=x/y?z"},
	}
	for _, tt := range tests {
		if got := FixQueryString(tt.in); got != tt.want {
			t.Errorf("FixQueryString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInScopeContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"text/plain", true},
		{"text/plain; charset=UTF-8", true},
		{"application/json", true},
		{"application/vnd.api+json", true},
		{"text/javascript", true},
		{"image/png", false},
		{"application/x-shockwave-flash", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := inScopeContentType(tt.ct); got != tt.want {
			t.Errorf("inScopeContentType(%q) = %v, want %v", tt.ct, got, tt.want)
		}
	}
}

func TestHostOnly(t *testing.T) {
	tests := map[string]string{
		"203.104.209.7:80": "203.104.209.7",
		"203.104.209.7":    "203.104.209.7",
		"[::1]:8080":       "::1",
		"[::1]":            "::1",
	}
	for in, want := range tests {
		if got := hostOnly(in); got != want {
			t.Errorf("hostOnly(%q) = %q, want %q", in, got, want)
		}
	}
}
