package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `Who: "Me"?`, want: "Who Me"},
		{in: "  a/b\\c  ", want: "abc"},
		{in: "tabs\tand   spaces", want: "tabs and spaces"},
		{in: "<>|*", want: ""},
	}
	for _, tc := range tests {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("  Draft Key:1 "); got != "draft_key_1" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := SanitizeToken("!!"); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
