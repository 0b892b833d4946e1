package validate

import "testing"

func TestRequired(t *testing.T) {
	if Required("  ") {
		t.Fatal("whitespace should not satisfy Required")
	}
	if !Required("x") {
		t.Fatal("non-empty value should satisfy Required")
	}
}

func TestEmail(t *testing.T) {
	cases := map[string]bool{
		"a@b.com":    true,
		"a@b":        true,
		"@b.com":     false,
		"a@":         false,
		"no-at-sign": false,
		"":           false,
	}
	for value, want := range cases {
		if got := Email(value); got != want {
			t.Fatalf("Email(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestMaxLen(t *testing.T) {
	if !MaxLen("abc", 3) {
		t.Fatal("length equal to limit should pass")
	}
	if MaxLen("abcd", 3) {
		t.Fatal("length above limit should fail")
	}
}
