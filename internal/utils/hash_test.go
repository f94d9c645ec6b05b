package utils

import (
	"regexp"
	"testing"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestHashString_KnownDigests(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}

	for _, tt := range tests {
		if got := HashString(tt.input); got != tt.want {
			t.Errorf("HashString(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestHashString_Tokens(t *testing.T) {
	tokens := []string{
		"cl_Q2hhcmdlZCB0d2ljZSBmb3IgdGhlIHNhbWUgb3JkZXI",
		"cl_Q2hhcmdlZCB0d2ljZSBmb3IgdGhlIHNhbWUgb3JkZXI ",
		"Bearer cl_Q2hhcmdlZCB0d2ljZSBmb3IgdGhlIHNhbWUgb3JkZXI",
		"CL_Q2hhcmdlZCB0d2ljZSBmb3IgdGhlIHNhbWUgb3JkZXI",
		"dev-token-acme",
	}

	seen := make(map[string]string, len(tokens))
	for _, token := range tokens {
		hash := HashString(token)
		if !hexDigest.MatchString(hash) {
			t.Errorf("HashString(%q) = %q, want 64 lowercase hex characters", token, hash)
		}
		if hash != HashString(token) {
			t.Errorf("HashString(%q) is not stable", token)
		}
		if prev, ok := seen[hash]; ok {
			t.Errorf("HashString(%q) equals HashString(%q)", token, prev)
		}
		seen[hash] = token
	}
}
