package auth

import (
	"testing"
)

func TestHashToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "short token", token: "demo-key"},
		{name: "generated token", token: "cl_q8V3nZ0yJ1pK7wR2sT4uX6aB9cD0eF1gH2iJ3kL4mN5"},
		{name: "empty token", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := HashToken(tt.token)

			// SHA256 produces 64 hex characters
			if len(hash) != 64 {
				t.Errorf("HashToken() length = %d, want 64", len(hash))
			}
			if hash != HashToken(tt.token) {
				t.Errorf("HashToken() not deterministic for %q", tt.token)
			}
			if hash == HashToken(tt.token+"x") {
				t.Errorf("HashToken() produced same hash for different tokens")
			}
			if tt.token != "" && hash == tt.token {
				t.Errorf("HashToken() returned the plaintext token")
			}
		})
	}
}
