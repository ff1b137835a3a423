package normalization

import "testing"

type mode string

const (
	modeAlpha mode = "alpha"
	modeBeta  mode = "beta"
)

func TestNormalizer(t *testing.T) {
	n := NewNormalizer("mode", map[string]mode{"alpha": modeAlpha, "Beta": modeBeta}, modeAlpha)

	tests := []struct {
		in   string
		want mode
	}{
		{"alpha", modeAlpha},
		{"  BETA ", modeBeta},
		{"gamma", modeAlpha},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := n.Parse("gamma"); err == nil {
		t.Error("Parse(gamma) should fail")
	}
	if v, err := n.Parse(""); err != nil || v != modeAlpha {
		t.Errorf("Parse(\"\") = %v, %v; want default", v, err)
	}
	if !n.IsValid("Alpha") || n.IsValid("x") {
		t.Error("IsValid mismatch")
	}
	keys := n.ValidKeys()
	if len(keys) != 2 || keys[0] != "alpha" || keys[1] != "beta" {
		t.Errorf("ValidKeys() = %v", keys)
	}
}
