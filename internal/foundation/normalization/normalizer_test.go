package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMode string

const (
	modeAlpha testMode = "alpha"
	modeBeta  testMode = "beta_mode"
)

func newTestNormalizer() *Normalizer[testMode] {
	return NewNormalizer(map[string]testMode{
		"alpha":     modeAlpha,
		"beta_mode": modeBeta,
	}, modeAlpha)
}

func TestNormalizer_Normalize(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name     string
		input    string
		expected testMode
	}{
		{"exact match", "alpha", modeAlpha},
		{"case insensitive", "ALPHA", modeAlpha},
		{"with spaces", "  beta_mode  ", modeBeta},
		{"hyphenated", "Beta-Mode", modeBeta},
		{"invalid input", "invalid", modeAlpha},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestNormalizer_WithError(t *testing.T) {
	n := newTestNormalizer()

	got, err := n.NormalizeWithError("BETA-MODE")
	require.NoError(t, err)
	assert.Equal(t, modeBeta, got)

	got, err = n.NormalizeWithError("   ")
	require.NoError(t, err)
	assert.Equal(t, modeAlpha, got)

	_, err = n.NormalizeWithError("gamma")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alpha")
}

func TestValidKeysSorted(t *testing.T) {
	assert.Equal(t, []string{"alpha", "beta_mode"}, newTestNormalizer().ValidKeys())
}
