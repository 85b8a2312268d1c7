package oauthcred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPKCEPairChallengeMatchesVerifier(t *testing.T) {
	pair, err := NewPKCEPair()
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Verifier)
	assert.Equal(t, ChallengeFromVerifier(pair.Verifier), pair.Challenge)
}

func TestNewPKCEPairIsRandom(t *testing.T) {
	a, err := NewPKCEPair()
	require.NoError(t, err)
	b, err := NewPKCEPair()
	require.NoError(t, err)
	assert.NotEqual(t, a.Verifier, b.Verifier)
}
