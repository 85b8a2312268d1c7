package oauthcred

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("does-not-matter-unverified"))
	require.NoError(t, err)

	got, ok := expiryFromJWT(signed)
	require.True(t, ok)
	assert.WithinDuration(t, exp, got, time.Second)
}

func TestExpiryFromJWTRejectsGarbage(t *testing.T) {
	_, ok := expiryFromJWT("not-a-jwt")
	assert.False(t, ok)
}
