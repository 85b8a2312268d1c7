package oauthcred

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	cred := &Credential{
		ProviderID:   "qwen",
		Alias:        "work",
		Vendor:       VendorQwen,
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Millisecond),
		APIKey:       "sk-abc",
		Email:        "user@example.com",
	}

	require.NoError(t, store.Save(cred))

	loaded, err := store.Load("qwen", "work")
	require.NoError(t, err)
	assert.Equal(t, cred.AccessToken, loaded.AccessToken)
	assert.Equal(t, cred.RefreshToken, loaded.RefreshToken)
	assert.Equal(t, cred.APIKey, loaded.APIKey)
	assert.Equal(t, cred.Email, loaded.Email)
	assert.WithinDuration(t, cred.ExpiresAt, loaded.ExpiresAt, time.Second)
}

func TestStoreLoadMissingReturnsError(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load("google", "")
	assert.Error(t, err)
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	store := NewStore(t.TempDir())
	cred := &Credential{ProviderID: "glm", AccessToken: "at", ExpiresAt: time.Now()}
	require.NoError(t, store.Save(cred))
	require.NoError(t, store.Delete("glm", ""))
	assert.NoError(t, store.Delete("glm", ""))
}

func TestCredentialIsDead(t *testing.T) {
	now := time.Now()
	dead := &Credential{ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, dead.IsDead(now))

	alive := &Credential{ExpiresAt: now.Add(-time.Minute), RefreshToken: "rt"}
	assert.False(t, alive.IsDead(now))
}
