// Package oauthcred implements device-code and authorization-code+PKCE
// OAuth flows, disk persistence, background refresh-with-retry, and
// vendor-specific nuances across the supported OAuth providers.
package oauthcred

import "time"

// VendorID names a supported OAuth vendor.
type VendorID string

const (
	VendorGoogle  VendorID = "google"
	VendorIFlow   VendorID = "iflow"
	VendorQwen    VendorID = "qwen"
	VendorGLM     VendorID = "glm"
	VendorGeneric VendorID = "generic"
)

// Credential is an OAuth credential for one (provider, alias) identity.
type Credential struct {
	ProviderID   string
	Alias        string
	Vendor       VendorID
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	LastRefresh  time.Time

	// Derived/optional fields (vendor post-activation, ).
	APIKey      string
	ResourceURL string
	Email       string
}

// IsDead reports the invariant of : expired with no refresh token
// means interactive re-auth is required.
func (c *Credential) IsDead(now time.Time) bool {
	return c.ExpiresAt.Before(now) && c.RefreshToken == ""
}

// Key is the (providerId, alias) identity used for the on-disk path and
// the in-memory credential-scoped lock table.
func (c *Credential) Key() string {
	if c.Alias == "" {
		return c.ProviderID
	}
	return c.ProviderID + "." + c.Alias
}

// persistedCredential mirrors the on-disk JSON layout of 
type persistedCredential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	Expired      string `json:"expired,omitempty"`
	APIKey       string `json:"apiKey,omitempty"`
	APIKeySnake  string `json:"api_key,omitempty"`
	Email        string `json:"email,omitempty"`
	ResourceURL  string `json:"resource_url,omitempty"`
	LastRefresh  string `json:"last_refresh,omitempty"`
}

func (c *Credential) toPersisted() persistedCredential {
	apiKey := c.APIKey
	return persistedCredential{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		ExpiresAt:    c.ExpiresAt.UnixMilli(),
		Expired:      c.ExpiresAt.UTC().Format(time.RFC3339),
		APIKey:       apiKey,
		APIKeySnake:  apiKey,
		Email:        c.Email,
		ResourceURL:  c.ResourceURL,
		LastRefresh:  c.LastRefresh.UTC().Format(time.RFC3339),
	}
}

func fromPersisted(providerID, alias string, p persistedCredential) *Credential {
	c := &Credential{
		ProviderID:   providerID,
		Alias:        alias,
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		APIKey:       firstNonEmpty(p.APIKey, p.APIKeySnake),
		Email:        p.Email,
		ResourceURL:  p.ResourceURL,
	}
	switch {
	case p.ExpiresAt > 0:
		c.ExpiresAt = time.UnixMilli(p.ExpiresAt)
	case p.Expired != "":
		if t, err := time.Parse(time.RFC3339, p.Expired); err == nil {
			c.ExpiresAt = t
		}
	case p.ExpiresIn > 0:
		c.ExpiresAt = time.Now().Add(time.Duration(p.ExpiresIn) * time.Second)
	}
	if p.LastRefresh != "" {
		if t, err := time.Parse(time.RFC3339, p.LastRefresh); err == nil {
			c.LastRefresh = t
		}
	}
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
