package oauthcred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// permanentRefreshErrors are OAuth error codes that mean re-authenticating
// interactively is required; retrying them wastes the remaining attempt
// budget and only delays surfacing the dead credential.
var permanentRefreshErrors = map[string]bool{
	"invalid_grant":       true,
	"unauthorized_client": true,
	"invalid_client":      true,
}

// RefreshError wraps a refresh failure with whether it is permanent
// (caller should mark the credential dead) or transient (caller may try
// the stored credential again later).
type RefreshError struct {
	Permanent bool
	Cause     error
}

func (e *RefreshError) Error() string { return e.Cause.Error() }
func (e *RefreshError) Unwrap() error { return e.Cause }

// RefreshWithRetry refreshes a credential's access token, honoring the
// vendor's RefreshMaxAttempts with a linear attempt*backoffMs backoff
// between tries. It aborts immediately (no further attempts) on a
// permanent OAuth error code.
func (m *Manager) RefreshWithRetry(ctx context.Context, cred *Credential, clientSecret string, backoffMs time.Duration) (*Credential, error) {
	profile, ok := Profiles[cred.Vendor]
	if !ok {
		return nil, fmt.Errorf("oauthcred: unknown vendor %s", cred.Vendor)
	}
	if cred.RefreshToken == "" {
		return nil, &RefreshError{Permanent: true, Cause: fmt.Errorf("oauthcred: no refresh token for %s", cred.Key())}
	}

	maxAttempts := profile.RefreshMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		refreshed, permanent, err := m.doRefresh(ctx, &profile, cred, clientSecret)
		if err == nil {
			return refreshed, nil
		}
		if permanent {
			return nil, &RefreshError{Permanent: true, Cause: err}
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * backoffMs):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, &RefreshError{Permanent: false, Cause: lastErr}
}

func (m *Manager) doRefresh(ctx context.Context, profile *VendorProfile, cred *Credential, clientSecret string) (refreshed *Credential, permanent bool, err error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
		"client_id":     {profile.ClientID},
	}
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, profile.TokenURL, strings.NewReader(form.Encode()))
	if reqErr != nil {
		return nil, false, reqErr
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if profile.BasicAuth && clientSecret != "" {
		req.SetBasicAuth(profile.ClientID, clientSecret)
	}

	resp, doErr := m.httpClient.Do(req)
	if doErr != nil {
		return nil, false, fmt.Errorf("oauthcred: refresh request: %w", doErr)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	if resp.StatusCode != http.StatusOK {
		code, _ := body["error"].(string)
		if permanentRefreshErrors[code] {
			return nil, true, fmt.Errorf("oauthcred: refresh rejected (%s): %s", code, string(raw))
		}
		return nil, false, fmt.Errorf("oauthcred: refresh failed with status %d: %s", resp.StatusCode, string(raw))
	}

	next := &Credential{
		ProviderID:  cred.ProviderID,
		Alias:       cred.Alias,
		Vendor:      cred.Vendor,
		APIKey:      cred.APIKey,
		Email:       cred.Email,
		ResourceURL: cred.ResourceURL,
	}
	next.AccessToken, _ = body["access_token"].(string)
	if next.AccessToken == "" {
		return nil, false, fmt.Errorf("oauthcred: refresh response missing access_token")
	}
	next.TokenType, _ = body["token_type"].(string)
	if next.TokenType == "" {
		next.TokenType = cred.TokenType
	}
	// Preserve the original refresh token when the provider omits rotation.
	next.RefreshToken = cred.RefreshToken
	if rt, _ := body["refresh_token"].(string); rt != "" {
		next.RefreshToken = rt
	}
	next.ExpiresAt = expiryFromBody(body, cred)
	if _, hasExpiresIn := body["expires_in"]; !hasExpiresIn {
		if exp, ok := expiryFromJWT(next.AccessToken); ok {
			next.ExpiresAt = exp
		}
	}
	next.LastRefresh = time.Now()
	return next, false, nil
}
