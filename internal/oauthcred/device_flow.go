package oauthcred

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DeviceAuthResponse is the RFC-8628-shaped response from the device
// endpoint.
type DeviceAuthResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri_complete"`
	ExpiresIn       int    `json:"expires_in"`
	IntervalSec     int    `json:"interval"`
}

// DeviceFlowError is returned for the fatal terminal conditions
// ("expired_token"/"access_denied").
type DeviceFlowError struct {
	Code string
}

func (e *DeviceFlowError) Error() string { return "oauthcred: device flow failed: " + e.Code }

const maxDevicePollAttempts = 60

// StartDeviceFlow initiates the device-code loop's first step: POST to
// the device endpoint with PKCE parameters.
func (m *Manager) StartDeviceFlow(ctx context.Context, vendor VendorID) (DeviceAuthResponse, PKCEPair, error) {
	profile, ok := Profiles[vendor]
	if !ok || !profile.UsesDevice {
		return DeviceAuthResponse{}, PKCEPair{}, fmt.Errorf("oauthcred: vendor %s does not support device flow", vendor)
	}
	pkce, err := NewPKCEPair()
	if err != nil {
		return DeviceAuthResponse{}, PKCEPair{}, err
	}

	form := url.Values{
		"client_id":             {profile.ClientID},
		"scope":                 {profile.Scope},
		"code_challenge":        {pkce.Challenge},
		"code_challenge_method": {"S256"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, profile.DeviceAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return DeviceAuthResponse{}, PKCEPair{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return DeviceAuthResponse{}, PKCEPair{}, fmt.Errorf("oauthcred: device auth request: %w", err)
	}
	defer resp.Body.Close()

	var out DeviceAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return DeviceAuthResponse{}, PKCEPair{}, fmt.Errorf("oauthcred: decode device auth response: %w", err)
	}
	log.WithField("verification_uri", out.VerificationURI).WithField("user_code", out.UserCode).
		Info("oauthcred: device flow started; open the verification URL to continue")
	return out, pkce, nil
}

// PollDeviceToken implements the device-token polling loop: poll every
// 5s (x1.5 up to 10s on slow_down) for up to 60 attempts.
func (m *Manager) PollDeviceToken(ctx context.Context, vendor VendorID, dev DeviceAuthResponse, pkce PKCEPair) (*Credential, error) {
	profile := Profiles[vendor]
	interval := 5 * time.Second
	if dev.IntervalSec > 0 {
		interval = time.Duration(dev.IntervalSec) * time.Second
	}
	const maxInterval = 10 * time.Second

	for attempt := 0; attempt < maxDevicePollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		form := url.Values{
			"client_id":     {profile.ClientID},
			"device_code":   {dev.DeviceCode},
			"code_verifier": {pkce.Verifier},
			"grant_type":    {"urn:ietf:params:oauth:grant-type:device_code"},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, profile.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := m.httpClient.Do(req)
		if err != nil {
			if attempt == maxDevicePollAttempts-1 {
				return nil, fmt.Errorf("oauthcred: device poll network error on final attempt: %w", err)
			}
			continue
		}

		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return m.credentialFromTokenBody(vendor, "", body)
		}

		errCode, _ := body["error"].(string)
		switch errCode {
		case "expired_token", "access_denied":
			return nil, &DeviceFlowError{Code: errCode}
		case "slow_down":
			interval = time.Duration(float64(interval) * 1.5)
			if interval > maxInterval {
				interval = maxInterval
			}
		case "authorization_pending":
			// keep polling at the current interval
		default:
			if errCode != "" {
				return nil, &DeviceFlowError{Code: errCode}
			}
		}
	}
	return nil, fmt.Errorf("oauthcred: device poll exceeded %d attempts", maxDevicePollAttempts)
}

func (m *Manager) credentialFromTokenBody(vendor VendorID, alias string, body map[string]any) (*Credential, error) {
	c := &Credential{
		ProviderID: string(vendor),
		Alias:      alias,
		Vendor:     vendor,
	}
	c.AccessToken, _ = body["access_token"].(string)
	if c.AccessToken == "" {
		return nil, fmt.Errorf("oauthcred: token response missing access_token")
	}
	c.RefreshToken, _ = body["refresh_token"].(string)
	c.TokenType, _ = body["token_type"].(string)
	c.ExpiresAt = expiryFromBody(body, nil)
	if _, hasExpiresIn := body["expires_in"]; !hasExpiresIn {
		if exp, ok := expiryFromJWT(c.AccessToken); ok {
			c.ExpiresAt = exp
		}
	}
	c.LastRefresh = time.Now()
	return c, nil
}

// expiryFromBody parses expires_in (number or numeric string); falls
// back to the previous credential's remaining lifetime (if > 60s) or
// 3600s.
func expiryFromBody(body map[string]any, previous *Credential) time.Time {
	now := time.Now()
	var seconds int64 = 3600
	switch v := body["expires_in"].(type) {
	case float64:
		seconds = int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			seconds = n
		} else if previous != nil {
			if remain := time.Until(previous.ExpiresAt); remain > 60*time.Second {
				return now.Add(remain)
			}
		}
	case nil:
		if previous != nil {
			if remain := time.Until(previous.ExpiresAt); remain > 60*time.Second {
				return now.Add(remain)
			}
		}
	}
	return now.Add(time.Duration(seconds) * time.Second)
}
