package oauthcred

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// AuthCodeSession holds the state for one in-flight authorization-code
// exchange: the PKCE pair, the expected state value, and the callback
// listener when one had to be started.
type AuthCodeSession struct {
	Vendor   VendorID
	State    string
	PKCE     PKCEPair
	Verifier string

	listener net.Listener
	server   *http.Server
	resultCh chan callbackResult
}

type callbackResult struct {
	code  string
	state string
	err   error
}

// oauth2ConfigFor builds a golang.org/x/oauth2 config for vendors whose
// authorization/token exchange follows the plain RFC 6749 shape (Google's
// installed-app flow is the canonical case this was generalized from).
func oauth2ConfigFor(profile VendorProfile, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     profile.ClientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       strings.Fields(profile.Scope),
		Endpoint:     oauth2.Endpoint{AuthURL: profile.AuthURL, TokenURL: profile.TokenURL},
	}
}

// BuildAuthURL composes the authorization URL for a vendor, selecting
// among the standard, iFlow-web, and legacy URL-building styles.
func (m *Manager) BuildAuthURL(vendor VendorID, redirectURI string) (*AuthCodeSession, string, error) {
	profile, ok := Profiles[vendor]
	if !ok {
		return nil, "", fmt.Errorf("oauthcred: unknown vendor %s", vendor)
	}

	sess := &AuthCodeSession{Vendor: vendor, State: randomState()}
	var challenge string
	if profile.UsesPKCE {
		pkce, err := NewPKCEPair()
		if err != nil {
			return nil, "", err
		}
		sess.PKCE = pkce
		sess.Verifier = pkce.Verifier
		challenge = pkce.Challenge
	}

	if profile.Style == StyleStandard && profile.GoogleOffline {
		config := oauth2ConfigFor(profile, m.clientSecrets[vendor], redirectURI)
		opts := []oauth2.AuthCodeOption{
			oauth2.AccessTypeOffline,
			oauth2.ApprovalForce,
			oauth2.SetAuthURLParam("include_granted_scopes", "true"),
			oauth2.SetAuthURLParam("code_challenge", challenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		}
		return sess, config.AuthCodeURL(sess.State, opts...), nil
	}

	v := url.Values{}
	v.Set("client_id", profile.ClientID)
	v.Set("redirect_uri", redirectURI)
	v.Set("state", sess.State)

	switch profile.Style {
	case StyleStandard:
		v.Set("response_type", "code")
		v.Set("scope", profile.Scope)
		if profile.UsesPKCE {
			v.Set("code_challenge", challenge)
			v.Set("code_challenge_method", "S256")
		}
	case StyleIFlowWeb:
		// iFlow's web console issues an authorization code without PKCE and
		// without a scope parameter; the callback page itself renders the code.
		// It takes the raw callback URL as "redirect" plus a phone login hint.
		v.Del("redirect_uri")
		v.Set("redirect", redirectURI)
		v.Set("loginMethod", "phone")
		v.Set("type", "phone")
	case StyleLegacy:
		v.Set("response_type", "code")
		v.Set("scope", profile.Scope)
	}

	return sess, profile.AuthURL + "?" + v.Encode(), nil
}

// StartCallbackServer opens a local HTTP listener to receive the
// redirect from the authorization server. If the configured port is in
// use it retries on an ephemeral port (port 0) rather than failing the
// whole flow.
func (m *Manager) StartCallbackServer(sess *AuthCodeSession, port int, path string) (string, error) {
	listener, actualPort, err := listenWithFallback(port)
	if err != nil {
		return "", err
	}
	sess.listener = listener
	sess.resultCh = make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errCode := q.Get("error"); errCode != "" {
			sess.resultCh <- callbackResult{err: fmt.Errorf("oauthcred: authorization denied: %s", errCode)}
			fmt.Fprint(w, "Authorization failed. You may close this window.")
			return
		}
		sess.resultCh <- callbackResult{code: q.Get("code"), state: q.Get("state")}
		fmt.Fprint(w, "Authorization complete. You may close this window.")
	})

	sess.server = &http.Server{Handler: mux}
	go func() {
		_ = sess.server.Serve(listener)
	}()

	return fmt.Sprintf("http://localhost:%d%s", actualPort, path), nil
}

func listenWithFallback(port int) (net.Listener, int, error) {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err == nil {
		return l, listenerPort(l), nil
	}
	if port != 0 && isAddrInUse(err) {
		l, err = net.Listen("tcp", "127.0.0.1:0")
		if err == nil {
			log.WithField("requested_port", port).Warn("oauthcred: callback port in use, fell back to an ephemeral port")
			return l, listenerPort(l), nil
		}
	}
	return nil, 0, fmt.Errorf("oauthcred: listen for oauth callback: %w", err)
}

func isAddrInUse(err error) bool {
	var sysErr *net.OpError
	if ok := asOpError(err, &sysErr); ok {
		return strings.Contains(sysErr.Err.Error(), syscall.EADDRINUSE.Error())
	}
	return strings.Contains(err.Error(), "address already in use")
}

func asOpError(err error, target **net.OpError) bool {
	if oe, ok := err.(*net.OpError); ok {
		*target = oe
		return true
	}
	return false
}

func listenerPort(l net.Listener) int {
	if tcp, ok := l.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// WaitForCallback blocks until the callback server receives a request,
// the context is cancelled, or timeout elapses. It always tears down
// the listener before returning.
func (m *Manager) WaitForCallback(ctx context.Context, sess *AuthCodeSession, timeout time.Duration, allowLenientState bool) (code string, err error) {
	defer func() {
		if sess.server != nil {
			_ = sess.server.Close()
		}
	}()

	select {
	case res := <-sess.resultCh:
		if res.err != nil {
			return "", res.err
		}
		if res.state != sess.State && !allowLenientState {
			return "", fmt.Errorf("oauthcred: callback state mismatch")
		}
		return res.code, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("oauthcred: timed out waiting for authorization callback")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ExchangeCode finishes the authorization-code+PKCE flow: it posts the
// code to the vendor's token endpoint (adding code_verifier only for the
// standard style, and an HTTP Basic header when the vendor requires
// client-secret auth), then runs the vendor's post-token activation step
// if configured.
func (m *Manager) ExchangeCode(ctx context.Context, sess *AuthCodeSession, redirectURI, code, clientSecret string) (*Credential, error) {
	profile := Profiles[sess.Vendor]

	if profile.Style == StyleStandard && profile.GoogleOffline {
		return m.exchangeCodeOAuth2Config(ctx, &profile, sess, redirectURI, code, clientSecret)
	}

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
		"client_id":    {profile.ClientID},
	}
	if profile.UsesPKCE && profile.Style == StyleStandard {
		form.Set("code_verifier", sess.Verifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, profile.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if profile.BasicAuth && clientSecret != "" {
		req.SetBasicAuth(profile.ClientID, clientSecret)
	}

	resp, err := withActivationRetry(ctx, m.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("oauthcred: exchange code: %w", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("oauthcred: decode token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauthcred: token exchange failed: %v", body["error"])
	}

	cred, err := m.credentialFromTokenBody(sess.Vendor, "", body)
	if err != nil {
		return nil, err
	}

	if profile.ActivatePostToken && profile.UserInfoURL != "" {
		if err := m.activateCredential(ctx, &profile, cred); err != nil {
			log.WithError(err).Warn("oauthcred: post-token activation failed, continuing with bare credential")
		}
	}
	return cred, nil
}

// exchangeCodeOAuth2Config runs the code exchange through
// golang.org/x/oauth2, mirroring the teacher's HandleCallback: attach
// the credential-store HTTP client via the context, exchange with the
// stored code_verifier, and translate the *oauth2.Token into a Credential.
func (m *Manager) exchangeCodeOAuth2Config(ctx context.Context, profile *VendorProfile, sess *AuthCodeSession, redirectURI, code, clientSecret string) (*Credential, error) {
	config := oauth2ConfigFor(*profile, clientSecret, redirectURI)
	httpCtx := context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	token, err := config.Exchange(httpCtx, code, oauth2.SetAuthURLParam("code_verifier", sess.Verifier))
	if err != nil {
		return nil, fmt.Errorf("oauthcred: exchange code: %w", err)
	}

	cred := &Credential{
		ProviderID:   string(sess.Vendor),
		Vendor:       sess.Vendor,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
		LastRefresh:  time.Now(),
	}
	if profile.ActivatePostToken && profile.UserInfoURL != "" {
		if err := m.activateCredential(ctx, profile, cred); err != nil {
			log.WithError(err).Warn("oauthcred: post-token activation failed, continuing with bare credential")
		}
	}
	return cred, nil
}

// withActivationRetry sends req (the token exchange or the post-token
// user-info activation call), retrying up to three times with a
// {1s,2s,3s} linear backoff on transient statuses (408/429/5xx). Each
// attempt gets a fresh copy of the request body.
func withActivationRetry(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= 4; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}
		resp, err := client.Do(attemptReq)
		if err == nil && !isTransientStatus(resp.StatusCode) {
			return resp, nil
		}
		if err == nil {
			resp.Body.Close()
			lastErr = fmt.Errorf("transient status %d", resp.StatusCode)
		} else {
			lastErr = err
		}
		if attempt == 4 {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func isTransientStatus(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}

func (m *Manager) activateCredential(ctx context.Context, profile *VendorProfile, cred *Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profile.UserInfoURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", cred.TokenType+" "+cred.AccessToken)
	if req.Header.Get("Authorization") == " "+cred.AccessToken {
		req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	}

	resp, err := withActivationRetry(ctx, m.httpClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return err
	}
	if v, ok := info["apiKey"].(string); ok {
		cred.APIKey = v
	} else if v, ok := info["api_key"].(string); ok {
		cred.APIKey = v
	}
	if v, ok := info["email"].(string); ok {
		cred.Email = v
	}
	if v, ok := info["resource_url"].(string); ok {
		cred.ResourceURL = v
	}
	return nil
}

func randomState() string {
	return uuid.New().String()
}
