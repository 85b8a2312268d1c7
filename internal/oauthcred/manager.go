package oauthcred

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// RefreshCoalescer coalesces concurrent refresh calls for the same
// credential key into a single in-flight refresh, adapted from the
// singleflight-style coordinator the credential manager uses for
// non-OAuth refreshes.
type RefreshCoalescer struct {
	mu       sync.Mutex
	inflight map[string]*refreshFlight
}

type refreshFlight struct {
	wg     sync.WaitGroup
	result *Credential
	err    error
}

func newRefreshCoalescer() *RefreshCoalescer {
	return &RefreshCoalescer{inflight: make(map[string]*refreshFlight)}
}

func (c *RefreshCoalescer) do(ctx context.Context, key string, fn func(ctx context.Context) (*Credential, error)) (*Credential, error) {
	c.mu.Lock()
	if f := c.inflight[key]; f != nil {
		c.mu.Unlock()
		done := make(chan struct{})
		go func() { f.wg.Wait(); close(done) }()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-done:
			return f.result, f.err
		}
	}
	f := &refreshFlight{}
	f.wg.Add(1)
	c.inflight[key] = f
	c.mu.Unlock()

	f.result, f.err = fn(ctx)
	f.wg.Done()

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	return f.result, f.err
}

// Manager ties the credential store, vendor table, and OAuth flows
// together: it keeps credentials refreshed in the background and
// coalesces concurrent refresh requests for the same credential.
type Manager struct {
	store      *Store
	httpClient *http.Client

	clientSecrets map[VendorID]string
	refreshCoal   *RefreshCoalescer

	mu          sync.RWMutex
	credentials map[string]*Credential

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager creates a Manager backed by store, using the given
// per-vendor client secrets (vendors with no secret use public-client
// PKCE exchange, e.g. Qwen/Google-installed-app flows).
func NewManager(store *Store, clientSecrets map[VendorID]string) *Manager {
	return &Manager{
		store:         store,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		clientSecrets: clientSecrets,
		refreshCoal:   newRefreshCoalescer(),
		credentials:   make(map[string]*Credential),
		stopCh:        make(chan struct{}),
	}
}

// Register adds a credential to the in-memory set the manager keeps
// fresh, replacing any credential already registered under its Key; it
// does not read the store.
func (m *Manager) Register(cred *Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[cred.Key()] = cred
}

// Load reads a credential from the store and registers it.
func (m *Manager) Load(providerID, alias string) (*Credential, error) {
	cred, err := m.store.Load(providerID, alias)
	if err != nil {
		return nil, err
	}
	m.Register(cred)
	return cred, nil
}

// Get returns the currently registered credential for a key, refreshing
// it first if it is within the caller-specified skew of expiring.
func (m *Manager) Get(ctx context.Context, key string, skew time.Duration) (*Credential, error) {
	m.mu.RLock()
	cred := m.credentials[key]
	m.mu.RUnlock()
	if cred == nil {
		return nil, fmt.Errorf("oauthcred: no credential registered for %s", key)
	}
	if time.Until(cred.ExpiresAt) > skew {
		return cred, nil
	}
	return m.refreshAndStore(ctx, cred)
}

func (m *Manager) refreshAndStore(ctx context.Context, cred *Credential) (*Credential, error) {
	return m.refreshCoal.do(ctx, cred.Key(), func(ctx context.Context) (*Credential, error) {
		if cred.IsDead(time.Now()) {
			return nil, fmt.Errorf("oauthcred: credential %s is dead, interactive re-auth required", cred.Key())
		}
		secret := m.clientSecrets[cred.Vendor]
		refreshed, err := m.RefreshWithRetry(ctx, cred, secret, time.Second)
		if err != nil {
			if rerr, ok := err.(*RefreshError); ok && rerr.Permanent {
				m.markDead(cred)
			}
			return nil, err
		}
		if err := m.store.Save(refreshed); err != nil {
			log.WithError(err).WithField("key", refreshed.Key()).Warn("oauthcred: failed to persist refreshed credential")
		}
		m.Register(refreshed)
		return refreshed, nil
	})
}

func (m *Manager) markDead(cred *Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.credentials[cred.Key()]; ok {
		existing.RefreshToken = ""
		existing.ExpiresAt = time.Now()
	}
}

// RunBackgroundRefresh periodically refreshes every registered
// credential that is within skew of expiring, until ctx is done or
// Stop is called.
func (m *Manager) RunBackgroundRefresh(ctx context.Context, interval, skew time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.refreshDueCredentials(ctx, skew)
		}
	}
}

func (m *Manager) refreshDueCredentials(ctx context.Context, skew time.Duration) {
	m.mu.RLock()
	due := make([]*Credential, 0, len(m.credentials))
	for _, cred := range m.credentials {
		if time.Until(cred.ExpiresAt) <= skew && cred.RefreshToken != "" {
			due = append(due, cred)
		}
	}
	m.mu.RUnlock()

	for _, cred := range due {
		if _, err := m.refreshAndStore(ctx, cred); err != nil {
			log.WithError(err).WithField("key", cred.Key()).Warn("oauthcred: background refresh failed")
		}
	}
}

// Stop halts RunBackgroundRefresh.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
