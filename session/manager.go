package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/clubsync/go-club-client/apiclient"
	"github.com/clubsync/go-club-client/credentials"
	"github.com/clubsync/go-club-client/fallback"
	"github.com/clubsync/go-club-client/internal/config"
	"github.com/clubsync/go-club-client/internal/errors"
	"github.com/clubsync/go-club-client/users"
)

const routeMe = "/auth/me"

// Manager owns the Session. It restores it from the credential store on
// startup, mutates it on login/logout/refresh, and notifies subscribers on
// every change. It implements apiclient.TokenSource, so the request
// pipeline's token mutations also flow through here.
type Manager struct {
	store      credentials.Store
	client     *apiclient.Client
	responder  *fallback.Responder
	httpClient *http.Client
	log        zerolog.Logger

	mu      sync.RWMutex
	session Session
	// generation is bumped on every logout so responses that complete after
	// a sign-out are discarded instead of repopulating a cleared session.
	generation       uint64
	subscribers      map[int]func(Session)
	nextSubscriberID int
}

var _ apiclient.TokenSource = (*Manager)(nil)

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithLogger sets the logger, shared with the request pipeline.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// WithFallback attaches an availability fallback responder. It is wired into
// the request pipeline only when the configuration permits degradation.
func WithFallback(responder *fallback.Responder) ManagerOption {
	return func(m *Manager) {
		m.responder = responder
	}
}

// WithHTTPClient sets the HTTP client used by the request pipeline.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) {
		m.httpClient = c
	}
}

// NewManager creates the Manager and its request pipeline.
func NewManager(cfg config.APIConfig, store credentials.Store, options ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("[NewManager] config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[NewManager] credential store is required")
	}

	m := &Manager{
		store:       store,
		log:         zerolog.Nop(),
		session:     Session{Mode: ModeLive},
		subscribers: make(map[int]func(Session)),
	}
	for _, opt := range options {
		opt(m)
	}

	clientOptions := []apiclient.Option{apiclient.WithLogger(m.log)}
	if m.httpClient != nil {
		clientOptions = append(clientOptions, apiclient.WithHTTPClient(m.httpClient))
	}
	if m.responder != nil && cfg.AllowFallback() {
		clientOptions = append(clientOptions, apiclient.WithFallback(m.responder))
		m.responder.OnModeChange(m.applyMode)
	}

	client, err := apiclient.New(cfg.GetAPIBaseURL(), cfg.GetHTTPTimeout(), m, clientOptions...)
	if err != nil {
		return nil, err
	}
	m.client = client
	return m, nil
}

// Client returns the request pipeline for data calls.
func (m *Manager) Client() *apiclient.Client {
	return m.client
}

// Current returns a snapshot of the session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Subscribe registers fn to be called with a snapshot after every session
// mutation. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(Session)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSubscriberID
	m.nextSubscriberID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Login authenticates with email and password, persists the returned token
// pair, fetches the user profile, and publishes the populated session.
// Returns ErrInvalidCredentials on a rejected login.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	gen := m.currentGeneration()

	tokens, err := m.client.Login(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	pair := credentials.TokenPair{Access: tokens.AccessToken, Refresh: tokens.RefreshToken}
	if !pair.Complete() {
		return Session{}, errors.Wrapf(errors.ErrInvalidToken, "[Login] service returned a partial token pair")
	}
	if err := m.StorePair(pair); err != nil {
		return Session{}, err
	}

	user, err := m.fetchProfile(ctx)
	if err != nil {
		return Session{}, err
	}
	return m.completeSignIn(gen, user)
}

// RestoreFromStorage restores the session from the credential store. The
// profile fetch runs in the background so startup is never blocked; callers
// observe the outcome through Subscribe.
func (m *Manager) RestoreFromStorage(ctx context.Context) {
	pair, err := m.store.Load()
	if err != nil {
		m.log.Err(err).Msg("Failed to load stored credentials")
		return
	}
	if pair == nil {
		return
	}

	m.mu.Lock()
	m.session.AccessToken = pair.Access
	m.session.RefreshToken = pair.Refresh
	gen := m.generation
	snapshot := m.session
	m.mu.Unlock()
	m.publish(snapshot)

	go func() {
		user, err := m.fetchProfile(ctx)
		if err != nil {
			m.log.Warn().Err(err).Msg("Session restore failed, clearing stored credentials")
			m.discardRestore(gen)
			return
		}
		if _, err := m.completeSignIn(gen, user); err != nil {
			m.log.Debug().Err(err).Msg("Session restore discarded")
		}
	}()
}

// Logout clears the credential store and resets the session. Safe to call
// repeatedly; subscribers are notified only when state actually changes.
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		m.log.Err(err).Msg("Failed to clear credential store")
	}

	m.mu.Lock()
	m.generation++
	if m.session.Empty() {
		m.mu.Unlock()
		return
	}
	m.session = Session{Mode: m.session.Mode}
	snapshot := m.session
	m.mu.Unlock()
	m.publish(snapshot)
}

// AccessToken returns the current bearer token, or "" when signed out.
// Satisfies the realtime channel's token source.
func (m *Manager) AccessToken() string {
	if pair := m.Pair(); pair != nil {
		return pair.Access
	}
	return ""
}

// AccessTokenExpiry reports the exp claim of the current access token. The
// token is decoded without signature verification (the client holds no
// keys); opaque or malformed tokens simply report no expiry.
func (m *Manager) AccessTokenExpiry() (time.Time, bool) {
	m.mu.RLock()
	token := m.session.AccessToken
	m.mu.RUnlock()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Pair implements apiclient.TokenSource. The in-memory session wins; before
// a restore has populated it, the durable store is consulted directly.
func (m *Manager) Pair() *credentials.TokenPair {
	m.mu.RLock()
	pair := credentials.TokenPair{Access: m.session.AccessToken, Refresh: m.session.RefreshToken}
	m.mu.RUnlock()
	if pair.Complete() {
		return &pair
	}

	stored, err := m.store.Load()
	if err != nil {
		m.log.Err(err).Msg("Failed to load stored credentials")
		return nil
	}
	return stored
}

// StorePair implements apiclient.TokenSource: the previous pair is replaced
// atomically in both the store and the session.
func (m *Manager) StorePair(pair credentials.TokenPair) error {
	if err := m.store.Save(pair); err != nil {
		return err
	}
	m.mu.Lock()
	m.session.AccessToken = pair.Access
	m.session.RefreshToken = pair.Refresh
	snapshot := m.session
	m.mu.Unlock()
	m.publish(snapshot)
	return nil
}

// Invalidate implements apiclient.TokenSource: an unrecoverable refresh
// failure signs the client out.
func (m *Manager) Invalidate() {
	m.Logout()
}

func (m *Manager) fetchProfile(ctx context.Context) (*users.User, error) {
	var user users.User
	if err := m.client.Get(ctx, routeMe, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// completeSignIn publishes the authenticated session unless a logout
// happened while the sign-in was in flight.
func (m *Manager) completeSignIn(gen uint64, user *users.User) (Session, error) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return Session{}, errors.ErrNotAuthenticated
	}
	m.session.User = user
	m.session.Authenticated = true
	snapshot := m.session
	m.mu.Unlock()
	m.publish(snapshot)
	return snapshot, nil
}

// discardRestore clears stored credentials after a failed restore, unless a
// newer session has appeared in the meantime.
func (m *Manager) discardRestore(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.generation++
	m.session = Session{Mode: m.session.Mode}
	snapshot := m.session
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.log.Err(err).Msg("Failed to clear credential store")
	}
	m.publish(snapshot)
}

func (m *Manager) applyMode(active bool) {
	mode := ModeLive
	if active {
		mode = ModeDegraded
	}
	m.mu.Lock()
	if m.session.Mode == mode {
		m.mu.Unlock()
		return
	}
	m.session.Mode = mode
	snapshot := m.session
	m.mu.Unlock()
	m.publish(snapshot)
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

func (m *Manager) publish(snapshot Session) {
	m.mu.RLock()
	subscribers := make([]func(Session), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subscribers = append(subscribers, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}
