package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/clubsync/go-club-client/credentials"
	"github.com/clubsync/go-club-client/credentials/storefake"
	"github.com/clubsync/go-club-client/internal/errors"
	"github.com/clubsync/go-club-client/session"
	"github.com/clubsync/go-club-client/users"
)

// oauthFixture is a fake club service for the OAuth exchange surface.
type oauthFixture struct {
	server *httptest.Server

	mu        sync.Mutex
	newUser   bool
	role      string
	lastToken string
}

func newOAuthFixture(t *testing.T) *oauthFixture {
	t.Helper()
	f := &oauthFixture{role: "coach"}

	router := mux.NewRouter()
	router.HandleFunc("/auth/oauth/google", f.handleExchange).Methods(http.MethodPost)
	router.HandleFunc("/auth/oauth/apple", f.handleExchange).Methods(http.MethodPost)
	router.HandleFunc("/auth/oauth/set-role", f.handleSetRole).Methods(http.MethodPost)
	router.HandleFunc("/auth/me", f.handleMe).Methods(http.MethodGet)

	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

func (f *oauthFixture) handleExchange(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Provider string `json:"provider"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastToken = body.Token

	if body.Token == "rejected-by-server" {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid Google token"})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":         "oat1",
		"refresh_token":        "ort1",
		"token_type":           "bearer",
		"user_id":              7,
		"email":                "coach@handball.de",
		"role":                 f.role,
		"first_name":           "Thomas",
		"last_name":            "Trainer",
		"is_new_user":          f.newUser,
		"needs_role_selection": f.newUser,
	})
}

func (f *oauthFixture) handleSetRole(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer oat1" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	role := r.URL.Query().Get("role")
	f.mu.Lock()
	f.role = role
	f.newUser = false
	f.mu.Unlock()
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Role updated successfully", "role": role})
}

func (f *oauthFixture) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer oat1" {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id": 7, "email": "coach@handball.de", "first_name": "Thomas", "last_name": "Trainer",
		"role": f.role, "is_active": true,
	})
}

type rejectingVerifier struct{ calls int }

func (v *rejectingVerifier) Verify(ctx context.Context, rawIDToken string) error {
	v.calls++
	return errors.ErrInvalidProviderToken
}

func TestOAuthExchangeExistingUser(t *testing.T) {
	fixture := newOAuthFixture(t)
	store := storefake.NewFakeStore()
	manager, err := session.NewManager(testConfig{baseURL: fixture.server.URL}, store)
	require.NoError(t, err)

	result, err := manager.LoginWithOAuth(context.Background(), session.ProviderGoogle, "google-id-token")
	require.NoError(t, err)

	require.False(t, result.NeedsRoleSelection)
	require.True(t, result.Session.Authenticated)
	require.Equal(t, users.RoleCoach, result.Session.User.Role)
	require.Equal(t, "coach@handball.de", result.Session.User.Email)

	pair, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, &credentials.TokenPair{Access: "oat1", Refresh: "ort1"}, pair)
}

func TestOAuthExchangeNewUserNeedsRole(t *testing.T) {
	fixture := newOAuthFixture(t)
	fixture.newUser = true
	store := storefake.NewFakeStore()
	manager, err := session.NewManager(testConfig{baseURL: fixture.server.URL}, store)
	require.NoError(t, err)

	result, err := manager.LoginWithOAuth(context.Background(), session.ProviderApple, "apple-id-token",
		session.WithName("Anna", "Betreuer"))
	require.NoError(t, err)

	require.True(t, result.NeedsRoleSelection)
	require.Equal(t, "coach@handball.de", result.Email)

	// Tokens are stored for the follow-up call, but the session is not complete
	require.False(t, manager.Current().Authenticated)
	pair, loadErr := store.Load()
	require.NoError(t, loadErr)
	require.NotNil(t, pair)

	current, err := manager.CompleteRoleSelection(context.Background(), users.RoleSupervisor)
	require.NoError(t, err)
	require.True(t, current.Authenticated)
	require.Equal(t, users.RoleSupervisor, current.User.Role)
}

func TestOAuthExchangeRejectedByServer(t *testing.T) {
	fixture := newOAuthFixture(t)
	store := storefake.NewFakeStore()
	manager, err := session.NewManager(testConfig{baseURL: fixture.server.URL}, store)
	require.NoError(t, err)

	_, err = manager.LoginWithOAuth(context.Background(), session.ProviderGoogle, "rejected-by-server")
	require.ErrorIs(t, err, errors.ErrInvalidProviderToken)
	require.True(t, manager.Current().Empty())
}

func TestOAuthLocalVerifierFailsFast(t *testing.T) {
	fixture := newOAuthFixture(t)
	store := storefake.NewFakeStore()
	manager, err := session.NewManager(testConfig{baseURL: fixture.server.URL}, store)
	require.NoError(t, err)

	verifier := &rejectingVerifier{}
	_, err = manager.LoginWithOAuth(context.Background(), session.ProviderGoogle, "expired-id-token",
		session.WithIDTokenVerifier(verifier))
	require.ErrorIs(t, err, errors.ErrInvalidProviderToken)
	require.Equal(t, 1, verifier.calls)

	// The token never reached the service
	fixture.mu.Lock()
	defer fixture.mu.Unlock()
	require.Empty(t, fixture.lastToken)
}

func TestOAuthUnknownProvider(t *testing.T) {
	fixture := newOAuthFixture(t)
	manager, err := session.NewManager(testConfig{baseURL: fixture.server.URL}, storefake.NewFakeStore())
	require.NoError(t, err)

	_, err = manager.LoginWithOAuth(context.Background(), session.OAuthProvider("github"), "token")
	require.ErrorIs(t, err, errors.ErrInvalidProvider)
}

func TestCompleteRoleSelectionWithoutTokens(t *testing.T) {
	fixture := newOAuthFixture(t)
	manager, err := session.NewManager(testConfig{baseURL: fixture.server.URL}, storefake.NewFakeStore())
	require.NoError(t, err)

	_, err = manager.CompleteRoleSelection(context.Background(), users.RolePlayer)
	require.ErrorIs(t, err, errors.ErrRoleSelectionRequired)
}
