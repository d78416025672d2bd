package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/clubsync/go-club-client/apiclient"
	"github.com/clubsync/go-club-client/credentials"
	"github.com/clubsync/go-club-client/internal/errors"
	"github.com/clubsync/go-club-client/users"
)

// OAuthProvider identifies a supported third-party identity provider.
type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "google"
	ProviderApple  OAuthProvider = "apple"
)

// IDTokenVerifier validates a provider-issued ID token locally before it is
// sent to the service, failing fast on expired or mis-issued tokens.
// Implemented by providers.OIDCVerifier.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) error
}

// OAuthResult is the outcome of an OAuth exchange. When NeedsRoleSelection
// is set the token pair is stored but the session is not yet complete: the
// caller must ask the user for a role and call CompleteRoleSelection.
type OAuthResult struct {
	Session            Session
	NeedsRoleSelection bool
	Email              string
}

// oauthExchangeRequest is the body sent to the service's OAuth exchange
// endpoint. Name fields matter for Apple, which only discloses them on the
// user's first sign-in.
type oauthExchangeRequest struct {
	Token     string `json:"token"`
	Provider  string `json:"provider"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type oauthExchangeResponse struct {
	AccessToken        string `json:"access_token"`
	RefreshToken       string `json:"refresh_token"`
	TokenType          string `json:"token_type"`
	UserID             int64  `json:"user_id"`
	Email              string `json:"email"`
	Role               string `json:"role"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	IsNewUser          bool   `json:"is_new_user"`
	NeedsRoleSelection bool   `json:"needs_role_selection"`
}

// OAuthOption defines a function type to modify an OAuth exchange.
type OAuthOption func(*oauthExchange)

type oauthExchange struct {
	firstName string
	lastName  string
	verifier  IDTokenVerifier
}

// WithName supplies the user's name for first-time Apple sign-ins.
func WithName(firstName, lastName string) OAuthOption {
	return func(e *oauthExchange) {
		e.firstName = firstName
		e.lastName = lastName
	}
}

// WithIDTokenVerifier validates the provider token locally before the
// network exchange.
func WithIDTokenVerifier(v IDTokenVerifier) OAuthOption {
	return func(e *oauthExchange) {
		e.verifier = v
	}
}

// LoginWithOAuth exchanges a third-party identity token for a service
// session. New users come back with NeedsRoleSelection set and must complete
// the sign-in via CompleteRoleSelection.
func (m *Manager) LoginWithOAuth(ctx context.Context, provider OAuthProvider, providerToken string, options ...OAuthOption) (*OAuthResult, error) {
	if provider != ProviderGoogle && provider != ProviderApple {
		return nil, errors.Wrapf(errors.ErrInvalidProvider, "[LoginWithOAuth] %q", provider)
	}
	if providerToken == "" {
		return nil, errors.Wrapf(errors.ErrInvalidProviderToken, "[LoginWithOAuth] empty token")
	}

	exchange := &oauthExchange{}
	for _, opt := range options {
		opt(exchange)
	}
	if exchange.verifier != nil {
		if err := exchange.verifier.Verify(ctx, providerToken); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidProviderToken, "%v", err)
		}
	}

	gen := m.currentGeneration()

	var resp oauthExchangeResponse
	err := m.client.Post(ctx, fmt.Sprintf("/auth/oauth/%s", provider), oauthExchangeRequest{
		Token:     providerToken,
		Provider:  string(provider),
		FirstName: exchange.firstName,
		LastName:  exchange.lastName,
	}, &resp)
	if err != nil {
		if isUnauthorized(err) {
			return nil, errors.Wrapf(errors.ErrInvalidProviderToken, "%v", err)
		}
		return nil, err
	}

	pair := credentials.TokenPair{Access: resp.AccessToken, Refresh: resp.RefreshToken}
	if !pair.Complete() {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "[LoginWithOAuth] service returned a partial token pair")
	}
	if err := m.StorePair(pair); err != nil {
		return nil, err
	}

	if resp.NeedsRoleSelection {
		// Tokens are stored (the role-assignment call needs them) but the
		// session stays unauthenticated until the role is chosen.
		return &OAuthResult{NeedsRoleSelection: true, Email: resp.Email}, nil
	}

	user := &users.User{
		ID:        resp.UserID,
		Email:     resp.Email,
		FirstName: resp.FirstName,
		LastName:  resp.LastName,
		Role:      users.RoleType(resp.Role),
		IsActive:  true,
	}
	snapshot, err := m.completeSignIn(gen, user)
	if err != nil {
		return nil, err
	}
	return &OAuthResult{Session: snapshot}, nil
}

// CompleteRoleSelection assigns the chosen role after a first OAuth sign-in
// and finalizes the session.
func (m *Manager) CompleteRoleSelection(ctx context.Context, role users.RoleType) (Session, error) {
	if !role.Valid() {
		return Session{}, fmt.Errorf("[CompleteRoleSelection] unknown role %q", role)
	}
	if m.AccessToken() == "" {
		return Session{}, errors.ErrRoleSelectionRequired
	}

	gen := m.currentGeneration()
	if err := m.client.Post(ctx, fmt.Sprintf("/auth/oauth/set-role?role=%s", role), nil, nil); err != nil {
		return Session{}, err
	}
	user, err := m.fetchProfile(ctx)
	if err != nil {
		return Session{}, err
	}
	return m.completeSignIn(gen, user)
}

func isUnauthorized(err error) bool {
	var apiErr *apiclient.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
