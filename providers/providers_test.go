package providers_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/clubsync/go-club-client/providers"
)

func TestGoogleAuthCodeConfig(t *testing.T) {
	cfg := providers.GoogleAuthCodeConfig("client-id", "client-secret", "http://localhost:9000/callback")

	require.Equal(t, "client-id", cfg.ClientID)
	require.Equal(t, google.Endpoint, cfg.Endpoint)
	require.Equal(t, []string{"openid", "email", "profile"}, cfg.Scopes)
}

func TestIDTokenFromExchange(t *testing.T) {
	token := (&oauth2.Token{}).WithExtra(map[string]any{"id_token": "raw-id-token"})
	raw, ok := providers.IDTokenFromExchange(token)
	require.True(t, ok)
	require.Equal(t, "raw-id-token", raw)
}

func TestIDTokenFromExchangeMissing(t *testing.T) {
	_, ok := providers.IDTokenFromExchange(&oauth2.Token{})
	require.False(t, ok)
}
