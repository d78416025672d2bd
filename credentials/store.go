// Package credentials persists the current access/refresh token pair across
// process restarts. It performs no network calls and no validation; it is
// pure storage for the session layer.
package credentials

// TokenPair is the access/refresh token pair returned by the auth endpoints.
// A pair missing either half is treated as absent.
type TokenPair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// Complete reports whether both halves of the pair are present.
func (p TokenPair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// Store holds the current token pair. Save replaces any previous pair,
// Load returns nil when no complete pair is stored, and Clear removes both
// tokens together — a store never holds half a pair.
type Store interface {
	Save(pair TokenPair) error
	Load() (*TokenPair, error)
	Clear() error
}
