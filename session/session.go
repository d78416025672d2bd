// Package session owns the client's authentication state: the current user,
// the token pair, and the live/degraded mode flag. The Manager is the only
// component that mutates the Session; everything else observes it through
// the subscription interface.
package session

import "github.com/clubsync/go-club-client/users"

// Mode indicates whether the client is talking to the live service or the
// availability fallback.
type Mode string

const (
	ModeLive     Mode = "live"
	ModeDegraded Mode = "degraded"
)

// Session is a snapshot of the client's authentication state. Values are
// copied out to subscribers; the canonical state lives inside the Manager.
type Session struct {
	User          *users.User
	AccessToken   string
	RefreshToken  string
	Authenticated bool
	Mode          Mode
}

// Empty reports whether the session holds no user and no tokens.
func (s Session) Empty() bool {
	return s.User == nil && s.AccessToken == "" && s.RefreshToken == "" && !s.Authenticated
}
