// Package session carries the authenticated caller through every store call.
// A Context is created once per request by the auth middleware (or once per
// process by a CLI) and passed explicitly; there is no ambient fallback.
package session

import "errors"

// ErrNoSession is returned when a store-calling function receives an empty session
var ErrNoSession = errors.New("no authenticated session")

// Context identifies the caller on whose behalf records are read and written
type Context struct {
	UserID string
	Email  string
	Role   string
}

// New creates a session for the given user
func New(userID, email, role string) (Context, error) {
	s := Context{UserID: userID, Email: email, Role: role}
	if err := s.Validate(); err != nil {
		return Context{}, err
	}
	return s, nil
}

// Validate returns ErrNoSession when the session has no user
func (s Context) Validate() error {
	if s.UserID == "" {
		return ErrNoSession
	}
	return nil
}
