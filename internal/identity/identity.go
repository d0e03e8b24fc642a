// Package identity carries the caller's identity explicitly through every
// service call instead of relying on ambient session state.
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrMissingIdentity is returned when a request carries no user id.
var ErrMissingIdentity = errors.New("identity: missing user id")

// Identity describes the user a request acts on behalf of.
type Identity struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// New builds an Identity for a user id with no profile fields.
func New(userID string) Identity {
	return Identity{UserID: strings.TrimSpace(userID)}
}

// Validate reports ErrMissingIdentity when the user id is blank.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return ErrMissingIdentity
	}
	return nil
}

// DisplayName returns the best human-readable name available.
func (i Identity) DisplayName() string {
	full := strings.TrimSpace(i.FirstName + " " + i.LastName)
	switch {
	case full != "":
		return full
	case i.Username != "":
		return i.Username
	default:
		return i.UserID
	}
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores id on ctx. It is used only at the HTTP boundary.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return Identity{}, ErrMissingIdentity
	}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}
