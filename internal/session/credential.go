// Package session owns the credential lifecycle: the credential store
// contract, its in-memory and file-backed implementations, and the
// single-flight recovery handler that reacts to authentication failures.
package session

import (
	"context"
	"time"
)

// Credential is the access token the transport client attaches to outbound
// requests. The store is the single source of truth; the transport client
// re-reads it on every call and never caches a copy.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the credential is past its expiry. A zero
// ExpiresAt means the token does not expire.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Store is the credential store contract. Implementations must be safe for
// concurrent use. Read returns (nil, nil) when no credential is held.
type Store interface {
	Read(ctx context.Context) (*Credential, error)
	Save(ctx context.Context, cred Credential) error
	Clear(ctx context.Context) error
}

// Observer is notified when the session has been invalidated, so the UI
// layer can route to a login screen. Notification happens at most once per
// recovery, no matter how many requests failed concurrently.
type Observer interface {
	SessionExpired()
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func()

func (f ObserverFunc) SessionExpired() { f() }
