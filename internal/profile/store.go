// Package profile mirrors per-user billing state in an optional datastore.
// The mirror is best effort: billing endpoints write through it after talking
// to the payment provider, and the ask path reads it as an entitlement fast
// path. The payment provider stays the source of truth.
package profile

import (
	"context"
	"time"
)

// Mapping is the cached billing state for one user.
type Mapping struct {
	CustomerID string    `json:"customer_id"`
	Email      string    `json:"email,omitempty"`
	Plan       string    `json:"plan,omitempty"`
	Active     bool      `json:"active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is the profile datastore. Get reports ok=false on a clean miss and a
// non-nil error only when the store itself failed.
type Store interface {
	Get(ctx context.Context, userID string) (Mapping, bool, error)
	Put(ctx context.Context, userID string, m Mapping) error
}
