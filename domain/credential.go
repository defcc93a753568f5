// Package domain holds the shared types of the self-care client core:
// credentials, session states and payment records. It depends on nothing but
// the standard library so every other package can import it freely.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNoCredential is returned by CredentialStore.Load when nothing is stored.
// A tampered or undecryptable record is reported the same way, so callers
// always fall back to a fresh login.
var ErrNoCredential = errors.New("no stored credential")

// ProfileSnapshot is the locally cached subset of the customer's account
// profile. It is refreshed from the server whenever the credential is
// validated; the server's copy is authoritative.
type ProfileSnapshot struct {
	CustomerID  string `json:"customer_id" bson:"customer_id"`
	InvoicingID string `json:"invoicingid" bson:"invoicingid"`
	Name        string `json:"name" bson:"name"`
	Email       string `json:"email" bson:"email"`
	PackageName string `json:"package_name,omitempty" bson:"package_name,omitempty"`
	Status      string `json:"status,omitempty" bson:"status,omitempty"`
}

// Credential is an opaque API token together with the profile it was issued
// for. The token carries no parseable expiry; the server is the only
// authority on its validity.
type Credential struct {
	Token    string          `json:"token" bson:"token"`
	Profile  ProfileSnapshot `json:"profile" bson:"profile"`
	IssuedAt time.Time       `json:"issued_at" bson:"issued_at"`
}

// CredentialStore persists at most one credential. Implementations must make
// Save atomic: after a failed Save the previously stored credential, or its
// absence, is still intact. Clear on an empty store is not an error.
type CredentialStore interface {
	// Load returns the stored credential, or ErrNoCredential.
	Load(ctx context.Context) (*Credential, error)
	// Save replaces the stored credential.
	Save(ctx context.Context, cred *Credential) error
	// Clear removes the stored credential, if any.
	Clear(ctx context.Context) error
}
