// Package storage persists wallet secrets and settings as opaque strings.
package storage

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no backing store could serve a request.
var ErrUnavailable = errors.New("storage unavailable")

// Fixed keys of the persisted layout.
const (
	// AccountKey holds either a recovery phrase or a raw private key, never both.
	AccountKey = "oz.account.key"
	// ContactsKey holds the JSON encoded contact list.
	ContactsKey = "addressbook.contacts"
)

// KV is a string key-value store.
type KV interface {
	// Get reports found=false for a missing key.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
