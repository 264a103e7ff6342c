package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
	"github.com/AlexZinkM/tongo-wallet/internal/storage"

	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"go.uber.org/zap"
)

// Contact is a named shielded address
type Contact struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Recipient is a resolved shielded destination
type Recipient struct {
	Address string
	Point   *starkcurve.G1Affine
}

// AddressBook is the persisted, ordered contact list. Addresses are unique.
type AddressBook struct {
	mu       sync.RWMutex
	contacts []Contact
	store    storage.KV
	logger   *zap.Logger
}

// NewAddressBook creates an empty book over store. Call Load to read persisted contacts.
func NewAddressBook(store storage.KV, logger *zap.Logger) *AddressBook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddressBook{store: store, logger: logger}
}

// Load reads the persisted list. A corrupt list is logged and replaced by an empty one.
func (b *AddressBook) Load(ctx context.Context) error {
	raw, ok, err := b.store.Get(ctx, storage.ContactsKey)
	if err != nil {
		return persistenceError("load contacts", err)
	}

	var contacts []Contact
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &contacts); err != nil {
			b.logger.Warn("Ignoring unreadable contact list", zap.Error(err))
			contacts = nil
		}
	}

	b.mu.Lock()
	b.contacts = contacts
	b.mu.Unlock()
	return nil
}

// Contacts returns a copy of the list in display order
func (b *AddressBook) Contacts() []Contact {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Contact, len(b.contacts))
	copy(out, b.contacts)
	return out
}

// Add stores a contact. An existing contact with the same address is replaced in place.
func (b *AddressBook) Add(ctx context.Context, c Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	if c.Name == "" {
		return errors.New("contact name is required")
	}
	if _, err := crypto.DecodeAddress(c.Address); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]Contact, len(b.contacts), len(b.contacts)+1)
	copy(next, b.contacts)
	replaced := false
	for i := range next {
		if next[i].Address == c.Address {
			next[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		next = append(next, c)
	}
	return b.save(ctx, next)
}

// Remove deletes the contact with address, if any
func (b *AddressBook) Remove(ctx context.Context, address string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]Contact, 0, len(b.contacts))
	for _, c := range b.contacts {
		if c.Address != address {
			next = append(next, c)
		}
	}
	return b.save(ctx, next)
}

// Clear removes every contact
func (b *AddressBook) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.save(ctx, []Contact{})
}

// save persists next and only then makes it current. Caller holds the lock.
func (b *AddressBook) save(ctx context.Context, next []Contact) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode contacts: %w", err)
	}
	if err := b.store.Set(ctx, storage.ContactsKey, string(raw)); err != nil {
		return persistenceError("save contacts", err)
	}
	b.contacts = next
	return nil
}

// Resolve turns a contact name or a base58 shielded address into a curve point.
// Names win over addresses, the first matching contact is used.
func (b *AddressBook) Resolve(identifier string) (*Recipient, error) {
	identifier = strings.TrimSpace(identifier)
	address := identifier

	b.mu.RLock()
	for _, c := range b.contacts {
		if c.Name == identifier {
			address = c.Address
			break
		}
	}
	b.mu.RUnlock()

	point, err := crypto.DecodeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, identifier, err)
	}
	return &Recipient{Address: address, Point: point}, nil
}
