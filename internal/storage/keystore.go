package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
)

// PasswordFunc hands out a copy of the keystore password. The caller clears it.
type PasswordFunc func() ([]byte, error)

// Keystore keeps all entries as one JSON object inside an encrypted .cwt file.
// Every call unlocks the file and nothing decrypted is cached. A missing password or an
// unwritable file is reported as ErrUnavailable; a wrong password or a corrupt file is not.
type Keystore struct {
	mu       sync.Mutex
	path     string
	network  string
	password PasswordFunc
	params   crypto.ScryptParams
}

func NewKeystore(path, network string, password PasswordFunc, params crypto.ScryptParams) *Keystore {
	return &Keystore{
		path:     path,
		network:  network,
		password: password,
		params:   params,
	}
}

func (k *Keystore) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	password, err := k.unlock()
	if err != nil {
		return "", false, err
	}
	defer clear(password)

	entries, err := k.load(password)
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

func (k *Keystore) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	password, err := k.unlock()
	if err != nil {
		return err
	}
	defer clear(password)

	entries, err := k.load(password)
	if err != nil {
		return err
	}
	entries[key] = value
	return k.save(entries, password)
}

func (k *Keystore) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	password, err := k.unlock()
	if err != nil {
		return err
	}
	defer clear(password)

	entries, err := k.load(password)
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return k.save(entries, password)
}

func (k *Keystore) unlock() ([]byte, error) {
	if k.password == nil {
		return nil, fmt.Errorf("%w: keystore password not configured", ErrUnavailable)
	}
	password, err := k.password()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return password, nil
}

func (k *Keystore) load(password []byte) (map[string]string, error) {
	_, plaintext, err := crypto.OpenKeystore(k.path, password)
	if errors.Is(err, crypto.ErrKeystoreNotFound) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}
	defer clear(plaintext) // wipe decrypted bytes from memory

	entries := make(map[string]string)
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keystore entries: %w", err)
	}
	return entries, nil
}

func (k *Keystore) save(entries map[string]string, password []byte) error {
	plaintext, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal keystore entries: %w", err)
	}
	defer clear(plaintext)

	if err := crypto.SealKeystore(k.path, k.network, plaintext, password, k.params); err != nil {
		return fmt.Errorf("%w: failed to seal keystore: %v", ErrUnavailable, err)
	}
	return nil
}
