package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// brokenKV fails every call, like a secure store whose backing file is gone.
type brokenKV struct{ err error }

func (b brokenKV) Get(context.Context, string) (string, bool, error) { return "", false, b.err }
func (b brokenKV) Set(context.Context, string, string) error         { return b.err }
func (b brokenKV) Delete(context.Context, string) error              { return b.err }

func TestStorePrefersSecure(t *testing.T) {
	ctx := context.Background()
	secure, fallback := NewMemory(), NewMemory()
	s := New(secure, fallback, zaptest.NewLogger(t))

	require.NoError(t, s.Set(ctx, AccountKey, "phrase"))

	v, ok, err := secure.Get(ctx, AccountKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "phrase", v)

	_, ok, err = fallback.Get(ctx, AccountKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreFallsBackWhenSecureUnavailable(t *testing.T) {
	ctx := context.Background()
	fallback := NewMemory()
	s := New(brokenKV{err: ErrUnavailable}, fallback, zaptest.NewLogger(t))

	require.NoError(t, s.Set(ctx, ContactsKey, "[]"))

	v, ok, err := s.Get(ctx, ContactsKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "[]", v)

	require.NoError(t, s.Delete(ctx, ContactsKey))
	_, ok, err = s.Get(ctx, ContactsKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreBothFailing(t *testing.T) {
	ctx := context.Background()
	s := New(brokenKV{err: ErrUnavailable}, brokenKV{err: errors.New("disk gone")}, zaptest.NewLogger(t))

	_, _, err := s.Get(ctx, AccountKey)
	require.ErrorIs(t, err, ErrUnavailable)

	err = s.Set(ctx, AccountKey, "x")
	require.ErrorIs(t, err, ErrUnavailable)

	err = s.Delete(ctx, AccountKey)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestStoreDeleteSurfacesSecureFailure(t *testing.T) {
	ctx := context.Background()
	s := New(brokenKV{err: errors.New("corrupt keystore")}, NewMemory(), zaptest.NewLogger(t))

	err := s.Delete(ctx, AccountKey)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnavailable)
}

func TestStoreReadsValueLeftInFallback(t *testing.T) {
	ctx := context.Background()
	secure, fallback := NewMemory(), NewMemory()
	require.NoError(t, fallback.Set(ctx, AccountKey, "older"))

	s := New(secure, fallback, zaptest.NewLogger(t))
	v, ok, err := s.Get(ctx, AccountKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "older", v)

	// A successful secure write drops the fallback copy.
	require.NoError(t, s.Set(ctx, AccountKey, "newer"))
	_, ok, err = fallback.Get(ctx, AccountKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeystoreAndBoltBackends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	password := []byte("pw")
	ks := NewKeystore(filepath.Join(dir, "wallet.cwt"), "SN_SEPOLIA", func() ([]byte, error) {
		return append([]byte{}, password...), nil
	}, crypto.ScryptParams{N: 1 << 10, R: 8, P: 1})

	db, err := OpenBolt(filepath.Join(dir, "wallet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for name, kv := range map[string]KV{"keystore": ks, "bolt": db} {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get(ctx, AccountKey)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, kv.Set(ctx, AccountKey, "abandon ability"))
			require.NoError(t, kv.Set(ctx, ContactsKey, "[]"))

			v, ok, err := kv.Get(ctx, AccountKey)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "abandon ability", v)

			require.NoError(t, kv.Delete(ctx, AccountKey))
			require.NoError(t, kv.Delete(ctx, AccountKey))

			_, ok, err = kv.Get(ctx, AccountKey)
			require.NoError(t, err)
			require.False(t, ok)

			v, ok, err = kv.Get(ctx, ContactsKey)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "[]", v)
		})
	}
}

func TestKeystoreWithoutPasswordIsUnavailable(t *testing.T) {
	ks := NewKeystore(filepath.Join(t.TempDir(), "wallet.cwt"), "SN_SEPOLIA", func() ([]byte, error) {
		return nil, errors.New("password not set")
	}, crypto.ScryptParams{N: 1 << 10, R: 8, P: 1})

	_, _, err := ks.Get(context.Background(), AccountKey)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestStoreWrongPasswordDoesNotFallBack(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wallet.cwt")
	params := crypto.ScryptParams{N: 1 << 10, R: 8, P: 1}
	passwordOf := func(pw string) PasswordFunc {
		return func() ([]byte, error) { return []byte(pw), nil }
	}

	require.NoError(t, NewKeystore(path, "SN_SEPOLIA", passwordOf("right"), params).Set(ctx, AccountKey, "old phrase"))

	fallback := NewMemory()
	s := New(NewKeystore(path, "SN_SEPOLIA", passwordOf("wrong"), params), fallback, zaptest.NewLogger(t))

	_, found, err := s.Get(ctx, AccountKey)
	require.ErrorIs(t, err, crypto.ErrInvalidPassword)
	require.NotErrorIs(t, err, ErrUnavailable)
	require.False(t, found)

	err = s.Set(ctx, AccountKey, "new secret phrase")
	require.ErrorIs(t, err, crypto.ErrInvalidPassword)

	_, found, err = fallback.Get(ctx, AccountKey)
	require.NoError(t, err)
	require.False(t, found)

	// The original secret is still there under the right password.
	v, found, err := NewKeystore(path, "SN_SEPOLIA", passwordOf("right"), params).Get(ctx, AccountKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "old phrase", v)
}

func TestStoreCorruptSecureStoreIsReturned(t *testing.T) {
	ctx := context.Background()
	fallback := NewMemory()
	s := New(brokenKV{err: errors.New("corrupt keystore")}, fallback, zaptest.NewLogger(t))

	_, _, err := s.Get(ctx, AccountKey)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnavailable)

	require.Error(t, s.Set(ctx, AccountKey, "phrase"))
	_, found, err := fallback.Get(ctx, AccountKey)
	require.NoError(t, err)
	require.False(t, found)
}
