package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Store prefers the secure store and transparently falls back to a plain one when the
// secure store is unavailable. Any other secure store failure is returned as is.
type Store struct {
	secure   KV
	fallback KV
	logger   *zap.Logger
}

func New(secure, fallback KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{secure: secure, fallback: fallback, logger: logger.Named("storage")}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, found, secureErr := s.secure.Get(ctx, key)
	switch {
	case secureErr == nil && found:
		return v, true, nil
	case secureErr != nil && !errors.Is(secureErr, ErrUnavailable):
		// A locked or corrupt keystore must not look like an empty one.
		return "", false, fmt.Errorf("failed to read secure store: %w", secureErr)
	case secureErr != nil:
		s.logger.Warn("secure store read failed, using fallback", zap.String("key", key), zap.Error(secureErr))
	}

	// A value written while the secure store was down lives only in the fallback.
	v, found, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr != nil {
		if secureErr != nil {
			return "", false, fmt.Errorf("%w: %v", ErrUnavailable, errors.Join(secureErr, fallbackErr))
		}
		s.logger.Warn("fallback store read failed", zap.String("key", key), zap.Error(fallbackErr))
		return "", false, nil
	}
	return v, found, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	secureErr := s.secure.Set(ctx, key, value)
	if secureErr == nil {
		if err := s.fallback.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to drop stale fallback copy", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	if !errors.Is(secureErr, ErrUnavailable) {
		return fmt.Errorf("failed to write secure store: %w", secureErr)
	}
	s.logger.Warn("secure store write failed, using fallback", zap.String("key", key), zap.Error(secureErr))

	if err := s.fallback.Set(ctx, key, value); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, errors.Join(secureErr, err))
	}
	return nil
}

// Delete purges key from both stores. A secure store that is merely unavailable is
// tolerated; any other failure leaves the caller with an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	secureErr := s.secure.Delete(ctx, key)
	fallbackErr := s.fallback.Delete(ctx, key)

	switch {
	case secureErr != nil && fallbackErr != nil:
		return fmt.Errorf("%w: %v", ErrUnavailable, errors.Join(secureErr, fallbackErr))
	case fallbackErr != nil:
		return fmt.Errorf("failed to purge fallback store: %w", fallbackErr)
	case secureErr != nil && !errors.Is(secureErr, ErrUnavailable):
		return fmt.Errorf("failed to purge secure store: %w", secureErr)
	case secureErr != nil:
		s.logger.Warn("secure store unavailable during delete", zap.String("key", key), zap.Error(secureErr))
	}
	return nil
}
