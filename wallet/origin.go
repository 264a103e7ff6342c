package wallet

import (
	"regexp"
	"strings"
)

// OriginKind tells how a wallet was created.
type OriginKind int

const (
	OriginNone OriginKind = iota
	OriginSeed
	OriginRawKey
)

func (k OriginKind) String() string {
	switch k {
	case OriginSeed:
		return "seed"
	case OriginRawKey:
		return "raw_key"
	default:
		return "none"
	}
}

var rawKeyPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{63,64}$`)

// Origin is the recovery material of a wallet: a recovery phrase or a raw base-layer
// private key. Call Clear as soon as keys are derived.
type Origin struct {
	Kind   OriginKind
	secret []byte
}

// SeedOrigin wraps a recovery phrase, normalizing case and whitespace.
func SeedOrigin(mnemonic string) Origin {
	phrase := strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
	return Origin{Kind: OriginSeed, secret: []byte(phrase)}
}

// RawKeyOrigin wraps a hex private key, with or without 0x.
func RawKeyOrigin(key string) Origin {
	return Origin{Kind: OriginRawKey, secret: []byte(strings.TrimSpace(key))}
}

// ParseOrigin classifies a persisted secret by its format.
func ParseOrigin(stored string) Origin {
	if rawKeyPattern.MatchString(strings.TrimSpace(stored)) {
		return RawKeyOrigin(stored)
	}
	return SeedOrigin(stored)
}

// String returns the secret in its persisted form.
func (o Origin) String() string {
	return string(o.secret)
}

// Clear zeroes the in-memory secret.
func (o *Origin) Clear() {
	clear(o.secret)
	o.secret = nil
}
