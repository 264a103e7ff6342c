package wallet

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/AlexZinkM/tongo-wallet/internal/crypto"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

const (
	bip44Purpose     = 44
	starknetCoinType = 9004
	shieldedCoinType = 5454
)

// The two identities live under different coin types; this fails to compile if they
// are ever made equal (or reordered).
const _ uint = starknetCoinType - shieldedCoinType - 1

// KeyScope is the hardened purpose/coin pair of a derivation path
type KeyScope struct {
	Purpose uint32
	Coin    uint32
}

// DerivationPath is a BIP44 path m/purpose'/coin'/account'/branch/index
type DerivationPath struct {
	Scope   KeyScope
	Account uint32
	Branch  uint32
	Index   uint32
}

var (
	// BaseLayerPath derives the Starknet account key.
	BaseLayerPath = DerivationPath{Scope: KeyScope{Purpose: bip44Purpose, Coin: starknetCoinType}}
	// ShieldedPath derives the Tongo spending key.
	ShieldedPath = DerivationPath{Scope: KeyScope{Purpose: bip44Purpose, Coin: shieldedCoinType}}
)

func (p DerivationPath) String() string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", p.Scope.Purpose, p.Scope.Coin, p.Account, p.Branch, p.Index)
}

func (p DerivationPath) derive(master *hdkeychain.ExtendedKey) (*big.Int, error) {
	steps := []uint32{
		hdkeychain.HardenedKeyStart + p.Scope.Purpose,
		hdkeychain.HardenedKeyStart + p.Scope.Coin,
		hdkeychain.HardenedKeyStart + p.Account,
		p.Branch,
		p.Index,
	}

	key := master
	for _, step := range steps {
		child, err := key.Derive(step)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s: %w", p, err)
		}
		key = child
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive %s: %w", p, err)
	}
	raw := priv.Serialize()
	defer clear(raw)
	priv.Zero()

	return crypto.GrindKey(raw)
}

// Identity is the key material of one wallet. The shielded key is nil when it has to be
// derived through a base-layer signature instead.
type Identity struct {
	Address   *big.Int
	PublicKey *big.Int

	baseKey     *big.Int
	shieldedKey *big.Int
}

// BaseKey returns the base-layer private key
func (id *Identity) BaseKey() *big.Int {
	return id.baseKey
}

// ShieldedKey returns the shielded spending key, nil if not derived from a seed
func (id *Identity) ShieldedKey() *big.Int {
	return id.shieldedKey
}

// Clear zeroes the private keys
func (id *Identity) Clear() {
	for _, k := range []*big.Int{id.baseKey, id.shieldedKey} {
		if k != nil {
			k.SetInt64(0)
		}
	}
	id.baseKey = nil
	id.shieldedKey = nil
}

// SignatureHash folds a signature into a single felt
type SignatureHash func(r, s *big.Int) *big.Int

func poseidonSignatureHash(r, s *big.Int) *big.Int {
	return crypto.PoseidonArray(r, s)
}

// DeriverOption configures a Deriver
type DeriverOption func(*Deriver)

// WithSignatureHash replaces the Poseidon hash used by DeriveShieldedKeyFromSignature
func WithSignatureHash(h SignatureHash) DeriverOption {
	return func(d *Deriver) {
		d.hash = h
	}
}

// Deriver turns recovery material into identities for one account class and chain
type Deriver struct {
	classHash *big.Int
	chainID   *big.Int
	hash      SignatureHash
}

// NewDeriver creates a deriver. classHash is the account contract class, chainID the
// Starknet chain id as a short string, e.g. SN_SEPOLIA.
func NewDeriver(classHash, chainID string, opts ...DeriverOption) (*Deriver, error) {
	ch, err := crypto.ParseFelt(classHash)
	if err != nil {
		return nil, fmt.Errorf("invalid account class hash: %w", err)
	}
	id, err := crypto.ShortString(chainID)
	if err != nil {
		return nil, fmt.Errorf("invalid chain id: %w", err)
	}

	d := &Deriver{classHash: ch, chainID: id, hash: poseidonSignatureHash}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// AccountAddress is the counterfactual address of the account owned by publicKey
func (d *Deriver) AccountAddress(publicKey *big.Int) *big.Int {
	return crypto.ContractAddress(publicKey, d.classHash, []*big.Int{publicKey}, big.NewInt(0))
}

// DeriveIdentityPair derives both keys from a 12 or 24 word BIP39 phrase
func (d *Deriver) DeriveIdentityPair(mnemonic []byte) (*Identity, error) {
	phrase := strings.Join(strings.Fields(strings.ToLower(string(mnemonic))), " ")
	if n := len(strings.Fields(phrase)); n != 12 && n != 24 {
		return nil, fmt.Errorf("%w: expected 12 or 24 words, got %d", ErrInvalidMnemonic, n)
	}

	seed, err := bip39.NewSeedWithErrorChecking(phrase, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	defer clear(seed)

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	defer master.Zero()

	baseKey, err := BaseLayerPath.derive(master)
	if err != nil {
		return nil, err
	}
	shieldedKey, err := ShieldedPath.derive(master)
	if err != nil {
		baseKey.SetInt64(0)
		return nil, err
	}

	id := d.identity(baseKey)
	id.shieldedKey = shieldedKey
	return id, nil
}

// FromPrivateKey builds an identity around a raw base-layer key. The shielded key is
// left for DeriveShieldedKeyFromSignature.
func (d *Deriver) FromPrivateKey(key string) (*Identity, error) {
	key = strings.TrimSpace(key)
	if !rawKeyPattern.MatchString(key) {
		return nil, fmt.Errorf("%w: expected 63 or 64 hex digits", ErrInvalidPrivateKey)
	}
	k, err := crypto.ParseFelt(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	if err := crypto.ValidatePrivateKey(k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return d.identity(k), nil
}

func (d *Deriver) identity(baseKey *big.Int) *Identity {
	pub := crypto.PublicKey(baseKey)
	return &Identity{
		Address:   d.AccountAddress(pub),
		PublicKey: pub,
		baseKey:   baseKey,
	}
}

// KeyDerivationTypedData is the message the base-layer account signs to derive its
// shielded key.
func (d *Deriver) KeyDerivationTypedData(account *big.Int) *crypto.TypedData {
	return &crypto.TypedData{
		Types: map[string][]crypto.TypeMember{
			"StarkNetDomain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "felt"},
			},
			"Message": {
				{Name: "action", Type: "felt"},
				{Name: "wallet", Type: "felt"},
			},
		},
		PrimaryType: "Message",
		Domain: map[string]any{
			"name":    "Tongo Key Derivation",
			"version": "1",
			"chainId": d.chainID,
		},
		Message: map[string]any{
			"action": "tongo-keygen-v1",
			"wallet": account,
		},
	}
}

// DeriveShieldedKeyFromSignature derives the shielded key from the account's signature
// over the key-derivation message. Signers that are deterministic (RFC6979) always
// yield the same key.
func (d *Deriver) DeriveShieldedKeyFromSignature(ctx context.Context, account *big.Int, signer Signer) (*big.Int, error) {
	sig, err := signer.SignTypedData(ctx, d.KeyDerivationTypedData(account))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}

	var r, s *big.Int
	switch {
	case len(sig) >= 4 && sig[0] != nil && sig[0].Cmp(big.NewInt(1)) == 0:
		// [signer count, signer index, r, s, ...]
		r, s = sig[2], sig[3]
	case len(sig) >= 2:
		r, s = sig[0], sig[1]
	default:
		return nil, fmt.Errorf("%w: unexpected signature layout of %d felts", ErrDerivationFailed, len(sig))
	}
	if r == nil || s == nil {
		return nil, fmt.Errorf("%w: empty signature", ErrDerivationFailed)
	}

	key := new(big.Int).Mod(d.hash(r, s), crypto.CurveOrder)
	if key.Sign() == 0 {
		return nil, fmt.Errorf("%w: derived key is zero", ErrDerivationFailed)
	}
	return key, nil
}
