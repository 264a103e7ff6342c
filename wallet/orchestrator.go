package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/AlexZinkM/tongo-wallet/internal/model"
	"github.com/AlexZinkM/tongo-wallet/internal/storage"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/tyler-smith/go-bip39"
	"go.uber.org/zap"
)

// Config wires a Wallet to its collaborators
type Config struct {
	Chain      Chain
	OpenLedger LedgerFactory
	Store      storage.KV
	Deriver    *Deriver
	Registry   *Registry
	Book       *AddressBook
	Prices     PriceSource

	ClassHash     string
	TongoContract string
	TokenAddress  string
	FiatCurrency  string

	// SignerFor defaults to a local deterministic signer.
	SignerFor func(account, key *big.Int) Signer

	Clock  clock.Clock
	Logger *zap.Logger
}

// Wallet runs the account lifecycle and the value-moving operations of one wallet.
// At most one state-changing operation runs at a time.
type Wallet struct {
	chain      Chain
	openLedger LedgerFactory
	store      storage.KV
	deriver    *Deriver
	registry   *Registry
	book       *AddressBook
	refresher  *Refresher
	signerFor  func(account, key *big.Int) Signer

	classHash     string
	tongoContract string
	tokenAddress  string

	ops    *tracker
	logger *zap.Logger
}

// Result is the outcome of a submitted operation
type Result struct {
	TxHash   string    `json:"txHash,omitempty"`
	Snapshot *Snapshot `json:"balance,omitempty"`
}

// New creates a wallet engine
func New(cfg Config) (*Wallet, error) {
	switch {
	case cfg.Chain == nil:
		return nil, errors.New("wallet: chain client is required")
	case cfg.OpenLedger == nil:
		return nil, errors.New("wallet: ledger factory is required")
	case cfg.Store == nil:
		return nil, errors.New("wallet: store is required")
	case cfg.Deriver == nil:
		return nil, errors.New("wallet: deriver is required")
	}

	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Book == nil {
		cfg.Book = NewAddressBook(cfg.Store, cfg.Logger)
	}
	if cfg.SignerFor == nil {
		cfg.SignerFor = NewKeySigner
	}

	return &Wallet{
		chain:         cfg.Chain,
		openLedger:    cfg.OpenLedger,
		store:         cfg.Store,
		deriver:       cfg.Deriver,
		registry:      cfg.Registry,
		book:          cfg.Book,
		refresher:     NewRefresher(cfg.Registry, cfg.Prices, cfg.FiatCurrency, cfg.Clock, cfg.Logger),
		signerFor:     cfg.SignerFor,
		classHash:     cfg.ClassHash,
		tongoContract: cfg.TongoContract,
		tokenAddress:  cfg.TokenAddress,
		ops:           &tracker{clock: cfg.Clock, logger: cfg.Logger},
		logger:        cfg.Logger,
	}, nil
}

// Registry returns the session registry the wallet mutates
func (w *Wallet) Registry() *Registry {
	return w.registry
}

// Book returns the address book used to resolve recipients
func (w *Wallet) Book() *AddressBook {
	return w.book
}

// Session returns the current session record
func (w *Wallet) Session() Session {
	return w.registry.Session()
}

// Operation returns the current or last state-changing operation
func (w *Wallet) Operation() Operation {
	return w.ops.current()
}

// Initialize loads persisted recovery material, if any, and restores from it.
func (w *Wallet) Initialize(ctx context.Context) (err error) {
	r, err := w.ops.begin("initialize")
	if err != nil {
		return err
	}
	defer func() { r.finish(err) }()

	previous := w.registry.Session()
	w.registry.replace(Session{Phase: PhaseInitializing})
	w.scrub(previous)
	defer func() {
		// a restored session whose association failed is kept
		if err != nil && w.registry.Session().Phase == PhaseInitializing {
			w.registry.replace(Session{Phase: PhaseUninitialized})
		}
	}()

	if w.book != nil {
		if err := w.book.Load(ctx); err != nil {
			return err
		}
	}

	stored, ok, err := w.store.Get(ctx, storage.AccountKey)
	if err != nil {
		return persistenceError("load account key", err)
	}
	if !ok || strings.TrimSpace(stored) == "" {
		w.registry.replace(Session{Phase: PhaseReady})
		w.logger.Info("No wallet found")
		return nil
	}

	origin := ParseOrigin(stored)
	_, err = w.restore(ctx, r, &origin, false)
	return err
}

// CreateWallet generates a new recovery phrase of 12 or 24 words, persists it and
// restores from it. The phrase is returned once for backup.
func (w *Wallet) CreateWallet(ctx context.Context, words int) (string, error) {
	var bits int
	switch words {
	case 12:
		bits = 128
	case 24:
		bits = 256
	default:
		return "", fmt.Errorf("%w: expected 12 or 24 words, got %d", ErrInvalidMnemonic, words)
	}

	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	defer clear(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}

	if _, err := w.RestoreFromSeed(ctx, mnemonic, true); err != nil {
		return "", err
	}
	return mnemonic, nil
}

// RestoreFromSeed derives the identity pair from mnemonic. When the base-layer account
// is already deployed the shielded account is associated too.
func (w *Wallet) RestoreFromSeed(ctx context.Context, mnemonic string, persist bool) (Session, error) {
	origin := SeedOrigin(mnemonic)
	return w.restoreGuarded(ctx, "restore_seed", &origin, persist)
}

// RestoreFromPrivateKey imports a raw base-layer key (63 or 64 hex digits). The shielded
// key is derived from the account's signature.
func (w *Wallet) RestoreFromPrivateKey(ctx context.Context, key string, persist bool) (Session, error) {
	origin := RawKeyOrigin(key)
	return w.restoreGuarded(ctx, "restore_key", &origin, persist)
}

func (w *Wallet) restoreGuarded(ctx context.Context, name string, origin *Origin, persist bool) (s Session, err error) {
	defer origin.Clear()

	r, err := w.ops.begin(name)
	if err != nil {
		return Session{}, err
	}
	defer func() { r.finish(err) }()

	return w.restore(ctx, r, origin, persist)
}

func (w *Wallet) restore(ctx context.Context, r *run, origin *Origin, persist bool) (Session, error) {
	defer origin.Clear()

	var (
		id  *Identity
		err error
	)
	switch origin.Kind {
	case OriginSeed:
		id, err = w.deriver.DeriveIdentityPair(origin.secret)
	case OriginRawKey:
		id, err = w.deriver.FromPrivateKey(origin.String())
	default:
		err = ErrNoKeyMaterial
	}
	if err != nil {
		return Session{}, err
	}

	if persist {
		if err := w.store.Set(ctx, storage.AccountKey, origin.String()); err != nil {
			id.Clear()
			return Session{}, persistenceError("save account key", err)
		}
	}

	account := newBaseAccount(id)
	r.to(OpRefreshing)
	deployed, err := w.isDeployed(ctx, account.Address)
	if err != nil {
		id.Clear()
		return Session{}, chainError("check deployment", "", err)
	}
	account.Deployed = deployed

	previous := w.registry.Session()
	w.registry.replace(Session{Phase: PhaseReady, Origin: origin.Kind, Account: account})
	w.scrub(previous)

	w.logger.Info("Wallet restored",
		zap.String("origin", origin.Kind.String()),
		zap.String("address", account.Address),
		zap.Bool("deployed", deployed))

	if !deployed {
		return w.registry.Session(), nil
	}
	if _, err := w.associate(ctx, r); err != nil {
		return w.registry.Session(), err
	}
	return w.registry.Session(), nil
}

func (w *Wallet) isDeployed(ctx context.Context, address string) (bool, error) {
	_, err := w.chain.ClassHashAt(ctx, address)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, model.ErrContractNotFound):
		return false, nil
	default:
		return false, err
	}
}

// DeployBaseLayerAccount deploys the account contract and waits for finality
func (w *Wallet) DeployBaseLayerAccount(ctx context.Context) (res *Result, err error) {
	r, err := w.ops.begin("deploy")
	if err != nil {
		return nil, err
	}
	defer func() { r.finish(err) }()

	account := w.registry.Session().Account
	if account == nil {
		return nil, ErrNoAccount
	}
	creds, err := account.credentials()
	if err != nil {
		return nil, err
	}
	if account.Deployed {
		return nil, ErrAlreadyDeployed
	}

	r.to(OpSubmitting)
	sub, err := w.chain.DeployAccount(ctx, creds, w.classHash, account.PublicKey, []string{account.PublicKey})
	if err != nil {
		return nil, chainError("deploy", "", err)
	}
	r.submitted(sub.TxHash)
	res = &Result{TxHash: sub.TxHash}

	if _, err := w.chain.WaitForTransaction(ctx, sub.TxHash); err != nil {
		return res, chainError("deploy", sub.TxHash, err)
	}

	w.registry.update(func(s Session) (Session, bool) {
		if s.Account != account {
			return s, false
		}
		deployed := *account
		deployed.Deployed = true
		s.Account = &deployed
		return s, true
	})
	return res, nil
}

// AssociateShieldedAccount derives the shielded key of the deployed account, binds it
// to the ledger contract and refreshes the balance.
func (w *Wallet) AssociateShieldedAccount(ctx context.Context) (snap *Snapshot, err error) {
	r, err := w.ops.begin("associate")
	if err != nil {
		return nil, err
	}
	defer func() { r.finish(err) }()

	return w.associate(ctx, r)
}

func (w *Wallet) associate(ctx context.Context, r *run) (*Snapshot, error) {
	s := w.registry.Session()
	if s.Account == nil {
		return nil, ErrNoAccount
	}
	if !s.Account.Deployed {
		return nil, ErrNotDeployed
	}
	creds, err := s.Account.credentials()
	if err != nil {
		return nil, err
	}

	r.to(OpBuilding)
	id := s.Account.identity
	var key *big.Int
	switch s.Origin {
	case OriginSeed:
		key = id.ShieldedKey()
		if key == nil {
			return nil, ErrNoKeyMaterial
		}
	case OriginRawKey:
		signer := w.signerFor(s.Account.addressFelt(), id.BaseKey())
		key, err = w.deriver.DeriveShieldedKeyFromSignature(ctx, s.Account.addressFelt(), signer)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoKeyMaterial
	}

	ledger, err := w.openLedger(creds, key)
	if err != nil {
		return nil, fmt.Errorf("failed to open shielded account: %w", err)
	}
	shielded := &ShieldedAccount{
		Address:  ledger.Address(),
		Contract: w.tongoContract,
		ledger:   ledger,
	}

	bound := w.registry.update(func(cur Session) (Session, bool) {
		if cur.Account != s.Account {
			return cur, false
		}
		cur.Shielded = shielded
		cur.Balance = nil
		return cur, true
	})
	if !bound {
		return nil, ErrNoAccount
	}
	w.logger.Info("Shielded account associated", zap.String("shielded_address", shielded.Address))

	r.to(OpRefreshing)
	return w.refresher.Refresh(ctx)
}

// Refresh reloads the shielded balance from the ledger
func (w *Wallet) Refresh(ctx context.Context) (*Snapshot, error) {
	return w.refresher.Refresh(ctx)
}

// Fund moves amount from the public STRK balance into the shielded account
func (w *Wallet) Fund(ctx context.Context, amount *big.Int) (res *Result, err error) {
	units, err := CheckAmount(amount)
	if err != nil {
		return nil, err
	}

	r, err := w.ops.begin("fund")
	if err != nil {
		return nil, err
	}
	defer func() { r.finish(err) }()

	s, err := w.shieldedSession()
	if err != nil {
		return nil, err
	}
	return w.submit(ctx, r, "fund", s, func(l Ledger) (*model.LedgerOperation, error) {
		return l.Fund(ctx, units)
	})
}

// Transfer sends amount to a contact name or base58 shielded address
func (w *Wallet) Transfer(ctx context.Context, amount *big.Int, recipient string) (res *Result, err error) {
	units, err := CheckAmount(amount)
	if err != nil {
		return nil, err
	}

	r, err := w.ops.begin("transfer")
	if err != nil {
		return nil, err
	}
	defer func() { r.finish(err) }()

	to, err := w.book.Resolve(recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecipient, err)
	}
	s, err := w.shieldedSession()
	if err != nil {
		return nil, err
	}
	if err := checkSpendable(s.Balance, units); err != nil {
		return nil, err
	}
	return w.submit(ctx, r, "transfer", s, func(l Ledger) (*model.LedgerOperation, error) {
		return l.Transfer(ctx, to.Address, units)
	})
}

// Rollover moves the pending balance into the spendable one
func (w *Wallet) Rollover(ctx context.Context) (res *Result, err error) {
	r, err := w.ops.begin("rollover")
	if err != nil {
		return nil, err
	}
	defer func() { r.finish(err) }()

	s, err := w.shieldedSession()
	if err != nil {
		return nil, err
	}
	if s.Balance != nil && s.Balance.Pending == 0 {
		return nil, ErrNothingToRollover
	}
	return w.submit(ctx, r, "rollover", s, func(l Ledger) (*model.LedgerOperation, error) {
		return l.Rollover(ctx)
	})
}

// Withdraw moves amount from the shielded account to the wallet's own base-layer account
func (w *Wallet) Withdraw(ctx context.Context, amount *big.Int) (res *Result, err error) {
	units, err := CheckAmount(amount)
	if err != nil {
		return nil, err
	}

	r, err := w.ops.begin("withdraw")
	if err != nil {
		return nil, err
	}
	defer func() { r.finish(err) }()

	s, err := w.shieldedSession()
	if err != nil {
		return nil, err
	}
	if err := checkSpendable(s.Balance, units); err != nil {
		return nil, err
	}
	return w.submit(ctx, r, "withdraw", s, func(l Ledger) (*model.LedgerOperation, error) {
		return l.Withdraw(ctx, s.Account.Address, units)
	})
}

// EmergencyExit withdraws the whole shielded position to the wallet's own base-layer
// account through the ledger's ragequit path.
func (w *Wallet) EmergencyExit(ctx context.Context) (res *Result, err error) {
	r, err := w.ops.begin("emergency_exit")
	if err != nil {
		return nil, err
	}
	defer func() { r.finish(err) }()

	s, err := w.shieldedSession()
	if err != nil {
		return nil, err
	}
	snap := s.Balance
	if snap == nil {
		// spendable > 0 is a precondition, so an unknown balance is read first
		if snap, err = w.refresher.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	if snap.Spendable == 0 {
		return nil, fmt.Errorf("%w: nothing to exit", ErrInsufficientBalance)
	}
	return w.submit(ctx, r, "emergency_exit", s, func(l Ledger) (*model.LedgerOperation, error) {
		return l.Ragequit(ctx, s.Account.Address)
	})
}

func (w *Wallet) shieldedSession() (Session, error) {
	s := w.registry.Session()
	switch {
	case s.Account == nil:
		return s, ErrNoAccount
	case s.Shielded == nil:
		return s, ErrNoShieldedAccount
	}
	return s, nil
}

// checkSpendable fails fast against the last snapshot. The ledger still enforces the
// balance on chain; without a snapshot there is nothing to check against.
func checkSpendable(snap *Snapshot, amount uint32) error {
	if snap == nil || amount <= snap.Spendable {
		return nil
	}
	return fmt.Errorf("%w: %d requested, %d spendable", ErrInsufficientBalance, amount, snap.Spendable)
}

// submit builds a ledger operation, executes it as one multicall, waits for finality
// and refreshes. A failed refresh still returns the transaction hash.
func (w *Wallet) submit(ctx context.Context, r *run, op string, s Session, build func(Ledger) (*model.LedgerOperation, error)) (*Result, error) {
	creds, err := s.Account.credentials()
	if err != nil {
		return nil, err
	}

	r.to(OpBuilding)
	prepared, err := build(s.Shielded.ledger)
	if err != nil {
		return nil, chainError(op, "", err)
	}

	r.to(OpSubmitting)
	sub, err := w.chain.Execute(ctx, creds, prepared.Calls())
	if err != nil {
		return nil, chainError(op, "", err)
	}
	r.submitted(sub.TxHash)
	res := &Result{TxHash: sub.TxHash}

	if _, err := w.chain.WaitForTransaction(ctx, sub.TxHash); err != nil {
		return res, chainError(op, sub.TxHash, err)
	}

	r.to(OpRefreshing)
	snap, err := w.refresher.Refresh(ctx)
	if err != nil {
		return res, chainError(op, sub.TxHash, err)
	}
	res.Snapshot = snap
	return res, nil
}

// PublicBalance returns the STRK balance of the base-layer account in base units
func (w *Wallet) PublicBalance(ctx context.Context) (*big.Int, error) {
	account := w.registry.Session().Account
	if account == nil {
		return nil, ErrNoAccount
	}
	balance, err := w.chain.ERC20Balance(ctx, w.tokenAddress, account.Address)
	if err != nil {
		return nil, chainError("public balance", "", err)
	}
	return balance, nil
}

// BackupPhrase returns the persisted recovery phrase of a seed wallet
func (w *Wallet) BackupPhrase(ctx context.Context) (string, error) {
	s := w.registry.Session()
	if s.Account == nil {
		return "", ErrNoAccount
	}
	if s.Origin != OriginSeed {
		return "", fmt.Errorf("%w: wallet was imported from a private key", ErrNoKeyMaterial)
	}

	stored, ok, err := w.store.Get(ctx, storage.AccountKey)
	if err != nil {
		return "", persistenceError("load account key", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: recovery phrase is not persisted", ErrNoKeyMaterial)
	}
	return stored, nil
}

// DeleteWallet purges the persisted recovery material, then resets the session.
// Contacts are kept.
func (w *Wallet) DeleteWallet(ctx context.Context) (err error) {
	r, err := w.ops.begin("delete")
	if err != nil {
		return err
	}
	defer func() { r.finish(err) }()

	previous := w.registry.Session()
	if previous.Account == nil {
		return ErrNoAccount
	}
	if err := w.store.Delete(ctx, storage.AccountKey); err != nil {
		return persistenceError("delete account key", err)
	}

	w.registry.replace(Session{Phase: PhaseReady})
	w.scrub(previous)
	w.logger.Info("Wallet deleted", zap.String("address", previous.Account.Address))
	return nil
}

// scrub zeroes the keys of a session that is no longer current
func (w *Wallet) scrub(s Session) {
	if s.Account != nil && s.Account.identity != nil {
		if cur := w.registry.Session().Account; cur != nil && cur.identity == s.Account.identity {
			return
		}
		s.Account.identity.Clear()
	}
}
