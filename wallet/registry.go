package wallet

import (
	"math/big"
	"sync"

	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
	"github.com/AlexZinkM/tongo-wallet/internal/model"
)

// Phase is the lifecycle of the session record
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseReady
)

// State flattens a session into the states a caller can observe
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateNoAccount
	StateNotDeployed
	StateNoShieldedAccount
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateNoAccount:
		return "no_account"
	case StateNotDeployed:
		return "not_deployed"
	case StateNoShieldedAccount:
		return "no_shielded_account"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// MarshalText renders the state name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BaseAccount is the Starknet account of the wallet
type BaseAccount struct {
	Address   string
	PublicKey string
	Deployed  bool

	identity *Identity
}

func newBaseAccount(id *Identity) *BaseAccount {
	return &BaseAccount{
		Address:   crypto.FeltHex(id.Address),
		PublicKey: crypto.FeltHex(id.PublicKey),
		identity:  id,
	}
}

func (a *BaseAccount) credentials() (model.AccountCredentials, error) {
	if a.identity == nil || a.identity.BaseKey() == nil {
		return model.AccountCredentials{}, ErrNoKeyMaterial
	}
	return model.AccountCredentials{
		Address:    a.Address,
		PrivateKey: crypto.FeltHex(a.identity.BaseKey()),
	}, nil
}

func (a *BaseAccount) addressFelt() *big.Int {
	return a.identity.Address
}

// ShieldedAccount is the Tongo account bound to one ledger contract
type ShieldedAccount struct {
	Address  string
	Contract string

	ledger Ledger
}

// Session is one immutable snapshot of the registry record. Pointer fields are shared
// between snapshots and must never be mutated in place.
type Session struct {
	Phase    Phase
	Origin   OriginKind
	Account  *BaseAccount
	Shielded *ShieldedAccount
	Balance  *Snapshot
}

// State reports which lifecycle state the session is in
func (s Session) State() State {
	switch {
	case s.Phase == PhaseUninitialized:
		return StateUninitialized
	case s.Phase == PhaseInitializing:
		return StateInitializing
	case s.Account == nil:
		return StateNoAccount
	case !s.Account.Deployed:
		return StateNotDeployed
	case s.Shielded == nil:
		return StateNoShieldedAccount
	default:
		return StateReady
	}
}

// Registry holds the session of one wallet. Records are only ever replaced whole.
type Registry struct {
	mu       sync.RWMutex
	session  Session
	watchers map[chan Session]struct{}
}

// NewRegistry returns an uninitialized registry
func NewRegistry() *Registry {
	return &Registry{watchers: make(map[chan Session]struct{})}
}

// Session returns the current record
func (r *Registry) Session() Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// State is shorthand for Session().State()
func (r *Registry) State() State {
	return r.Session().State()
}

func (r *Registry) replace(s Session) {
	r.update(func(Session) (Session, bool) { return s, true })
}

// update applies fn under the write lock. fn returns false to leave the record as is.
func (r *Registry) update(fn func(Session) (Session, bool)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, ok := fn(r.session)
	if !ok {
		return false
	}
	r.session = next
	for ch := range r.watchers {
		notify(ch, next)
	}
	return true
}

// notify keeps only the newest record in a watcher's buffer
func notify(ch chan Session, s Session) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// Subscribe delivers every replaced record. Slow readers only see the latest one.
// Call the returned func to stop.
func (r *Registry) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)

	r.mu.Lock()
	r.watchers[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.watchers, ch)
			r.mu.Unlock()
		})
	}
}
