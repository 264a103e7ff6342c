package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
	"github.com/AlexZinkM/tongo-wallet/internal/model"
	"github.com/AlexZinkM/tongo-wallet/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testClassHash = "0x540d7f5ec7ecf317e68d48564934cb99259781b1ee3cedbbc37ec5337f8e688"
	testContract  = "0x00b4cca30f0f641e01140c1c388f55641f1c3fe5515484e622b6cb91d8cee585"
	testToken     = "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"

	mnemonicA = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	mnemonicB = "legal winner thank year wave sausage worth useful legal winner thank yellow"
)

// fakeChain deploys instantly and records every call it receives.
type fakeChain struct {
	mu       sync.Mutex
	deployed map[string]bool
	executed [][]model.Call
	deploys  int
	calls    int
	txCount  int

	waitErr    error
	executeErr error
	// block, when set, holds WaitForTransaction until closed
	block   chan struct{}
	waiting chan struct{}
}

func newFakeChain() *fakeChain {
	return &fakeChain{deployed: make(map[string]bool)}
}

func (c *fakeChain) nextTx() string {
	c.txCount++
	return fmt.Sprintf("0x%x", 0xabc0+c.txCount)
}

func (c *fakeChain) DeployAccount(_ context.Context, creds model.AccountCredentials, _, _ string, _ []string) (*model.Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.deploys++
	c.deployed[creds.Address] = true
	return &model.Submission{TxHash: c.nextTx(), Address: creds.Address}, nil
}

func (c *fakeChain) Execute(_ context.Context, _ model.AccountCredentials, calls []model.Call) (*model.Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.executeErr != nil {
		return nil, c.executeErr
	}
	c.executed = append(c.executed, calls)
	return &model.Submission{TxHash: c.nextTx()}, nil
}

func (c *fakeChain) WaitForTransaction(ctx context.Context, txHash string) (*model.Receipt, error) {
	c.mu.Lock()
	c.calls++
	block, waiting, err := c.block, c.waiting, c.waitErr
	c.mu.Unlock()

	if block != nil {
		if waiting != nil {
			close(waiting)
		}
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &model.Receipt{
		TxHash:          txHash,
		FinalityStatus:  model.FinalityAcceptedOnL2,
		ExecutionStatus: model.ExecutionSucceeded,
	}, nil
}

func (c *fakeChain) ClassHashAt(_ context.Context, address string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if !c.deployed[address] {
		return "", model.ErrContractNotFound
	}
	return testClassHash, nil
}

func (c *fakeChain) ERC20Balance(_ context.Context, _, _ string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return big.NewInt(1_500_000_000_000_000_000), nil
}

func (c *fakeChain) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeLedger reports whatever state the test sets; it never computes balances.
type fakeLedger struct {
	mu       sync.Mutex
	address  string
	state    model.LedgerState
	rate     *big.Int
	stateErr error
	calls    int
	lastTo   string
}

func (l *fakeLedger) Address() string { return l.address }

func (l *fakeLedger) op(to string) (*model.LedgerOperation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.lastTo = to
	return &model.LedgerOperation{Call: model.Call{To: testContract, Selector: "0x1"}}, nil
}

func (l *fakeLedger) Fund(context.Context, uint32) (*model.LedgerOperation, error) {
	op, err := l.op("")
	if err == nil {
		op.Approve = &model.Call{To: testToken, Selector: "0x2"}
	}
	return op, err
}

func (l *fakeLedger) Transfer(_ context.Context, to string, _ uint32) (*model.LedgerOperation, error) {
	return l.op(to)
}

func (l *fakeLedger) Rollover(context.Context) (*model.LedgerOperation, error) { return l.op("") }

func (l *fakeLedger) Withdraw(_ context.Context, to string, _ uint32) (*model.LedgerOperation, error) {
	return l.op(to)
}

func (l *fakeLedger) Ragequit(_ context.Context, to string) (*model.LedgerOperation, error) {
	return l.op(to)
}

func (l *fakeLedger) State(context.Context) (*model.LedgerState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stateErr != nil {
		return nil, l.stateErr
	}
	st := l.state
	return &st, nil
}

func (l *fakeLedger) Rate(context.Context) (*big.Int, error) {
	return l.rate, nil
}

func (l *fakeLedger) set(state model.LedgerState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = state
}

func (l *fakeLedger) failState(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stateErr = err
}

type fixture struct {
	wallet *Wallet
	chain  *fakeChain
	store  *storage.Memory
	ledger *fakeLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	deriver, err := NewDeriver(testClassHash, "SN_SEPOLIA")
	require.NoError(t, err)

	f := &fixture{
		chain: newFakeChain(),
		store: storage.NewMemory(),
		// 0.05 STRK per unit
		ledger: &fakeLedger{rate: big.NewInt(50_000_000_000_000_000)},
	}
	logger := zaptest.NewLogger(t)

	f.wallet, err = New(Config{
		Chain: f.chain,
		OpenLedger: func(_ model.AccountCredentials, key *big.Int) (Ledger, error) {
			p := crypto.PublicPoint(key)
			f.ledger.address = crypto.EncodeAddress(&p)
			return f.ledger, nil
		},
		Store:         f.store,
		Deriver:       deriver,
		Book:          NewAddressBook(f.store, logger),
		ClassHash:     testClassHash,
		TongoContract: testContract,
		TokenAddress:  testToken,
		Logger:        logger,
	})
	require.NoError(t, err)
	return f
}

// ready restores mnemonicA on a deployed account with the given shielded state.
func (f *fixture) ready(t *testing.T, state model.LedgerState) {
	t.Helper()

	f.chain.deployed[f.address(t, mnemonicA)] = true
	f.ledger.set(state)

	_, err := f.wallet.RestoreFromSeed(context.Background(), mnemonicA, false)
	require.NoError(t, err)
	require.Equal(t, StateReady, f.wallet.Registry().State())
}

// address is the base-layer account address of mnemonic
func (f *fixture) address(t *testing.T, mnemonic string) string {
	t.Helper()
	id, err := f.wallet.deriver.DeriveIdentityPair([]byte(mnemonic))
	require.NoError(t, err)
	defer id.Clear()
	return crypto.FeltHex(id.Address)
}

func testAddress(k int64) string {
	p := crypto.PublicPoint(big.NewInt(k))
	return crypto.EncodeAddress(&p)
}
