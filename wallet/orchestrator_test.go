package wallet

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/AlexZinkM/tongo-wallet/internal/model"
	"github.com/AlexZinkM/tongo-wallet/internal/storage"
	"github.com/stretchr/testify/require"
)

const testRawKey = "0x111111111111111111111111111111111111111111111111111111111111111"

func TestAmountOutOfRangeMakesNoCalls(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ready(t, model.LedgerState{Balance: 100})

	chainCalls, ledgerCalls := f.chain.callCount(), f.ledger.calls
	bad := []*big.Int{
		big.NewInt(-1),
		new(big.Int).Lsh(big.NewInt(1), 32),
		nil,
	}
	for _, amount := range bad {
		_, err := f.wallet.Fund(ctx, amount)
		require.ErrorIs(t, err, ErrAmountOutOfRange)

		_, err = f.wallet.Transfer(ctx, amount, testAddress(7))
		require.ErrorIs(t, err, ErrAmountOutOfRange)

		_, err = f.wallet.Withdraw(ctx, amount)
		require.ErrorIs(t, err, ErrAmountOutOfRange)
	}

	require.Equal(t, chainCalls, f.chain.callCount())
	require.Equal(t, ledgerCalls, f.ledger.calls)
	require.Equal(t, OpDone, f.wallet.Operation().State)
}

func TestFundSnapshotIsLedgerState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ready(t, model.LedgerState{})

	// the ledger moves on chain; the wallet must not add 40 itself
	f.ledger.set(model.LedgerState{Balance: 40, Pending: 0, Nonce: 3})

	res, err := f.wallet.Fund(ctx, big.NewInt(40))
	require.NoError(t, err)
	require.NotEmpty(t, res.TxHash)
	require.Equal(t, uint32(40), res.Snapshot.Spendable)
	require.Equal(t, uint32(0), res.Snapshot.Pending)
	require.Equal(t, uint64(3), res.Snapshot.Nonce)
	require.Equal(t, "2", res.Snapshot.SpendableDisplay)
	require.Equal(t, "0", res.Snapshot.PendingDisplay)
	require.Same(t, res.Snapshot, f.wallet.Session().Balance)

	require.Len(t, f.chain.executed, 1)
	require.Len(t, f.chain.executed[0], 2, "approve and fund go out as one multicall")
	require.Equal(t, testToken, f.chain.executed[0][0].To)
}

func TestRestoreDeployAssociate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, err := f.wallet.RestoreFromSeed(ctx, mnemonicA, true)
	require.NoError(t, err)
	require.Equal(t, StateNotDeployed, s.State())
	require.Nil(t, s.Shielded)
	require.Equal(t, OriginSeed, s.Origin)

	stored, ok, err := f.store.Get(ctx, storage.AccountKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mnemonicA, stored)

	res, err := f.wallet.DeployBaseLayerAccount(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, res.TxHash)
	require.Equal(t, StateNoShieldedAccount, f.wallet.Registry().State())
	require.True(t, f.wallet.Session().Account.Deployed)
	require.False(t, s.Account.Deployed, "earlier session records are never mutated")

	snap, err := f.wallet.AssociateShieldedAccount(ctx)
	require.NoError(t, err)
	require.Equal(t, StateReady, f.wallet.Registry().State())
	require.Equal(t, uint32(0), snap.Spendable)
	require.Equal(t, uint32(0), snap.Pending)
	require.Equal(t, uint64(0), snap.Nonce)
	require.Equal(t, testContract, f.wallet.Session().Shielded.Contract)
}

func TestDeleteThenRestoreDifferentSeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ready(t, model.LedgerState{Balance: 5})

	before := f.wallet.Session()
	oldShielded := before.Shielded.Address

	require.NoError(t, f.wallet.DeleteWallet(ctx))
	require.Equal(t, StateNoAccount, f.wallet.Registry().State())
	require.Nil(t, f.wallet.Session().Balance)
	require.Nil(t, before.Account.identity.BaseKey(), "keys of the deleted wallet are scrubbed")

	_, ok, err := f.store.Get(ctx, storage.AccountKey)
	require.NoError(t, err)
	require.False(t, ok)

	f.chain.deployed[f.address(t, mnemonicB)] = true
	s, err := f.wallet.RestoreFromSeed(ctx, mnemonicB, true)
	require.NoError(t, err)
	require.Equal(t, StateReady, s.State())
	require.NotEqual(t, oldShielded, s.Shielded.Address)
	require.NotEqual(t, before.Account.Address, s.Account.Address)
}

func TestDeleteWithoutAccount(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.wallet.DeleteWallet(context.Background()), ErrNoAccount)
}

func TestSecondOperationIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ready(t, model.LedgerState{Balance: 10, Pending: 2})

	f.chain.block = make(chan struct{})
	f.chain.waiting = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.wallet.Fund(ctx, big.NewInt(1))
		done <- err
	}()
	<-f.chain.waiting

	require.Equal(t, OpAwaitingFinality, f.wallet.Operation().State)
	require.Equal(t, "fund", f.wallet.Operation().Name)

	_, err := f.wallet.Rollover(ctx)
	require.ErrorIs(t, err, ErrOperationInProgress)
	require.ErrorIs(t, f.wallet.DeleteWallet(ctx), ErrOperationInProgress)

	close(f.chain.block)
	require.NoError(t, <-done)

	f.chain.mu.Lock()
	f.chain.block, f.chain.waiting = nil, nil
	f.chain.mu.Unlock()

	_, err = f.wallet.Rollover(ctx)
	require.NoError(t, err)
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ready(t, model.LedgerState{Balance: 10, Pending: 5, Nonce: 1})
	before := f.wallet.Session().Balance

	f.ledger.failState(errors.New("node unavailable"))

	res, err := f.wallet.Rollover(ctx)
	require.Error(t, err)
	require.True(t, IsChainError(err))
	require.NotNil(t, res)
	require.NotEmpty(t, res.TxHash)

	var ce *ChainError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, res.TxHash, ce.TxHash)

	require.Same(t, before, f.wallet.Session().Balance)
	require.Equal(t, OpFailed, f.wallet.Operation().State)
	require.Equal(t, res.TxHash, f.wallet.Operation().TxHash)
}

func TestChainFailureBeforeSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ready(t, model.LedgerState{Balance: 10})
	f.chain.executeErr = errors.New("fee estimation failed")

	res, err := f.wallet.Withdraw(ctx, big.NewInt(1))
	require.True(t, IsChainError(err))
	require.Nil(t, res)
}

func TestFinalityFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ready(t, model.LedgerState{Balance: 10})
	f.chain.waitErr = errors.New("transaction reverted")

	res, err := f.wallet.Fund(ctx, big.NewInt(1))
	require.True(t, IsChainError(err))
	require.NotEmpty(t, res.TxHash)
	require.Nil(t, res.Snapshot)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ready(t, model.LedgerState{Balance: 10, Nonce: 1})

	_, err := f.wallet.Transfer(ctx, big.NewInt(11), testAddress(7))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = f.wallet.Transfer(ctx, big.NewInt(5), "not-base58!!")
	require.ErrorIs(t, err, ErrInvalidRecipient)
	require.ErrorIs(t, err, ErrInvalidAddress)
	require.Empty(t, f.chain.executed)

	bob := testAddress(11)
	require.NoError(t, f.wallet.Book().Add(ctx, Contact{Name: "Bob", Address: bob}))

	f.ledger.set(model.LedgerState{Balance: 5, Nonce: 2})
	res, err := f.wallet.Transfer(ctx, big.NewInt(5), "Bob")
	require.NoError(t, err)
	require.Equal(t, bob, f.ledger.lastTo)
	require.Equal(t, uint32(5), res.Snapshot.Spendable)
}

func TestRolloverNeedsPending(t *testing.T) {
	f := newFixture(t)
	f.ready(t, model.LedgerState{Balance: 10})

	_, err := f.wallet.Rollover(context.Background())
	require.ErrorIs(t, err, ErrNothingToRollover)
	require.Empty(t, f.chain.executed)
}

func TestWithdrawAndExitGoToOwnAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ready(t, model.LedgerState{Balance: 7, Nonce: 1})
	own := f.wallet.Session().Account.Address

	_, err := f.wallet.Withdraw(ctx, big.NewInt(8))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = f.wallet.Withdraw(ctx, big.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, own, f.ledger.lastTo)

	f.ledger.set(model.LedgerState{Balance: 0, Nonce: 3})
	_, err = f.wallet.EmergencyExit(ctx)
	require.NoError(t, err)
	require.Equal(t, own, f.ledger.lastTo)

	_, err = f.wallet.EmergencyExit(ctx)
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestExitWithoutSnapshotReadsBalanceFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.chain.deployed[f.address(t, mnemonicA)] = true

	// association succeeds but its refresh does not
	f.ledger.failState(errors.New("node unavailable"))
	_, err := f.wallet.RestoreFromSeed(ctx, mnemonicA, false)
	require.Error(t, err)
	require.NotNil(t, f.wallet.Session().Shielded)
	require.Nil(t, f.wallet.Session().Balance)

	_, err = f.wallet.EmergencyExit(ctx)
	require.True(t, IsChainError(err))
	require.Zero(t, f.ledger.calls)

	f.ledger.failState(nil)
	f.ledger.set(model.LedgerState{Balance: 0, Pending: 4})
	_, err = f.wallet.EmergencyExit(ctx)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Zero(t, f.ledger.calls)
	require.Empty(t, f.chain.executed)

	f.ledger.set(model.LedgerState{Balance: 3})
	_, err = f.wallet.EmergencyExit(ctx)
	require.NoError(t, err)
	require.Equal(t, f.wallet.Session().Account.Address, f.ledger.lastTo)
}

func TestOperationsNeedShieldedAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.wallet.Fund(ctx, big.NewInt(1))
	require.ErrorIs(t, err, ErrNoAccount)

	_, err = f.wallet.RestoreFromSeed(ctx, mnemonicA, false)
	require.NoError(t, err)

	_, err = f.wallet.Rollover(ctx)
	require.ErrorIs(t, err, ErrNoShieldedAccount)

	_, err = f.wallet.AssociateShieldedAccount(ctx)
	require.ErrorIs(t, err, ErrNotDeployed)

	_, err = f.wallet.Refresh(ctx)
	require.ErrorIs(t, err, ErrNoShieldedAccount)
}

func TestDeployPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.wallet.DeployBaseLayerAccount(ctx)
	require.ErrorIs(t, err, ErrNoAccount)

	f.ready(t, model.LedgerState{})
	_, err = f.wallet.DeployBaseLayerAccount(ctx)
	require.ErrorIs(t, err, ErrAlreadyDeployed)
	require.Zero(t, f.chain.deploys)
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		f := newFixture(t)
		require.Equal(t, StateUninitialized, f.wallet.Registry().State())
		require.NoError(t, f.wallet.Initialize(ctx))
		require.Equal(t, StateNoAccount, f.wallet.Registry().State())
	})

	t.Run("persisted seed", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Set(ctx, storage.AccountKey, mnemonicA))
		f.chain.deployed[f.address(t, mnemonicA)] = true

		require.NoError(t, f.wallet.Initialize(ctx))
		require.Equal(t, StateReady, f.wallet.Registry().State())
		require.Equal(t, OriginSeed, f.wallet.Session().Origin)
	})

	t.Run("persisted raw key", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Set(ctx, storage.AccountKey, testRawKey))

		require.NoError(t, f.wallet.Initialize(ctx))
		require.Equal(t, StateNotDeployed, f.wallet.Registry().State())
		require.Equal(t, OriginRawKey, f.wallet.Session().Origin)
	})

	t.Run("corrupt material", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Set(ctx, storage.AccountKey, "not a mnemonic"))

		require.ErrorIs(t, f.wallet.Initialize(ctx), ErrInvalidMnemonic)
		require.Equal(t, StateUninitialized, f.wallet.Registry().State())
	})
}

func TestRestoreFromPrivateKeyIsDeterministic(t *testing.T) {
	ctx := context.Background()

	var shielded []string
	for i := 0; i < 2; i++ {
		f := newFixture(t)
		s, err := f.wallet.RestoreFromPrivateKey(ctx, testRawKey, true)
		require.NoError(t, err)
		require.Equal(t, StateNotDeployed, s.State())

		f.chain.deployed[s.Account.Address] = true
		_, err = f.wallet.DeployBaseLayerAccount(ctx)
		require.NoError(t, err)

		_, err = f.wallet.AssociateShieldedAccount(ctx)
		require.NoError(t, err)
		shielded = append(shielded, f.wallet.Session().Shielded.Address)

		_, err = f.wallet.BackupPhrase(ctx)
		require.ErrorIs(t, err, ErrNoKeyMaterial)
	}
	require.Equal(t, shielded[0], shielded[1])

	f := newFixture(t)
	_, err := f.wallet.RestoreFromPrivateKey(ctx, "0x1234", false)
	require.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestCreateWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.wallet.CreateWallet(ctx, 15)
	require.ErrorIs(t, err, ErrInvalidMnemonic)

	phrase, err := f.wallet.CreateWallet(ctx, 24)
	require.NoError(t, err)
	require.Len(t, strings.Fields(phrase), 24)
	require.Equal(t, StateNotDeployed, f.wallet.Registry().State())

	backup, err := f.wallet.BackupPhrase(ctx)
	require.NoError(t, err)
	require.Equal(t, phrase, backup)
}

func TestPublicBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.wallet.PublicBalance(ctx)
	require.ErrorIs(t, err, ErrNoAccount)

	_, err = f.wallet.RestoreFromSeed(ctx, mnemonicA, false)
	require.NoError(t, err)
	balance, err := f.wallet.PublicBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, "1500000000000000000", balance.String())
}

func TestPersistenceFailureLeavesState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ready(t, model.LedgerState{})

	f.wallet.store = failingKV{}
	require.ErrorIs(t, f.wallet.DeleteWallet(ctx), ErrPersistenceUnavailable)
	require.Equal(t, StateReady, f.wallet.Registry().State())

	_, err := f.wallet.RestoreFromSeed(ctx, mnemonicB, true)
	require.ErrorIs(t, err, ErrPersistenceUnavailable)
	require.Equal(t, StateReady, f.wallet.Registry().State())
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, storage.ErrUnavailable
}
func (failingKV) Set(context.Context, string, string) error { return storage.ErrUnavailable }
func (failingKV) Delete(context.Context, string) error      { return storage.ErrUnavailable }
