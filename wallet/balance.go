package wallet

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/AlexZinkM/tongo-wallet/internal/common"
	"github.com/AlexZinkM/tongo-wallet/internal/model"

	"github.com/lightningnetwork/lnd/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Snapshot is the shielded balance exactly as the ledger reported it on the last
// successful refresh. Display fields are in STRK.
type Snapshot struct {
	Spendable        uint32    `json:"spendable"`
	Pending          uint32    `json:"pending"`
	Nonce            uint64    `json:"nonce"`
	Rate             *big.Int  `json:"rate"`
	SpendableDisplay string    `json:"spendableDisplay"`
	PendingDisplay   string    `json:"pendingDisplay"`
	FiatPrice        string    `json:"fiatPrice,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Refresher pulls the shielded balance from the ledger into the registry
type Refresher struct {
	registry *Registry
	prices   PriceSource
	currency string
	clock    clock.Clock
	logger   *zap.Logger
}

// NewRefresher creates a refresher. prices may be nil.
func NewRefresher(registry *Registry, prices PriceSource, currency string, clk clock.Clock, logger *zap.Logger) *Refresher {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		registry: registry,
		prices:   prices,
		currency: currency,
		clock:    clk,
		logger:   logger,
	}
}

// Refresh reads state and rate from the ledger and replaces the snapshot. On failure
// the previous snapshot stays.
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	shielded := r.registry.Session().Shielded
	if shielded == nil {
		return nil, ErrNoShieldedAccount
	}

	var (
		state *model.LedgerState
		rate  *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		state, err = shielded.ledger.State(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rate, err = shielded.ledger.Rate(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, chainError("refresh", "", err)
	}

	snap := &Snapshot{
		Spendable:        state.Balance,
		Pending:          state.Pending,
		Nonce:            state.Nonce,
		Rate:             rate,
		SpendableDisplay: toDisplay(state.Balance, rate),
		PendingDisplay:   toDisplay(state.Pending, rate),
		FiatPrice:        r.fiatPrice(ctx),
		UpdatedAt:        r.clock.Now(),
	}

	applied := r.registry.update(func(s Session) (Session, bool) {
		if s.Shielded != shielded {
			return s, false
		}
		s.Balance = snap
		return s, true
	})
	if !applied {
		return nil, fmt.Errorf("%w: account changed during refresh", ErrNoShieldedAccount)
	}

	r.logger.Debug("Balance refreshed",
		zap.Uint32("spendable", snap.Spendable),
		zap.Uint32("pending", snap.Pending),
		zap.Uint64("nonce", snap.Nonce))
	return snap, nil
}

func (r *Refresher) fiatPrice(ctx context.Context) string {
	if r.prices == nil || r.currency == "" {
		return ""
	}
	price, err := r.prices.STRKPrice(ctx, r.currency)
	if err != nil {
		r.logger.Warn("Failed to get STRK price", zap.Error(err))
		return ""
	}
	return price
}

func toDisplay(units uint32, rate *big.Int) string {
	if rate == nil {
		return "0"
	}
	v := new(big.Int).Mul(big.NewInt(int64(units)), rate)
	return common.FormatUnits(v, common.STRKDecimals)
}
