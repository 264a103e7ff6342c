// Command walletd serves the wallet API on localhost.
//
// @title        Tongo Wallet API
// @version      1.0
// @description  Local wallet service for a Starknet account and its Tongo shielded account.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/AlexZinkM/tongo-wallet/docs"
	"github.com/AlexZinkM/tongo-wallet/internal/api"
	"github.com/AlexZinkM/tongo-wallet/internal/client"
	"github.com/AlexZinkM/tongo-wallet/internal/config"
	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
	"github.com/AlexZinkM/tongo-wallet/internal/handler"
	"github.com/AlexZinkM/tongo-wallet/internal/model"
	"github.com/AlexZinkM/tongo-wallet/internal/storage"
	"github.com/AlexZinkM/tongo-wallet/wallet"

	"github.com/lightningnetwork/lnd/clock"
	"go.uber.org/zap"
)

const initRetryInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Init(); err != nil {
		return err
	}
	cfg := config.Get()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := config.PromptForPassword("Keystore password: "); err != nil {
		return err
	}
	if err := checkPassword(cfg.KeystorePath); err != nil {
		return err
	}

	keystore := storage.NewKeystore(cfg.KeystorePath, cfg.ChainID, config.GetPasswordBytes, crypto.DefaultScryptParams)
	var fallback storage.KV = storage.NewMemory()
	if cfg.FallbackDBPath != "" {
		db, err := storage.OpenBolt(cfg.FallbackDBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		fallback = db
	}
	store := storage.New(keystore, fallback, logger)

	clk := clock.NewDefaultClock()
	node := client.NewStarknetClient(config.GetStarknetRPCURL(),
		client.WithClock(clk),
		client.WithPollInterval(cfg.FinalityPollInterval),
		client.WithLogger(logger))
	bridge, err := client.NewBridgeClient(cfg.BridgeURL)
	if err != nil {
		return err
	}

	deriver, err := wallet.NewDeriver(cfg.AccountClassHash, cfg.ChainID)
	if err != nil {
		return err
	}
	registry := wallet.NewRegistry()
	book := wallet.NewAddressBook(store, logger.Named("contacts"))

	engine, err := wallet.New(wallet.Config{
		Chain: client.NewGateway(node, bridge),
		OpenLedger: func(owner model.AccountCredentials, key *big.Int) (wallet.Ledger, error) {
			return bridge.Ledger(cfg.TongoContract, owner, key), nil
		},
		Store:         store,
		Deriver:       deriver,
		Registry:      registry,
		Book:          book,
		Prices:        client.NewCoinGeckoClient(cfg.PriceAPIURL),
		ClassHash:     cfg.AccountClassHash,
		TongoContract: cfg.TongoContract,
		TokenAddress:  cfg.STRKTokenAddress,
		FiatCurrency:  cfg.FiatCurrency,
		Clock:         clk,
		Logger:        logger.Named("wallet"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checkChainID(ctx, node, cfg.ChainID, logger)
	go watchSession(ctx, registry, logger)
	go initialize(ctx, engine, clk, logger)

	server := &http.Server{
		Addr: net.JoinHostPort("127.0.0.1", cfg.Port),
		Handler: api.SetupRouter(
			handler.NewWalletHandler(engine, cfg.FiatCurrency, logger.Named("http")),
			handler.NewContactsHandler(book, logger.Named("http")),
			logger.Named("http"),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

// initialize loads the persisted wallet, retrying while the node is unreachable
func initialize(ctx context.Context, engine *wallet.Wallet, clk clock.Clock, logger *zap.Logger) {
	for {
		err := engine.Initialize(ctx)
		if err == nil {
			return
		}
		if !wallet.IsChainError(err) || engine.Session().Phase == wallet.PhaseReady {
			logger.Error("Failed to initialize wallet", zap.Error(err))
			return
		}

		logger.Warn("Node unreachable, retrying initialization",
			zap.Error(err), zap.Duration("retry_in", initRetryInterval))
		select {
		case <-clk.TickAfter(initRetryInterval):
		case <-ctx.Done():
			return
		}
	}
}

func checkChainID(ctx context.Context, node *client.StarknetClient, want string, logger *zap.Logger) {
	got, err := node.ChainID(ctx)
	if err != nil {
		logger.Warn("Failed to get chain id", zap.Error(err))
		return
	}
	expected, err := crypto.ShortString(want)
	if err != nil {
		return
	}
	id, err := crypto.ParseFelt(got)
	if err != nil || id.Cmp(expected) != 0 {
		logger.Warn("Node serves a different chain", zap.String("node_chain_id", got), zap.String("chain_id", want))
	}
}

func watchSession(ctx context.Context, registry *wallet.Registry, logger *zap.Logger) {
	updates, stop := registry.Subscribe()
	defer stop()

	last := registry.State()
	for {
		select {
		case s := <-updates:
			if st := s.State(); st != last {
				logger.Info("Wallet state changed", zap.Stringer("from", last), zap.Stringer("to", st))
				last = st
			}
		case <-ctx.Done():
			return
		}
	}
}

// checkPassword unlocks an existing keystore once so a mistyped password stops the
// service instead of showing an empty wallet.
func checkPassword(path string) error {
	password, err := config.GetPasswordBytes()
	if err != nil {
		return err
	}
	defer clear(password)

	_, plaintext, err := crypto.OpenKeystore(path, password)
	if errors.Is(err, crypto.ErrKeystoreNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to unlock keystore %s: %w", path, err)
	}
	clear(plaintext)
	return nil
}
