package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the application.
// Note: Password is prompted at runtime and stored in memory - use GetPasswordBytes()
type Config struct {
	Port                 string        `envconfig:"PORT" default:"8080"`
	StarknetRPCURL       string        `envconfig:"STARKNET_RPC_URL" default:"https://starknet-sepolia.public.blastapi.io/rpc/v0_9"`
	BridgeURL            string        `envconfig:"BRIDGE_URL" default:"http://127.0.0.1:7070"`
	KeystorePath         string        `envconfig:"KEYSTORE_PATH" default:"wallet.cwt"`
	FallbackDBPath       string        `envconfig:"FALLBACK_DB_PATH" default:"wallet.db"`
	ChainID              string        `envconfig:"CHAIN_ID" default:"SN_SEPOLIA"`
	AccountClassHash     string        `envconfig:"ACCOUNT_CLASS_HASH" default:"0x540d7f5ec7ecf317e68d48564934cb99259781b1ee3cedbbc37ec5337f8e688"`
	TongoContract        string        `envconfig:"TONGO_CONTRACT" default:"0x00b4cca30f0f641e01140c1c388f55641f1c3fe5515484e622b6cb91d8cee585"`
	STRKTokenAddress     string        `envconfig:"STRK_TOKEN_ADDRESS" default:"0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"`
	FinalityPollInterval time.Duration `envconfig:"FINALITY_POLL_INTERVAL" default:"5s"`
	PriceAPIURL          string        `envconfig:"PRICE_API_URL" default:"https://api.coingecko.com/api/v3"`
	FiatCurrency         string        `envconfig:"FIAT_CURRENCY" default:"usd"`
	LogLevel             string        `envconfig:"LOG_LEVEL" default:"info"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	if c.FinalityPollInterval <= 0 {
		return errors.New("FINALITY_POLL_INTERVAL must be positive")
	}
	cfg = c
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetPort returns port from configuration
func GetPort() string {
	return Get().Port
}

// GetKeystorePath returns path to .cwt file from configuration
func GetKeystorePath() string {
	return Get().KeystorePath
}

// GetStarknetRPCURL returns Starknet RPC URL from configuration
func GetStarknetRPCURL() string {
	return Get().StarknetRPCURL
}

var passwordBytes []byte

// PromptForPassword prompts the user for the keystore password in the terminal.
// The password is read without echoing (hidden input) and stored in memory.
// Call this at startup before the server begins handling requests.
func PromptForPassword(prompt string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("stdin is not a terminal: run the app interactively to enter password")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("password cannot be empty")
	}

	SetPassword(raw)
	clear(raw)
	return nil
}

// SetPassword stores a copy of password in memory, replacing any previous one.
func SetPassword(password []byte) {
	clear(passwordBytes)
	passwordBytes = make([]byte, len(password))
	copy(passwordBytes, password)
}

// GetPasswordBytes returns the password stored in memory (from PromptForPassword).
// Returns an error if the password was not set.
// Caller must zero the returned slice after use for security.
func GetPasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}
