// Re-encrypts the keystore under a new password with fresh salt and nonce.
// Usage: KEYSTORE_PATH=wallet.cwt go run ./cmd/rekey
package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/AlexZinkM/tongo-wallet/internal/config"
	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
)

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
	path := config.GetKeystorePath()

	oldPassword, err := readPassword("Current password: ")
	if err != nil {
		return err
	}
	defer clear(oldPassword)

	keystore, plaintext, err := crypto.OpenKeystore(path, oldPassword)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer clear(plaintext)

	newPassword, err := readPassword("New password: ")
	if err != nil {
		return err
	}
	defer clear(newPassword)

	confirm, err := readPassword("Repeat new password: ")
	if err != nil {
		return err
	}
	defer clear(confirm)

	if !bytes.Equal(newPassword, confirm) {
		return errors.New("passwords do not match")
	}

	params := crypto.ScryptParams{N: keystore.KDF.N, R: keystore.KDF.R, P: keystore.KDF.P}
	if params.N < crypto.DefaultScryptParams.N {
		params = crypto.DefaultScryptParams
	}
	if err := crypto.SealKeystore(path, keystore.Network, plaintext, newPassword, params); err != nil {
		return fmt.Errorf("failed to re-encrypt %s: %w", path, err)
	}

	fmt.Fprintf(os.Stderr, "Re-encrypted %s\n", path)
	return nil
}

func readPassword(prompt string) ([]byte, error) {
	if err := config.PromptForPassword(prompt); err != nil {
		return nil, err
	}
	password, err := config.GetPasswordBytes()
	config.SetPassword(nil)
	return password, err
}
