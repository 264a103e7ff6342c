package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlexZinkM/tongo-wallet/internal/model"

	"golang.org/x/crypto/scrypt"
)

const (
	keystoreVersion = 1
	scryptKeyLen    = 32
	saltLen         = 32
	nonceLen        = 12
)

// ScryptParams is the scrypt cost of a keystore.
type ScryptParams struct {
	N, R, P int
}

// DefaultScryptParams: N=2^18 (~256MB RAM, 0.5-2s per unlock). Brute force stays
// expensive while desktops and phones can still open the file.
var DefaultScryptParams = ScryptParams{N: 1 << 18, R: 8, P: 1}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SealKeystore encrypts plaintext with a key derived from password and atomically
// replaces the .cwt file at filePath.
// password must be []byte for security (caller should zero it after use)
func SealKeystore(filePath, network string, plaintext, password []byte, params ScryptParams) error {
	if !strings.HasSuffix(filePath, ".cwt") {
		return errors.New("file must have .cwt extension")
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := newKeystoreCipher(password, salt, params)
	if err != nil {
		return err
	}

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	keystore := model.KeystoreFile{
		Version:    keystoreVersion,
		Network:    network,
		KDF:        model.KeystoreKDF{N: params.N, R: params.R, P: params.P},
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}

	fileData, err := json.MarshalIndent(keystore, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cwt file: %w", err)
	}

	// UTF-8 BOM for proper display in Windows
	fileDataWithBOM := append(append([]byte{}, utf8BOM...), fileData...)

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".keystore-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if _, err := tmp.Write(fileDataWithBOM); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpName, filePath); err != nil {
		return fmt.Errorf("failed to replace keystore: %w", err)
	}
	return nil
}

func newKeystoreCipher(password, salt []byte, params ScryptParams) (cipher.AEAD, error) {
	key, err := scrypt.Key(password, salt, params.N, params.R, params.P, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
