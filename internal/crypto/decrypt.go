package crypto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/AlexZinkM/tongo-wallet/internal/model"
)

var (
	ErrKeystoreNotFound = errors.New("keystore file does not exist")
	ErrInvalidPassword  = errors.New("invalid password")
)

// OpenKeystore reads and decrypts a .cwt file.
// password must be []byte for security (caller should zero it after use).
// The caller owns the returned plaintext and should clear it.
func OpenKeystore(filePath string, password []byte) (*model.KeystoreFile, []byte, error) {
	keystore, err := ReadKeystoreHeader(filePath)
	if err != nil {
		return nil, nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(keystore.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(keystore.Nonce)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(keystore.CipherText)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	params := ScryptParams{N: keystore.KDF.N, R: keystore.KDF.R, P: keystore.KDF.P}
	if params.N == 0 {
		params = DefaultScryptParams
	}

	aesGCM, err := newKeystoreCipher(password, salt, params)
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, nil, ErrInvalidPassword
	}

	return keystore, plaintext, nil
}

// ReadKeystoreHeader reads the unencrypted part of a .cwt file
func ReadKeystoreHeader(filePath string) (*model.KeystoreFile, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeystoreNotFound
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if fileInfo.Size() == 0 {
		return nil, errors.New("file is empty")
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Skip UTF-8 BOM if present
	if len(fileData) >= 3 && fileData[0] == 0xEF && fileData[1] == 0xBB && fileData[2] == 0xBF {
		fileData = fileData[3:]
	}

	var keystore model.KeystoreFile
	if err := json.Unmarshal(fileData, &keystore); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cwt file: %w", err)
	}

	return &keystore, nil
}
