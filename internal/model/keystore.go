package model

// KeystoreKDF records the scrypt cost used to seal a keystore file
type KeystoreKDF struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

// KeystoreFile represents .cwt file structure
type KeystoreFile struct {
	Version    int         `json:"version"`
	Network    string      `json:"network"`
	KDF        KeystoreKDF `json:"kdf"`
	Salt       string      `json:"salt"`
	Nonce      string      `json:"nonce"`
	CipherText string      `json:"cipherText"`
}
