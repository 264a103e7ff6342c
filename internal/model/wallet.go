package model

import (
	"errors"
	"strings"
)

// StatusResponse represents response for GET /wallet/status
type StatusResponse struct {
	State           string `json:"state"`
	Origin          string `json:"origin,omitempty"`
	Address         string `json:"address,omitempty"`
	PublicKey       string `json:"publicKey,omitempty"`
	Deployed        bool   `json:"deployed"`
	ShieldedAddress string `json:"shieldedAddress,omitempty"`
	Contract        string `json:"contract,omitempty"`
}

// CreateRequest represents request for POST /wallet/create
type CreateRequest struct {
	Words int `json:"words"`
}

// CreateResponse represents response for POST /wallet/create. The mnemonic is only ever
// returned here and by /wallet/backup.
type CreateResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Mnemonic string `json:"mnemonic"`
	Address  string `json:"address"`
}

// RestoreRequest represents request for POST /wallet/restore
type RestoreRequest struct {
	Mnemonic string `json:"mnemonic"`
	Persist  *bool  `json:"persist,omitempty"`
}

// Validate checks required fields
func (r *RestoreRequest) Validate() error {
	if strings.TrimSpace(r.Mnemonic) == "" {
		return errors.New("mnemonic is required")
	}
	return nil
}

// ImportRequest represents request for POST /wallet/import
type ImportRequest struct {
	PrivateKey string `json:"privateKey"`
	Persist    *bool  `json:"persist,omitempty"`
}

// Validate checks required fields
func (r *ImportRequest) Validate() error {
	if strings.TrimSpace(r.PrivateKey) == "" {
		return errors.New("privateKey is required")
	}
	return nil
}

// ShouldPersist defaults to true when persist is omitted
func ShouldPersist(persist *bool) bool {
	return persist == nil || *persist
}

// AmountRequest represents request for POST /wallet/fund and /wallet/withdraw.
// Amount is in shielded units, a base-10 integer.
type AmountRequest struct {
	Amount string `json:"amount"`
}

// Validate checks required fields
func (r *AmountRequest) Validate() error {
	if strings.TrimSpace(r.Amount) == "" {
		return errors.New("amount is required")
	}
	return nil
}

// TransferRequest represents request for POST /wallet/transfer. To is a contact name
// or a base58 shielded address.
type TransferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// Validate checks required fields
func (r *TransferRequest) Validate() error {
	if strings.TrimSpace(r.To) == "" {
		return errors.New("to is required")
	}
	if strings.TrimSpace(r.Amount) == "" {
		return errors.New("amount is required")
	}
	return nil
}

// BalanceResponse represents the shielded balance snapshot
type BalanceResponse struct {
	Spendable     uint32 `json:"spendable"`
	Pending       uint32 `json:"pending"`
	Nonce         uint64 `json:"nonce"`
	Rate          string `json:"rate"`
	SpendableSTRK string `json:"spendableStrk"`
	PendingSTRK   string `json:"pendingStrk"`
	FiatPrice     string `json:"fiatPrice,omitempty"`
	FiatCurrency  string `json:"fiatCurrency,omitempty"`
	UpdatedAt     string `json:"updatedAt"`
}

// TxResponse represents response for value-moving operations
type TxResponse struct {
	TxHash  string           `json:"txHash,omitempty"`
	Balance *BalanceResponse `json:"balance,omitempty"`
}

// AddressResponse represents response for GET /wallet/address
type AddressResponse struct {
	Address         string `json:"address"`
	ShieldedAddress string `json:"shieldedAddress,omitempty"`
	QRCode          string `json:"qrCode"`
}

// PublicBalanceResponse represents response for GET /wallet/public-balance
type PublicBalanceResponse struct {
	Address string `json:"address"`
	Fri     string `json:"fri"`
	STRK    string `json:"strk"`
}

// BackupResponse represents response for GET /wallet/backup
type BackupResponse struct {
	Mnemonic string `json:"mnemonic"`
}

// OperationResponse represents response for GET /wallet/operation
type OperationResponse struct {
	Name      string `json:"name,omitempty"`
	State     string `json:"state"`
	TxHash    string `json:"txHash,omitempty"`
	Error     string `json:"error,omitempty"`
	StartedAt string `json:"startedAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// SuccessResponse is returned by operations without a payload
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
