package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AlexZinkM/tongo-wallet/internal/model"
	"github.com/AlexZinkM/tongo-wallet/wallet"

	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; every request here is a few small fields
const maxBodyBytes = 1 << 16

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{wallet.ErrInvalidMnemonic, http.StatusBadRequest, "invalid_mnemonic"},
	{wallet.ErrInvalidPrivateKey, http.StatusBadRequest, "invalid_private_key"},
	{wallet.ErrAmountOutOfRange, http.StatusBadRequest, "amount_out_of_range"},
	{wallet.ErrInvalidRecipient, http.StatusBadRequest, "invalid_recipient"},
	{wallet.ErrInvalidAddress, http.StatusBadRequest, "invalid_address"},
	{wallet.ErrInsufficientBalance, http.StatusBadRequest, "insufficient_balance"},
	{wallet.ErrOperationInProgress, http.StatusConflict, "operation_in_progress"},
	{wallet.ErrNoAccount, http.StatusConflict, "no_account"},
	{wallet.ErrNoShieldedAccount, http.StatusConflict, "no_shielded_account"},
	{wallet.ErrNoKeyMaterial, http.StatusConflict, "no_key_material"},
	{wallet.ErrAlreadyDeployed, http.StatusConflict, "already_deployed"},
	{wallet.ErrNotDeployed, http.StatusConflict, "not_deployed"},
	{wallet.ErrNothingToRollover, http.StatusConflict, "nothing_to_rollover"},
	{wallet.ErrPersistenceUnavailable, http.StatusServiceUnavailable, "persistence_unavailable"},
	{wallet.ErrDerivationFailed, http.StatusInternalServerError, "derivation_failed"},
}

// errorStatus maps an engine error to an HTTP status and a stable error code
func errorStatus(err error) (int, string) {
	// a chain failure after the transaction went out still reports the chain error
	if wallet.IsChainError(err) {
		return http.StatusBadGateway, "chain_error"
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Code: "bad_request"})
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := errorStatus(err)
	resp := model.ErrorResponse{Error: err.Error(), Code: code}

	var ce *wallet.ChainError
	if errors.As(err, &ce) {
		resp.TxHash = ce.TxHash
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Int("status", status), zap.String("code", code), zap.Error(err))
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a JSON body into v. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed. Should be "+method, http.StatusMethodNotAllowed)
		return false
	}
	return true
}
