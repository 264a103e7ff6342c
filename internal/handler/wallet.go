package handler

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/AlexZinkM/tongo-wallet/internal/common"
	"github.com/AlexZinkM/tongo-wallet/internal/model"
	"github.com/AlexZinkM/tongo-wallet/wallet"

	"go.uber.org/zap"
)

// Engine is the part of the wallet engine the HTTP API drives
type Engine interface {
	Session() wallet.Session
	Operation() wallet.Operation
	CreateWallet(ctx context.Context, words int) (string, error)
	RestoreFromSeed(ctx context.Context, mnemonic string, persist bool) (wallet.Session, error)
	RestoreFromPrivateKey(ctx context.Context, key string, persist bool) (wallet.Session, error)
	DeployBaseLayerAccount(ctx context.Context) (*wallet.Result, error)
	AssociateShieldedAccount(ctx context.Context) (*wallet.Snapshot, error)
	Refresh(ctx context.Context) (*wallet.Snapshot, error)
	Fund(ctx context.Context, amount *big.Int) (*wallet.Result, error)
	Transfer(ctx context.Context, amount *big.Int, recipient string) (*wallet.Result, error)
	Rollover(ctx context.Context) (*wallet.Result, error)
	Withdraw(ctx context.Context, amount *big.Int) (*wallet.Result, error)
	EmergencyExit(ctx context.Context) (*wallet.Result, error)
	DeleteWallet(ctx context.Context) error
	BackupPhrase(ctx context.Context) (string, error)
	PublicBalance(ctx context.Context) (*big.Int, error)
}

// WalletHandler serves the /wallet endpoints
type WalletHandler struct {
	engine       Engine
	fiatCurrency string
	logger       *zap.Logger
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(engine Engine, fiatCurrency string, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{engine: engine, fiatCurrency: fiatCurrency, logger: logger}
}

// detach keeps a state-changing operation alive when the client goes away: a submitted
// transaction is still awaited and the balance still refreshed.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// Status handles GET /wallet/status
// @Summary      Wallet status
// @Description  Lifecycle state of the wallet with its base-layer and shielded addresses
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.StatusResponse
// @Router       /wallet/status [get]
func (h *WalletHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, statusResponse(h.engine.Session()))
}

// Create handles POST /wallet/create
// @Summary      Create wallet
// @Description  Generates a 12 or 24 word recovery phrase, stores it and derives the accounts. The phrase is returned once.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateRequest  true  "Word count"
// @Success      200      {object}  model.CreateResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /wallet/create [post]
func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	req := model.CreateRequest{Words: 24}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}
	}

	mnemonic, err := h.engine.CreateWallet(detach(r), req.Words)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	s := h.engine.Session()
	resp := model.CreateResponse{
		Success:  true,
		Message:  "Wallet created, write down the recovery phrase",
		Mnemonic: mnemonic,
	}
	if s.Account != nil {
		resp.Address = s.Account.Address
	}
	writeJSON(w, http.StatusOK, resp)
}

// Restore handles POST /wallet/restore
// @Summary      Restore from recovery phrase
// @Description  Derives both accounts from a BIP39 phrase and associates the shielded account when the base-layer account is deployed
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.RestoreRequest  true  "Recovery phrase"
// @Success      200      {object}  model.StatusResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /wallet/restore [post]
func (h *WalletHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req model.RestoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	s, err := h.engine.RestoreFromSeed(detach(r), req.Mnemonic, model.ShouldPersist(req.Persist))
	h.writeSession(w, s, err)
}

// Import handles POST /wallet/import
// @Summary      Import private key
// @Description  Imports a raw Starknet private key. The shielded key is derived from the account's signature.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.ImportRequest  true  "Private key"
// @Success      200      {object}  model.StatusResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /wallet/import [post]
func (h *WalletHandler) Import(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req model.ImportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	s, err := h.engine.RestoreFromPrivateKey(detach(r), req.PrivateKey, model.ShouldPersist(req.Persist))
	h.writeSession(w, s, err)
}

// writeSession reports a restore. A restore whose association failed still returns the
// error, the restored session is visible through /wallet/status.
func (h *WalletHandler) writeSession(w http.ResponseWriter, s wallet.Session, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse(s))
}

// Deploy handles POST /wallet/deploy
// @Summary      Deploy account
// @Description  Deploys the base-layer account contract and waits for finality
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.TxResponse
// @Failure      409  {object}  model.ErrorResponse
// @Failure      502  {object}  model.ErrorResponse
// @Router       /wallet/deploy [post]
func (h *WalletHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	res, err := h.engine.DeployBaseLayerAccount(detach(r))
	h.writeResult(w, res, err)
}

// Associate handles POST /wallet/associate
// @Summary      Associate shielded account
// @Description  Derives the shielded account of the deployed base-layer account and loads its balance
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.BalanceResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /wallet/associate [post]
func (h *WalletHandler) Associate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	snap, err := h.engine.AssociateShieldedAccount(detach(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.balanceResponse(snap))
}

// Balance handles GET /wallet/balance
// @Summary      Shielded balance
// @Description  Last balance snapshot; loaded from the ledger when none exists yet
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.BalanceResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /wallet/balance [get]
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	snap := h.engine.Session().Balance
	if snap == nil {
		var err error
		if snap, err = h.engine.Refresh(r.Context()); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.balanceResponse(snap))
}

// RefreshBalance handles POST /wallet/refresh
// @Summary      Refresh shielded balance
// @Description  Reads balance, pending balance and nonce from the ledger
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.BalanceResponse
// @Failure      502  {object}  model.ErrorResponse
// @Router       /wallet/refresh [post]
func (h *WalletHandler) RefreshBalance(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	snap, err := h.engine.Refresh(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.balanceResponse(snap))
}

// Address handles GET /wallet/address
// @Summary      Receive address
// @Description  Base-layer address and shielded address with a QR code (base64 PNG) of the shielded address, or of the base-layer address before association
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.AddressResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /wallet/address [get]
func (h *WalletHandler) Address(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	s := h.engine.Session()
	if s.Account == nil {
		writeError(w, h.logger, wallet.ErrNoAccount)
		return
	}

	resp := model.AddressResponse{Address: s.Account.Address}
	target := s.Account.Address
	if s.Shielded != nil {
		resp.ShieldedAddress = s.Shielded.Address
		target = s.Shielded.Address
	}

	qr, err := generateQRCode(target)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp.QRCode = qr
	writeJSON(w, http.StatusOK, resp)
}

// PublicBalance handles GET /wallet/public-balance
// @Summary      Public STRK balance
// @Description  STRK balance of the base-layer account
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.PublicBalanceResponse
// @Failure      502  {object}  model.ErrorResponse
// @Router       /wallet/public-balance [get]
func (h *WalletHandler) PublicBalance(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	fri, err := h.engine.PublicBalance(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := model.PublicBalanceResponse{Fri: fri.String(), STRK: common.FriToSTRK(fri)}
	if s := h.engine.Session(); s.Account != nil {
		resp.Address = s.Account.Address
	}
	writeJSON(w, http.StatusOK, resp)
}

// Fund handles POST /wallet/fund
// @Summary      Fund shielded account
// @Description  Moves STRK from the base-layer account into the shielded account. Amount is in shielded units (0..4294967295).
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.AmountRequest  true  "Amount"
// @Success      200      {object}  model.TxResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /wallet/fund [post]
func (h *WalletHandler) Fund(w http.ResponseWriter, r *http.Request) {
	amount, ok := h.amount(w, r)
	if !ok {
		return
	}
	res, err := h.engine.Fund(detach(r), amount)
	h.writeResult(w, res, err)
}

// Transfer handles POST /wallet/transfer
// @Summary      Confidential transfer
// @Description  Sends shielded units to a contact name or base58 shielded address
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.TransferRequest  true  "Recipient and amount"
// @Success      200      {object}  model.TxResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /wallet/transfer [post]
func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req model.TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := common.ParseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	res, err := h.engine.Transfer(detach(r), amount, req.To)
	h.writeResult(w, res, err)
}

// Rollover handles POST /wallet/rollover
// @Summary      Rollover
// @Description  Moves the pending balance into the spendable balance
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.TxResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /wallet/rollover [post]
func (h *WalletHandler) Rollover(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	res, err := h.engine.Rollover(detach(r))
	h.writeResult(w, res, err)
}

// Withdraw handles POST /wallet/withdraw
// @Summary      Withdraw
// @Description  Moves shielded units back to the wallet's own base-layer account
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.AmountRequest  true  "Amount"
// @Success      200      {object}  model.TxResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /wallet/withdraw [post]
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	amount, ok := h.amount(w, r)
	if !ok {
		return
	}
	res, err := h.engine.Withdraw(detach(r), amount)
	h.writeResult(w, res, err)
}

// Ragequit handles POST /wallet/ragequit
// @Summary      Emergency exit
// @Description  Withdraws the whole shielded position to the wallet's own base-layer account
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.TxResponse
// @Failure      400  {object}  model.ErrorResponse
// @Router       /wallet/ragequit [post]
func (h *WalletHandler) Ragequit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	res, err := h.engine.EmergencyExit(detach(r))
	h.writeResult(w, res, err)
}

// Delete handles POST /wallet/delete
// @Summary      Delete wallet
// @Description  Removes the stored recovery material and resets the wallet. Contacts are kept.
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.SuccessResponse
// @Failure      503  {object}  model.ErrorResponse
// @Router       /wallet/delete [post]
func (h *WalletHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if err := h.engine.DeleteWallet(detach(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true, Message: "Wallet deleted"})
}

// Backup handles GET /wallet/backup
// @Summary      Recovery phrase
// @Description  Returns the stored recovery phrase of a wallet created or restored from a phrase
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.BackupResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /wallet/backup [get]
func (h *WalletHandler) Backup(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	mnemonic, err := h.engine.BackupPhrase(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.BackupResponse{Mnemonic: mnemonic})
}

// Operation handles GET /wallet/operation
// @Summary      Current operation
// @Description  Progress of the operation in flight, or the outcome of the last one
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.OperationResponse
// @Router       /wallet/operation [get]
func (h *WalletHandler) Operation(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	op := h.engine.Operation()
	writeJSON(w, http.StatusOK, model.OperationResponse{
		Name:      op.Name,
		State:     op.State.String(),
		TxHash:    op.TxHash,
		Error:     op.Error,
		StartedAt: formatTime(op.StartedAt),
		UpdatedAt: formatTime(op.UpdatedAt),
	})
}

func (h *WalletHandler) amount(w http.ResponseWriter, r *http.Request) (*big.Int, bool) {
	if !allowMethod(w, r, http.MethodPost) {
		return nil, false
	}

	var req model.AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err)
		return nil, false
	}
	amount, err := common.ParseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return nil, false
	}
	return amount, true
}

func (h *WalletHandler) writeResult(w http.ResponseWriter, res *wallet.Result, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := model.TxResponse{TxHash: res.TxHash}
	if res.Snapshot != nil {
		resp.Balance = h.balanceResponse(res.Snapshot)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *WalletHandler) balanceResponse(snap *wallet.Snapshot) *model.BalanceResponse {
	resp := &model.BalanceResponse{
		Spendable:     snap.Spendable,
		Pending:       snap.Pending,
		Nonce:         snap.Nonce,
		SpendableSTRK: snap.SpendableDisplay,
		PendingSTRK:   snap.PendingDisplay,
		FiatPrice:     snap.FiatPrice,
		UpdatedAt:     formatTime(snap.UpdatedAt),
	}
	if snap.Rate != nil {
		resp.Rate = snap.Rate.String()
	}
	if snap.FiatPrice != "" {
		resp.FiatCurrency = h.fiatCurrency
	}
	return resp
}

func statusResponse(s wallet.Session) model.StatusResponse {
	resp := model.StatusResponse{State: s.State().String()}
	if s.Account != nil {
		resp.Origin = s.Origin.String()
		resp.Address = s.Account.Address
		resp.PublicKey = s.Account.PublicKey
		resp.Deployed = s.Account.Deployed
	}
	if s.Shielded != nil {
		resp.ShieldedAddress = s.Shielded.Address
		resp.Contract = s.Shielded.Contract
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
