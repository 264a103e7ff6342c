package api

import (
	"net/http"
	"time"

	"github.com/AlexZinkM/tongo-wallet/internal/handler"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// SetupRouter sets up router with handlers
func SetupRouter(walletHandler *handler.WalletHandler, contactsHandler *handler.ContactsHandler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Wallet lifecycle
	mux.HandleFunc("/wallet/status", walletHandler.Status)
	mux.HandleFunc("/wallet/create", walletHandler.Create)
	mux.HandleFunc("/wallet/restore", walletHandler.Restore)
	mux.HandleFunc("/wallet/import", walletHandler.Import)
	mux.HandleFunc("/wallet/deploy", walletHandler.Deploy)
	mux.HandleFunc("/wallet/associate", walletHandler.Associate)
	mux.HandleFunc("/wallet/delete", walletHandler.Delete)
	mux.HandleFunc("/wallet/backup", walletHandler.Backup)
	mux.HandleFunc("/wallet/operation", walletHandler.Operation)

	// Balances and addresses
	mux.HandleFunc("/wallet/balance", walletHandler.Balance)
	mux.HandleFunc("/wallet/refresh", walletHandler.RefreshBalance)
	mux.HandleFunc("/wallet/address", walletHandler.Address)
	mux.HandleFunc("/wallet/public-balance", walletHandler.PublicBalance)

	// Shielded operations
	mux.HandleFunc("/wallet/fund", walletHandler.Fund)
	mux.HandleFunc("/wallet/transfer", walletHandler.Transfer)
	mux.HandleFunc("/wallet/rollover", walletHandler.Rollover)
	mux.HandleFunc("/wallet/withdraw", walletHandler.Withdraw)
	mux.HandleFunc("/wallet/ragequit", walletHandler.Ragequit)

	// Address book
	mux.HandleFunc("/contacts", contactsHandler.Contacts)
	mux.HandleFunc("/contacts/remove", contactsHandler.Remove)

	return logRequests(mux, logger)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs method, path, status and duration. Bodies are never logged.
func logRequests(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
