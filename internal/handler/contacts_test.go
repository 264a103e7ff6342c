package handler

import (
	"math/big"
	"net/http"
	"testing"

	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
	"github.com/AlexZinkM/tongo-wallet/internal/model"
	"github.com/AlexZinkM/tongo-wallet/internal/storage"
	"github.com/AlexZinkM/tongo-wallet/wallet"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestContacts(t *testing.T) {
	logger := zaptest.NewLogger(t)
	h := NewContactsHandler(wallet.NewAddressBook(storage.NewMemory(), logger), logger)

	p := crypto.PublicPoint(big.NewInt(5))
	alice := crypto.EncodeAddress(&p)

	rec := do(t, h.Contacts, http.MethodPost, `{"name":"Alice","address":"`+alice+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h.Contacts, http.MethodPost, `{"name":"Eve","address":"not-base58!!"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_address", decode[model.ErrorResponse](t, rec).Code)

	rec = do(t, h.Contacts, http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []model.Contact{{Name: "Alice", Address: alice}}, decode[model.ContactsResponse](t, rec).Contacts)

	rec = do(t, h.Remove, http.MethodPost, `{"address":"`+alice+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[model.ContactsResponse](t, rec).Contacts)

	rec = do(t, h.Remove, http.MethodPost, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h.Remove, http.MethodPost, `{"all":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h.Contacts, http.MethodDelete, "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
