package handler

import (
	"context"
	"net/http"

	"github.com/AlexZinkM/tongo-wallet/internal/model"
	"github.com/AlexZinkM/tongo-wallet/wallet"

	"go.uber.org/zap"
)

// ContactBook is the address book behind the /contacts endpoints
type ContactBook interface {
	Contacts() []wallet.Contact
	Add(ctx context.Context, c wallet.Contact) error
	Remove(ctx context.Context, address string) error
	Clear(ctx context.Context) error
}

// ContactsHandler serves the /contacts endpoints
type ContactsHandler struct {
	book   ContactBook
	logger *zap.Logger
}

// NewContactsHandler creates a new ContactsHandler
func NewContactsHandler(book ContactBook, logger *zap.Logger) *ContactsHandler {
	return &ContactsHandler{book: book, logger: logger}
}

// Contacts handles GET and POST /contacts
func (h *ContactsHandler) Contacts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Add(w, r)
	default:
		http.Error(w, "Method not allowed. Should be GET or POST", http.StatusMethodNotAllowed)
	}
}

// List handles GET /contacts
// @Summary      List contacts
// @Description  Contacts in display order
// @Tags         contacts
// @Produce      json
// @Success      200  {object}  model.ContactsResponse
// @Router       /contacts [get]
func (h *ContactsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, contactsResponse(h.book.Contacts()))
}

// Add handles POST /contacts
// @Summary      Add contact
// @Description  Adds a contact, replacing the one with the same shielded address
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        request  body      model.Contact  true  "Contact"
// @Success      200      {object}  model.ContactsResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /contacts [post]
func (h *ContactsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req model.Contact
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := h.book.Add(r.Context(), wallet.Contact{Name: req.Name, Address: req.Address}); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contactsResponse(h.book.Contacts()))
}

// Remove handles POST /contacts/remove
// @Summary      Remove contacts
// @Description  Removes the contact with the given address, or every contact when all is set
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        request  body      model.RemoveContactRequest  true  "Address"
// @Success      200      {object}  model.ContactsResponse
// @Router       /contacts/remove [post]
func (h *ContactsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req model.RemoveContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	var err error
	if req.All {
		err = h.book.Clear(r.Context())
	} else {
		err = h.book.Remove(r.Context(), req.Address)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contactsResponse(h.book.Contacts()))
}

func contactsResponse(contacts []wallet.Contact) model.ContactsResponse {
	out := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, model.Contact{Name: c.Name, Address: c.Address})
	}
	return model.ContactsResponse{Contacts: out}
}
