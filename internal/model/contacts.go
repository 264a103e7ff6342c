package model

import (
	"errors"
	"strings"
)

// Contact is one address book entry
type Contact struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Validate checks required fields
func (c *Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(c.Address) == "" {
		return errors.New("address is required")
	}
	return nil
}

// RemoveContactRequest represents request for POST /contacts/remove.
// An empty address with All set clears the book.
type RemoveContactRequest struct {
	Address string `json:"address"`
	All     bool   `json:"all,omitempty"`
}

// Validate checks required fields
func (r *RemoveContactRequest) Validate() error {
	if !r.All && strings.TrimSpace(r.Address) == "" {
		return errors.New("address is required")
	}
	return nil
}

// ContactsResponse represents response for GET /contacts
type ContactsResponse struct {
	Contacts []Contact `json:"contacts"`
}
