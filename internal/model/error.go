package model

// ErrorResponse is the consistent JSON structure for all API error responses.
// TxHash is set when the failing operation already submitted a transaction.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	TxHash string `json:"txHash,omitempty"`
}
