package model

import "errors"

// ErrContractNotFound is returned when no class is deployed at an address
var ErrContractNotFound = errors.New("contract not found")

// Call is one invocation inside a multicall. All values are 0x-prefixed felts.
type Call struct {
	To       string   `json:"contractAddress"`
	Selector string   `json:"entrypoint"`
	Calldata []string `json:"calldata"`
}

// AccountCredentials lets the bridge sign on behalf of the base-layer account
type AccountCredentials struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

// Submission is the result of handing a transaction to the sequencer
type Submission struct {
	TxHash  string `json:"transactionHash"`
	Address string `json:"contractAddress,omitempty"`
}

// Finality and execution statuses reported by the node
const (
	FinalityReceived     = "RECEIVED"
	FinalityPreConfirmed = "PRE_CONFIRMED"
	FinalityAcceptedOnL2 = "ACCEPTED_ON_L2"
	FinalityAcceptedOnL1 = "ACCEPTED_ON_L1"
	ExecutionSucceeded   = "SUCCEEDED"
	ExecutionReverted    = "REVERTED"
)

// Receipt is the subset of a transaction receipt the wallet needs
type Receipt struct {
	TxHash          string `json:"transaction_hash"`
	FinalityStatus  string `json:"finality_status"`
	ExecutionStatus string `json:"execution_status"`
	RevertReason    string `json:"revert_reason,omitempty"`
	BlockNumber     uint64 `json:"block_number,omitempty"`
}

// Final reports whether the receipt is past the point of reorg on L2
func (r *Receipt) Final() bool {
	return r.FinalityStatus == FinalityAcceptedOnL2 || r.FinalityStatus == FinalityAcceptedOnL1
}

// LedgerState is the authoritative shielded account state
type LedgerState struct {
	Balance uint32 `json:"balance"`
	Pending uint32 `json:"pending"`
	Nonce   uint64 `json:"nonce"`
}

// LedgerOperation is a prepared shielded operation. Approve is set when the
// operation needs an ERC20 allowance first.
type LedgerOperation struct {
	Approve *Call `json:"approve,omitempty"`
	Call    Call  `json:"call"`
}

// Calls returns the calls in execution order
func (o *LedgerOperation) Calls() []Call {
	if o.Approve != nil {
		return []Call{*o.Approve, o.Call}
	}
	return []Call{o.Call}
}
