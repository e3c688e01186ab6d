package ledger

import (
	"context"
	"fmt"
	"math/big"
)

// Contract entry points invoked on the external ledger.
const (
	MethodCreateCampaign = "createCampaign"
	MethodDeleteCampaign = "deleteCampaign"
	MethodDonate         = "donateToCampaign"
	MethodGetCampaigns   = "getCampaigns"
	MethodGetCampaign    = "getCampaign"
	MethodGetDonators    = "getDonators"
)

// Session is the read-only handle to the wallet/provider capability. It is
// queried on every gateway call; implementations must not require callers to
// cache its results.
type Session interface {
	// Account returns the connected account, or "" when no account is connected.
	Account(ctx context.Context) (string, error)
	// Contract returns the bound contract handle, or nil when none is bound.
	Contract(ctx context.Context) (Contract, error)
	// ChainID reports the network the provider is currently attached to.
	ChainID(ctx context.Context) (uint64, error)
	// SwitchNetwork asks the provider to attach to chainID.
	SwitchNetwork(ctx context.Context, chainID uint64) error
}

// Call describes one contract invocation.
type Call struct {
	Method string
	Args   []any
	// Value is the amount in wei sent with payable calls.
	Value *big.Int
}

// TxResult is the settled outcome of a mutating call.
type TxResult struct {
	Hash        string `json:"hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}

// Contract is the generic call-and-wait primitive over a deployed contract.
type Contract interface {
	Address() string
	// Call evaluates a read-only entry point and returns its raw outputs.
	Call(ctx context.Context, method string, args ...any) ([]any, error)
	// Transact signs and submits a mutating call and waits for it to settle.
	Transact(ctx context.Context, call Call) (*TxResult, error)
	EstimateGas(ctx context.Context, call Call) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
}

// Provider error codes reported by wallets and JSON-RPC nodes.
const (
	CodeUserRejected        = 4001
	CodeUnauthorized        = 4100
	CodeUnsupportedMethod   = 4200
	CodeChainNotAdded       = 4902
	CodeInternalRPC         = -32603
	CodeInsufficientFunds   = -32000
	CodeResourceUnavailable = -32002
)

// ProviderError is a coded error raised by the provider stack. go-ethereum's
// rpc errors satisfy the same ErrorCode contract and are mapped identically.
type ProviderError struct {
	Code    int
	Message string
	Data    any
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider error %d", e.Code)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// ErrorCode returns the numeric provider code.
func (e *ProviderError) ErrorCode() int { return e.Code }

// ErrorData returns revert data or other provider detail.
func (e *ProviderError) ErrorData() any { return e.Data }
