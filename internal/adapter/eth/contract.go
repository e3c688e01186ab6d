package eth

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"crowdfund/internal/ledger"
)

// Backend is the node connection the adapter needs. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// Contract binds the campaign ABI to a deployed address over one backend.
type Contract struct {
	address common.Address
	abi     abi.ABI
	backend Backend
	bound   *bind.BoundContract
	session *Session
}

var _ ledger.Contract = (*Contract)(nil)

func newContract(address common.Address, backend Backend, s *Session) (*Contract, error) {
	parsed, err := campaignABI()
	if err != nil {
		return nil, fmt.Errorf("eth: parse abi: %w", err)
	}
	return &Contract{
		address: address,
		abi:     parsed,
		backend: backend,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
		session: s,
	}, nil
}

func (c *Contract) Address() string { return c.address.Hex() }

func (c *Contract) from() common.Address {
	if c.session == nil || !c.session.wallet.CanSign() {
		return common.Address{}
	}
	return c.session.wallet.address
}

// Call evaluates a view entry point and returns its unpacked outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	var out []any
	opts := &bind.CallOpts{Context: ctx, From: c.from()}
	if err := c.bound.Call(opts, &out, method, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Transact signs, submits and waits for the transaction to be mined. A mined
// transaction with a failed status is reported as a revert.
func (c *Contract) Transact(ctx context.Context, call ledger.Call) (*ledger.TxResult, error) {
	s := c.session
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := s.wallet.transactor(ctx, chainID, call.Method, s.approver)
	if err != nil {
		return nil, err
	}
	opts.Value = call.Value

	// Nonces are assigned at send time; two sends in flight would collide.
	s.sendMu.Lock()
	tx, err := c.bound.Transact(opts, call.Method, call.Args...)
	s.sendMu.Unlock()
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("tx", tx.Hash().Hex()).Str("method", call.Method).Msg("transaction submitted")

	waitCtx := ctx
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	receipt, err := bind.WaitMined(waitCtx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("eth: wait for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, &ledger.ProviderError{Code: 3, Message: "execution reverted", Data: tx.Hash().Hex()}
	}
	res := &ledger.TxResult{Hash: tx.Hash().Hex(), GasUsed: receipt.GasUsed}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return res, nil
}

// EstimateGas simulates call from the signing account.
func (c *Contract) EstimateGas(ctx context.Context, call ledger.Call) (uint64, error) {
	data, err := c.abi.Pack(call.Method, call.Args...)
	if err != nil {
		return 0, fmt.Errorf("eth: pack %s: %w", call.Method, err)
	}
	to := c.address
	return c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.from(),
		To:    &to,
		Value: call.Value,
		Data:  data,
	})
}

func (c *Contract) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.backend.SuggestGasPrice(ctx)
}
