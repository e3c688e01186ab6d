package eth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"crowdfund/internal/ledger"
)

// SignRequest describes a transaction awaiting the account holder's consent.
type SignRequest struct {
	From   string
	To     string
	Method string
	Value  *big.Int
	Nonce  uint64
	Gas    uint64
}

// Approver asks the account holder whether to sign. Returning false rejects
// the transaction with the provider's user-rejected code.
type Approver interface {
	Approve(ctx context.Context, req SignRequest) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req SignRequest) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, req SignRequest) (bool, error) {
	return f(ctx, req)
}

// AutoApprove signs everything; used by unattended services.
var AutoApprove Approver = ApproverFunc(func(context.Context, SignRequest) (bool, error) { return true, nil })

// Wallet holds the signing identity. A zero Wallet is read-only.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// LoadWallet reads the signing key from a hex private key or an encrypted
// keystore file. With neither configured it returns a read-only wallet.
func LoadWallet(privateKeyHex, keystorePath, passphrase string) (*Wallet, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	switch {
	case privateKeyHex != "":
		key, err := crypto.HexToECDSA(privateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("eth: parse private key: %w", err)
		}
		return &Wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
	case strings.TrimSpace(keystorePath) != "":
		raw, err := os.ReadFile(filepath.Clean(keystorePath))
		if err != nil {
			return nil, fmt.Errorf("eth: read keystore: %w", err)
		}
		k, err := keystore.DecryptKey(raw, passphrase)
		if err != nil {
			return nil, fmt.Errorf("eth: unlock keystore: %w", err)
		}
		return &Wallet{key: k.PrivateKey, address: k.Address}, nil
	}
	return &Wallet{}, nil
}

// CanSign reports whether a signing identity is loaded.
func (w *Wallet) CanSign() bool {
	return w != nil && w.key != nil
}

// Address returns the signing account, or "" for a read-only wallet.
func (w *Wallet) Address() string {
	if !w.CanSign() {
		return ""
	}
	return w.address.Hex()
}

// transactor builds bind.TransactOpts for chainID whose signer consults
// approver before signing.
func (w *Wallet) transactor(ctx context.Context, chainID *big.Int, method string, approver Approver) (*bind.TransactOpts, error) {
	if !w.CanSign() {
		return nil, &ledger.ProviderError{Code: ledger.CodeUnauthorized, Message: "no signing account configured"}
	}
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("eth: transactor: %w", err)
	}
	opts.Context = ctx
	if approver == nil {
		return opts, nil
	}
	sign := opts.Signer
	opts.Signer = func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
		req := SignRequest{
			From:   from.Hex(),
			Method: method,
			Value:  tx.Value(),
			Nonce:  tx.Nonce(),
			Gas:    tx.Gas(),
		}
		if to := tx.To(); to != nil {
			req.To = to.Hex()
		}
		ok, err := approver.Approve(ctx, req)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &ledger.ProviderError{Code: ledger.CodeUserRejected, Message: "user rejected transaction"}
		}
		return sign(from, tx)
	}
	return opts, nil
}
