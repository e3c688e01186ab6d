// Package eth implements the ledger provider capability on top of go-ethereum.
package eth

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"crowdfund/internal/infra"
	"crowdfund/internal/ledger"
)

// ledger.ProviderError carries JSON-RPC style codes like the node's own errors.
var _ rpc.Error = (*ledger.ProviderError)(nil)

// DefaultNetworks are the endpoints used when switching to a chain that has
// no configured RPC URL.
var DefaultNetworks = map[uint64]string{
	ledger.SepoliaChainID: "https://rpc.sepolia.org",
}

// DialFunc opens a backend for an RPC URL.
type DialFunc func(ctx context.Context, rawURL string) (Backend, error)

// Options configures a Session.
type Options struct {
	RPCURL          string
	ContractAddress string
	// Networks maps chain IDs to RPC URLs for SwitchNetwork.
	Networks  map[uint64]string
	Wallet    *Wallet
	Approver  Approver
	TxTimeout time.Duration
	Logger    *infra.Logger
	Dial      DialFunc
}

// Session is the process-wide provider handle: one node connection, one
// signing wallet and the contract bound at the configured address.
type Session struct {
	mu       sync.RWMutex
	backend  Backend
	contract *Contract

	address   string
	networks  map[uint64]string
	wallet    *Wallet
	approver  Approver
	txTimeout time.Duration
	logger    *infra.Logger
	dial      DialFunc

	sendMu sync.Mutex
}

var _ ledger.Session = (*Session)(nil)

func dialEthclient(ctx context.Context, rawURL string) (Backend, error) {
	return ethclient.DialContext(ctx, rawURL)
}

// Dial connects to the node. An invalid contract address is logged and
// leaves the session without a contract instead of failing.
func Dial(ctx context.Context, opts Options) (*Session, error) {
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	dial := opts.Dial
	if dial == nil {
		dial = dialEthclient
	}
	wallet := opts.Wallet
	if wallet == nil {
		wallet = &Wallet{}
	}
	networks := make(map[uint64]string, len(DefaultNetworks)+len(opts.Networks))
	for id, url := range DefaultNetworks {
		networks[id] = url
	}
	for id, url := range opts.Networks {
		networks[id] = url
	}

	rpcURL := strings.TrimSpace(opts.RPCURL)
	if rpcURL == "" {
		return nil, fmt.Errorf("eth: rpc url is required")
	}
	backend, err := dial(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("eth: dial %s: %w", rpcURL, err)
	}

	s := &Session{
		backend:   backend,
		address:   strings.TrimSpace(opts.ContractAddress),
		networks:  networks,
		wallet:    wallet,
		approver:  opts.Approver,
		txTimeout: opts.TxTimeout,
		logger:    logger,
		dial:      dial,
	}
	if err := s.bind(backend); err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

// bind attaches the contract to backend. Caller holds s.mu or owns s.
func (s *Session) bind(backend Backend) error {
	s.contract = nil
	if !common.IsHexAddress(s.address) {
		s.logger.Error().Str("address", s.address).Msg("invalid contract address, ledger not connected")
		return nil
	}
	c, err := newContract(common.HexToAddress(s.address), backend, s)
	if err != nil {
		return err
	}
	s.contract = c
	return nil
}

func (s *Session) Account(context.Context) (string, error) {
	return s.wallet.Address(), nil
}

func (s *Session) Contract(context.Context) (ledger.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.contract == nil {
		return nil, nil
	}
	return s.contract, nil
}

func (s *Session) ChainID(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	backend := s.backend
	s.mu.RUnlock()
	id, err := backend.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

// SwitchNetwork reconnects to the RPC URL configured for chainID. Unknown
// chains fail with the provider's chain-not-added code.
func (s *Session) SwitchNetwork(ctx context.Context, chainID uint64) error {
	if current, err := s.ChainID(ctx); err == nil && current == chainID {
		return nil
	}
	url, ok := s.networks[chainID]
	if !ok || strings.TrimSpace(url) == "" {
		return &ledger.ProviderError{Code: ledger.CodeChainNotAdded, Message: fmt.Sprintf("unrecognized chain id %d", chainID)}
	}
	backend, err := s.dial(ctx, url)
	if err != nil {
		return fmt.Errorf("eth: dial %s: %w", url, err)
	}
	got, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return err
	}
	if got.Uint64() != chainID {
		backend.Close()
		return fmt.Errorf("eth: %s serves chain %d, want %d", url, got.Uint64(), chainID)
	}

	s.mu.Lock()
	old := s.backend
	s.backend = backend
	err = s.bind(backend)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	old.Close()
	s.logger.Info().Uint64("chain_id", chainID).Msg("switched network")
	return nil
}

// Close releases the node connection.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend != nil {
		s.backend.Close()
	}
}
