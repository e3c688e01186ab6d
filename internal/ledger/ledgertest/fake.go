// Package ledgertest provides an in-memory campaign contract for tests.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"crowdfund/internal/ledger"
)

// Record mirrors the tuple the deployed contract returns from getCampaigns.
type Record struct {
	Owner           common.Address
	Title           string
	Description     string
	Target          *big.Int
	Deadline        *big.Int
	AmountCollected *big.Int
	Image           string
	Donators        []common.Address
	Donations       []*big.Int
	IsActive        bool
}

// Contract is a thread-safe fake of the campaign contract. Transactions are
// attributed to From.
type Contract struct {
	mu sync.Mutex

	From string
	Addr string
	// NoPointLookup makes getCampaign fail as if the entry point did not exist.
	NoPointLookup bool
	// TransactErr, when set, is returned by every Transact call.
	TransactErr error
	// CallErr maps a method to the error Call returns for it.
	CallErr     map[string]error
	EstimateErr error
	Gas         uint64
	Price       *big.Int

	records      []Record
	transactions int
	calls        map[string]int
}

// NewContract returns an empty contract with transactions sent from from.
func NewContract(from string) *Contract {
	return &Contract{
		From:  from,
		Addr:  "0x00000000000000000000000000000000000000C0",
		Gas:   21000,
		Price: big.NewInt(1_000_000_000),
		calls: make(map[string]int),
	}
}

// Seed appends records as if they had been created on the ledger.
func (c *Contract) Seed(records ...Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range records {
		if r.AmountCollected == nil {
			r.AmountCollected = new(big.Int)
		}
		c.records = append(c.records, r)
	}
}

// SetFrom switches the account transactions are attributed to.
func (c *Contract) SetFrom(from string) {
	c.mu.Lock()
	c.From = from
	c.mu.Unlock()
}

// Transactions counts Transact calls that reached the contract.
func (c *Contract) Transactions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transactions
}

// Calls counts read calls per method.
func (c *Contract) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *Contract) Address() string { return c.Addr }

func (c *Contract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	if err := c.CallErr[method]; err != nil {
		return nil, err
	}
	switch method {
	case ledger.MethodGetCampaigns:
		out := make([]Record, len(c.records))
		for i, r := range c.records {
			out[i] = clone(r)
		}
		return []any{out}, nil
	case ledger.MethodGetCampaign:
		if c.NoPointLookup {
			return nil, &ledger.ProviderError{Code: -32601, Message: "the method getCampaign does not exist"}
		}
		id, err := index(args)
		if err != nil {
			return nil, err
		}
		if id >= len(c.records) {
			return []any{Record{}}, nil
		}
		return []any{clone(c.records[id])}, nil
	case ledger.MethodGetDonators:
		id, err := index(args)
		if err != nil {
			return nil, err
		}
		if id >= len(c.records) {
			return []any{[]common.Address{}, []*big.Int{}}, nil
		}
		r := clone(c.records[id])
		return []any{r.Donators, r.Donations}, nil
	}
	return nil, &ledger.ProviderError{Code: ledger.CodeUnsupportedMethod, Message: "unsupported method " + method}
}

func (c *Contract) Transact(ctx context.Context, call ledger.Call) (*ledger.TxResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions++
	if c.TransactErr != nil {
		return nil, c.TransactErr
	}
	from := common.HexToAddress(c.From)
	switch call.Method {
	case ledger.MethodCreateCampaign:
		if len(call.Args) != 6 {
			return nil, fmt.Errorf("createCampaign: want 6 args, got %d", len(call.Args))
		}
		owner, _ := call.Args[0].(common.Address)
		if owner != from {
			return nil, revert("owner must be sender")
		}
		c.records = append(c.records, Record{
			Owner:           owner,
			Title:           call.Args[1].(string),
			Description:     call.Args[2].(string),
			Target:          new(big.Int).Set(call.Args[3].(*big.Int)),
			Deadline:        new(big.Int).Set(call.Args[4].(*big.Int)),
			AmountCollected: new(big.Int),
			Image:           call.Args[5].(string),
			IsActive:        true,
		})
	case ledger.MethodDeleteCampaign:
		id, err := index(call.Args)
		if err != nil {
			return nil, err
		}
		if id >= len(c.records) {
			return nil, revert("campaign does not exist")
		}
		if c.records[id].Owner != from {
			return nil, revert("not owner")
		}
		c.records[id].IsActive = false
	case ledger.MethodDonate:
		id, err := index(call.Args)
		if err != nil {
			return nil, err
		}
		if id >= len(c.records) || !c.records[id].IsActive {
			return nil, revert("campaign does not exist")
		}
		value := new(big.Int)
		if call.Value != nil {
			value.Set(call.Value)
		}
		r := &c.records[id]
		r.Donators = append(r.Donators, from)
		r.Donations = append(r.Donations, value)
		r.AmountCollected = new(big.Int).Add(r.AmountCollected, value)
	default:
		return nil, &ledger.ProviderError{Code: ledger.CodeUnsupportedMethod, Message: "unsupported method " + call.Method}
	}
	return &ledger.TxResult{
		Hash:        fmt.Sprintf("0x%064x", c.transactions),
		BlockNumber: uint64(c.transactions),
		GasUsed:     c.Gas,
	}, nil
}

func (c *Contract) EstimateGas(ctx context.Context, call ledger.Call) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.EstimateErr != nil {
		return 0, c.EstimateErr
	}
	return c.Gas, nil
}

func (c *Contract) GasPrice(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Price == nil {
		return nil, errors.New("gas price unavailable")
	}
	return new(big.Int).Set(c.Price), nil
}

func revert(reason string) error {
	return &ledger.ProviderError{Code: 3, Message: "execution reverted: " + reason}
}

func index(args []any) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("missing id argument")
	}
	id, ok := args[0].(*big.Int)
	if !ok || id.Sign() < 0 || !id.IsInt64() {
		return 0, fmt.Errorf("bad id argument %v", args[0])
	}
	return int(id.Int64()), nil
}

func clone(r Record) Record {
	out := r
	out.Donators = append([]common.Address(nil), r.Donators...)
	out.Donations = make([]*big.Int, len(r.Donations))
	for i, d := range r.Donations {
		out.Donations[i] = new(big.Int).Set(d)
	}
	return out
}

// Session is a fake wallet session.
type Session struct {
	mu sync.Mutex

	Acct      string
	Bound     ledger.Contract
	Chain     uint64
	SwitchErr error
}

// NewSession binds c and connects account.
func NewSession(account string, c *Contract) *Session {
	s := &Session{Acct: account, Chain: ledger.SepoliaChainID}
	if c != nil {
		s.Bound = c
	}
	return s
}

func (s *Session) Account(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Acct, nil
}

// Connect switches the connected account.
func (s *Session) Connect(account string) {
	s.mu.Lock()
	s.Acct = strings.TrimSpace(account)
	s.mu.Unlock()
}

func (s *Session) Contract(context.Context) (ledger.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Bound, nil
}

func (s *Session) ChainID(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Chain, nil
}

func (s *Session) SwitchNetwork(_ context.Context, chainID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SwitchErr != nil {
		return s.SwitchErr
	}
	s.Chain = chainID
	return nil
}
