package eth

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"crowdfund/internal/domain"
	"crowdfund/internal/ledger"
)

const contractAddr = "0x00000000000000000000000000000000000000C0"

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcHandler func(params []json.RawMessage) (any, *rpcError)

// newRPCServer serves a minimal JSON-RPC node backed by handlers.
func newRPCServer(t *testing.T, handlers map[string]rpcHandler) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		mu.Lock()
		h, ok := handlers[req.Method]
		mu.Unlock()
		if !ok {
			resp["error"] = rpcError{Code: -32601, Message: "method not found: " + req.Method}
		} else if result, rerr := h(req.Params); rerr != nil {
			resp["error"] = rerr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func chainIDHandler(id uint64) rpcHandler {
	return func([]json.RawMessage) (any, *rpcError) {
		return hexutil.EncodeUint64(id), nil
	}
}

func dialTest(t *testing.T, url string, opts Options) *Session {
	t.Helper()
	opts.RPCURL = url
	s, err := Dial(context.Background(), opts)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestCampaignABIParses(t *testing.T) {
	parsed, err := campaignABI()
	if err != nil {
		t.Fatalf("campaignABI: %v", err)
	}
	for _, m := range []string{
		ledger.MethodCreateCampaign, ledger.MethodDeleteCampaign, ledger.MethodDonate,
		ledger.MethodGetCampaigns, ledger.MethodGetCampaign, ledger.MethodGetDonators,
	} {
		if _, ok := parsed.Methods[m]; !ok {
			t.Fatalf("method %s missing from abi", m)
		}
	}
	if !parsed.Methods[ledger.MethodDonate].IsPayable() {
		t.Fatal("donateToCampaign must be payable")
	}
}

func TestInvalidContractAddressIsNotConnected(t *testing.T) {
	srv := newRPCServer(t, map[string]rpcHandler{"eth_chainId": chainIDHandler(ledger.SepoliaChainID)})
	s := dialTest(t, srv.URL, Options{ContractAddress: "not-an-address"})

	c, err := s.Contract(context.Background())
	if err != nil || c != nil {
		t.Fatalf("expected no contract, got %v, %v", c, err)
	}
	gw, err := ledger.NewGateway(ledger.Options{Session: s})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	if _, err := gw.ListCampaigns(context.Background()); !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if st := gw.Status(context.Background()); st.Ready {
		t.Fatalf("expected not ready, got %+v", st)
	}
}

func TestListDonationsOverRPC(t *testing.T) {
	parsed, err := campaignABI()
	if err != nil {
		t.Fatalf("campaignABI: %v", err)
	}
	donor := common.HexToAddress("0x3333333333333333333333333333333333333333")
	packed, err := parsed.Methods[ledger.MethodGetDonators].Outputs.Pack(
		[]common.Address{donor},
		[]*big.Int{big.NewInt(1_500_000_000_000_000_000)},
	)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	srv := newRPCServer(t, map[string]rpcHandler{
		"eth_chainId": chainIDHandler(ledger.SepoliaChainID),
		"eth_call": func([]json.RawMessage) (any, *rpcError) {
			return hexutil.Encode(packed), nil
		},
	})
	s := dialTest(t, srv.URL, Options{ContractAddress: contractAddr})
	gw, err := ledger.NewGateway(ledger.Options{Session: s})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}

	donations, err := gw.ListDonations(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListDonations: %v", err)
	}
	if len(donations) != 1 || donations[0].Donor != donor.Hex() {
		t.Fatalf("unexpected donations %+v", donations)
	}
	if !donations[0].Amount.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("amount = %s", donations[0].Amount)
	}
}

func TestEstimateFeeOverRPC(t *testing.T) {
	srv := newRPCServer(t, map[string]rpcHandler{
		"eth_chainId": chainIDHandler(ledger.SepoliaChainID),
		"eth_estimateGas": func([]json.RawMessage) (any, *rpcError) {
			return hexutil.EncodeUint64(21000), nil
		},
		"eth_gasPrice": func([]json.RawMessage) (any, *rpcError) {
			return hexutil.EncodeBig(big.NewInt(2_000_000_000)), nil
		},
	})
	s := dialTest(t, srv.URL, Options{ContractAddress: contractAddr})
	gw, err := ledger.NewGateway(ledger.Options{Session: s})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	quote := gw.EstimateFee(context.Background(), domain.CampaignForm{
		Owner:    "0x1111111111111111111111111111111111111111",
		Title:    "t",
		Target:   decimal.NewFromInt(1),
		Deadline: time.Now().Add(72 * time.Hour),
	})
	if !quote.Available || !quote.Fee.Equal(decimal.RequireFromString("0.000042")) {
		t.Fatalf("unexpected quote %+v", quote)
	}
}

func TestNodeErrorCodesAreNormalized(t *testing.T) {
	srv := newRPCServer(t, map[string]rpcHandler{
		"eth_chainId": chainIDHandler(ledger.SepoliaChainID),
		"eth_call": func([]json.RawMessage) (any, *rpcError) {
			return nil, &rpcError{Code: ledger.CodeResourceUnavailable, Message: "resource unavailable"}
		},
	})
	s := dialTest(t, srv.URL, Options{ContractAddress: contractAddr})
	gw, err := ledger.NewGateway(ledger.Options{Session: s})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	_, err = gw.ListCampaigns(context.Background())
	e, ok := domain.AsError(err)
	if !ok || e.Kind != domain.KindTransactionFailed || e.Cause != domain.CauseResourceUnavailable {
		t.Fatalf("expected resource-unavailable failure, got %v", err)
	}
}

func TestReadOnlyWalletCannotTransact(t *testing.T) {
	srv := newRPCServer(t, map[string]rpcHandler{"eth_chainId": chainIDHandler(ledger.SepoliaChainID)})
	s := dialTest(t, srv.URL, Options{ContractAddress: contractAddr})

	if acct, _ := s.Account(context.Background()); acct != "" {
		t.Fatalf("read-only wallet reported account %q", acct)
	}
	c, _ := s.Contract(context.Background())
	_, err := c.Transact(context.Background(), ledger.Call{Method: ledger.MethodDeleteCampaign, Args: []any{big.NewInt(0)}})
	var perr *ledger.ProviderError
	if !errors.As(err, &perr) || perr.Code != ledger.CodeUnauthorized {
		t.Fatalf("expected unauthorized provider error, got %v", err)
	}
}

func TestApproverGatesSigning(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	w, err := LoadWallet(hexutil.Encode(crypto.FromECDSA(key)), "", "")
	if err != nil {
		t.Fatalf("LoadWallet: %v", err)
	}
	if w.Address() != crypto.PubkeyToAddress(key.PublicKey).Hex() {
		t.Fatalf("address = %s", w.Address())
	}

	to := common.HexToAddress(contractAddr)
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, To: &to, Value: big.NewInt(5), Gas: 50000, GasPrice: big.NewInt(1)})
	chainID := big.NewInt(int64(ledger.SepoliaChainID))

	var seen SignRequest
	decline := ApproverFunc(func(_ context.Context, req SignRequest) (bool, error) {
		seen = req
		return false, nil
	})
	opts, err := w.transactor(context.Background(), chainID, ledger.MethodDonate, decline)
	if err != nil {
		t.Fatalf("transactor: %v", err)
	}
	_, err = opts.Signer(opts.From, tx)
	var perr *ledger.ProviderError
	if !errors.As(err, &perr) || perr.Code != ledger.CodeUserRejected {
		t.Fatalf("expected user rejection, got %v", err)
	}
	if seen.Method != ledger.MethodDonate || seen.Value.Int64() != 5 || seen.To != to.Hex() {
		t.Fatalf("unexpected sign request %+v", seen)
	}

	opts, err = w.transactor(context.Background(), chainID, ledger.MethodDonate, AutoApprove)
	if err != nil {
		t.Fatalf("transactor: %v", err)
	}
	signed, err := opts.Signer(opts.From, tx)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil || sender != opts.From {
		t.Fatalf("sender = %s, %v", sender.Hex(), err)
	}
}

func TestLoadWalletRejectsBadKey(t *testing.T) {
	if _, err := LoadWallet("zz", "", ""); err == nil {
		t.Fatal("expected parse error")
	}
	w, err := LoadWallet("", "", "")
	if err != nil || w.CanSign() {
		t.Fatalf("expected read-only wallet, got %v", err)
	}
}

func TestSwitchNetwork(t *testing.T) {
	mainnet := newRPCServer(t, map[string]rpcHandler{"eth_chainId": chainIDHandler(1)})
	sepolia := newRPCServer(t, map[string]rpcHandler{"eth_chainId": chainIDHandler(ledger.SepoliaChainID)})

	s := dialTest(t, mainnet.URL, Options{
		ContractAddress: contractAddr,
		Networks:        map[uint64]string{ledger.SepoliaChainID: sepolia.URL},
	})
	ctx := context.Background()

	err := s.SwitchNetwork(ctx, 5)
	var perr *ledger.ProviderError
	if !errors.As(err, &perr) || perr.Code != ledger.CodeChainNotAdded {
		t.Fatalf("expected chain-not-added, got %v", err)
	}

	if err := s.SwitchNetwork(ctx, ledger.SepoliaChainID); err != nil {
		t.Fatalf("SwitchNetwork: %v", err)
	}
	id, err := s.ChainID(ctx)
	if err != nil || id != ledger.SepoliaChainID {
		t.Fatalf("ChainID = %d, %v", id, err)
	}
	if c, _ := s.Contract(ctx); c == nil {
		t.Fatal("contract should be rebound after switching")
	}
}
