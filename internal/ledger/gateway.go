package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crowdfund/internal/domain"
	"crowdfund/internal/infra"
)

// SepoliaChainID is the network the client targets unless configured otherwise.
const SepoliaChainID uint64 = 11155111

// Options configures a Gateway.
type Options struct {
	Session      Session
	Policy       *Policy
	DeadlineUnit TimeUnit
	// ChainID is the network SwitchNetwork targets and Status compares against.
	ChainID uint64
	Now     func() time.Time
	Logger  *infra.Logger
}

// Gateway is the validated, error-normalized interface to the campaign ledger.
// It holds no account or contract state of its own; both are read from the
// session on every call.
type Gateway struct {
	session Session
	policy  Policy
	unit    TimeUnit
	chainID uint64
	now     func() time.Time
	logger  *infra.Logger
	locks   *keyedMutex
}

// FeeQuote is a best-effort fee estimate for creating a campaign.
type FeeQuote struct {
	Available bool            `json:"available"`
	Gas       uint64          `json:"gas,omitempty"`
	GasPrice  *big.Int        `json:"gas_price,omitempty"`
	Fee       decimal.Decimal `json:"fee"`
}

func (q FeeQuote) String() string {
	if !q.Available {
		return "unavailable"
	}
	return q.Fee.String() + " ETH"
}

// ConnectionStatus describes the current session. Ready is false whenever
// ledger calls would fail with LedgerUnavailable.
type ConnectionStatus struct {
	Account       string `json:"account,omitempty"`
	Contract      string `json:"contract,omitempty"`
	ChainID       uint64 `json:"chain_id,omitempty"`
	TargetChainID uint64 `json:"target_chain_id"`
	WrongNetwork  bool   `json:"wrong_network"`
	Ready         bool   `json:"ready"`
	Reason        string `json:"reason,omitempty"`
}

// NewGateway builds a Gateway. Session is required.
func NewGateway(opts Options) (*Gateway, error) {
	if opts.Session == nil {
		return nil, errors.New("ledger: session is required")
	}
	policy := DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	unit := opts.DeadlineUnit
	if unit == "" {
		unit = UnitMilliseconds
	}
	chainID := opts.ChainID
	if chainID == 0 {
		chainID = SepoliaChainID
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Gateway{
		session: opts.Session,
		policy:  policy,
		unit:    unit,
		chainID: chainID,
		now:     now,
		logger:  logger,
		locks:   newKeyedMutex(),
	}, nil
}

// Now returns the gateway clock.
func (g *Gateway) Now() time.Time { return g.now() }

// Policy returns the advisory limits in force.
func (g *Gateway) Policy() Policy { return g.policy }

// DeadlineUnit returns the unit deadlines are written in.
func (g *Gateway) DeadlineUnit() TimeUnit { return g.unit }

func (g *Gateway) contract(ctx context.Context, op string) (Contract, error) {
	c, err := g.session.Contract(ctx)
	if err != nil {
		e := domain.Unavailable(op, "contract not connected")
		e.Err = err
		return nil, e
	}
	if c == nil {
		return nil, domain.Unavailable(op, "contract not connected")
	}
	return c, nil
}

func (g *Gateway) account(ctx context.Context, op string) (string, error) {
	acct, err := g.session.Account(ctx)
	if err != nil {
		e := domain.Unavailable(op, "no account connected")
		e.Err = err
		return "", e
	}
	acct = strings.TrimSpace(acct)
	if acct == "" {
		return "", domain.Unavailable(op, "no account connected")
	}
	return acct, nil
}

// signer resolves both the contract and the signing account for mutations.
func (g *Gateway) signer(ctx context.Context, op string) (Contract, string, error) {
	c, err := g.contract(ctx, op)
	if err != nil {
		return nil, "", err
	}
	acct, err := g.account(ctx, op)
	if err != nil {
		return nil, "", err
	}
	return c, acct, nil
}

func (g *Gateway) transact(ctx context.Context, op string, c Contract, call Call) (*TxResult, error) {
	start := g.now()
	g.logger.Debug().Str("op", op).Str("method", call.Method).Msg("ledger transact")
	res, err := c.Transact(ctx, call)
	if err != nil {
		nerr := normalizeError(op, err)
		g.logFailure(op, call.Method, nerr)
		return nil, nerr
	}
	ev := g.logger.Info().Str("op", op).Str("method", call.Method).Dur("elapsed", g.now().Sub(start))
	if res != nil {
		ev = ev.Str("tx", res.Hash).Uint64("block", res.BlockNumber)
	}
	ev.Msg("ledger transaction settled")
	return res, nil
}

func (g *Gateway) call(ctx context.Context, op string, c Contract, method string, args ...any) ([]any, error) {
	g.logger.Debug().Str("op", op).Str("method", method).Msg("ledger call")
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		nerr := normalizeError(op, err)
		g.logFailure(op, method, nerr)
		return nil, nerr
	}
	return out, nil
}

func (g *Gateway) logFailure(op, method string, err error) {
	e, ok := domain.AsError(err)
	if ok && e.Kind == domain.KindTransactionRejected {
		g.logger.Info().Str("op", op).Str("method", method).Msg("transaction declined by signer")
		return
	}
	ev := g.logger.Error().Err(err).Str("op", op).Str("method", method)
	if ok {
		ev = ev.Str("kind", string(e.Kind)).Str("code", string(e.Code))
	}
	ev.Msg("ledger call failed")
}

func (g *Gateway) createCall(form domain.CampaignForm) Call {
	return Call{
		Method: MethodCreateCampaign,
		Args: []any{
			common.HexToAddress(form.Owner),
			strings.TrimSpace(form.Title),
			strings.TrimSpace(form.Description),
			ToWei(form.Target),
			g.unit.EncodeTime(form.Deadline),
			strings.TrimSpace(form.Image),
		},
	}
}

// CreateCampaign validates the form and submits createCampaign. An empty
// owner defaults to the connected account.
func (g *Gateway) CreateCampaign(ctx context.Context, form domain.CampaignForm) (*TxResult, error) {
	const op = "create campaign"
	if fields := g.policy.ValidateForm(form, g.now()); len(fields) > 0 {
		return nil, domain.NewValidationError(op, fields...)
	}
	c, acct, err := g.signer(ctx, op)
	if err != nil {
		return nil, err
	}
	owner := strings.TrimSpace(form.Owner)
	if owner == "" {
		owner = acct
	}
	if !common.IsHexAddress(owner) || !strings.EqualFold(owner, acct) {
		return nil, domain.NewValidationError(op, domain.FieldError{Field: "owner", Code: domain.CodeOwnerMismatch})
	}
	form.Owner = owner

	unlock := g.locks.Lock(createKey)
	defer unlock()
	return g.transact(ctx, op, c, g.createCall(form))
}

// DeleteCampaign submits deleteCampaign. Ownership is enforced by the ledger
// and surfaces as a NotOwner error.
func (g *Gateway) DeleteCampaign(ctx context.Context, pid int64) (*TxResult, error) {
	const op = "delete campaign"
	if pid < 0 {
		return nil, domain.NewValidationError(op, domain.FieldError{Field: "pid", Code: domain.CodeCampaignIDInvalid})
	}
	c, _, err := g.signer(ctx, op)
	if err != nil {
		return nil, err
	}
	unlock := g.locks.Lock(pid)
	defer unlock()
	return g.transact(ctx, op, c, Call{Method: MethodDeleteCampaign, Args: []any{big.NewInt(pid)}})
}

// Donate submits a payable donateToCampaign. last is the campaign as most
// recently read, if the caller has it; the expiry and ownership checks against
// it are advisory. The collected amount is never adjusted locally.
func (g *Gateway) Donate(ctx context.Context, pid int64, amount decimal.Decimal, last *domain.Campaign) (*TxResult, error) {
	const op = "donate"
	var fields []domain.FieldError
	if pid < 0 {
		fields = append(fields, domain.FieldError{Field: "pid", Code: domain.CodeCampaignIDInvalid})
	}
	fields = append(fields, g.policy.ValidateDonation(amount)...)
	if len(fields) > 0 {
		return nil, domain.NewValidationError(op, fields...)
	}

	c, acct, err := g.signer(ctx, op)
	if err != nil {
		return nil, err
	}
	if last != nil && last.PID == pid {
		switch {
		case last.Expired(g.now()):
			return nil, domain.NewValidationError(op, domain.FieldError{Field: "pid", Code: domain.CodeCampaignExpired})
		case !last.IsActive:
			return nil, domain.NewValidationError(op, domain.FieldError{Field: "pid", Code: domain.CodeCampaignClosed})
		case last.OwnedBy(acct):
			return nil, domain.NewValidationError(op, domain.FieldError{Field: "pid", Code: domain.CodeOwnCampaign})
		}
	}

	unlock := g.locks.Lock(pid)
	defer unlock()
	return g.transact(ctx, op, c, Call{
		Method: MethodDonate,
		Args:   []any{big.NewInt(pid)},
		Value:  ToWei(amount),
	})
}

// ListCampaigns reads every campaign record. Each campaign's pId is its
// position in the ledger's enumeration.
func (g *Gateway) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	const op = "list campaigns"
	c, err := g.contract(ctx, op)
	if err != nil {
		return nil, err
	}
	out, err := g.call(ctx, op, c, MethodGetCampaigns)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return []domain.Campaign{}, nil
	}
	raw, ok := sliceOf(out[0])
	if !ok {
		return nil, failed(op, domain.CauseNone, domain.CodeTxFailed, "malformed campaign list",
			fmt.Errorf("ledger: getCampaigns returned %T", out[0]))
	}
	campaigns := make([]domain.Campaign, 0, len(raw))
	for i, rec := range raw {
		camp, err := decodeCampaign(rec, int64(i), g.unit)
		if err != nil {
			g.logger.Warn().Err(err).Int("pid", i).Msg("skipping malformed campaign record")
			continue
		}
		campaigns = append(campaigns, camp)
	}
	return campaigns, nil
}

// ListCampaignsByOwner filters ListCampaigns by owner. An empty owner means
// the connected account.
func (g *Gateway) ListCampaignsByOwner(ctx context.Context, owner string) ([]domain.Campaign, error) {
	const op = "list owner campaigns"
	owner = strings.TrimSpace(owner)
	if owner == "" {
		acct, err := g.account(ctx, op)
		if err != nil {
			return nil, err
		}
		owner = acct
	}
	all, err := g.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	owned := make([]domain.Campaign, 0)
	for _, c := range all {
		if c.OwnedBy(owner) {
			owned = append(owned, c)
		}
	}
	return owned, nil
}

// GetCampaign looks up one campaign. When the point lookup is missing, fails,
// or returns an empty record, it scans ListCampaigns instead. A missing
// campaign is reported as found=false with a nil error.
func (g *Gateway) GetCampaign(ctx context.Context, pid int64) (*domain.Campaign, bool, error) {
	const op = "get campaign"
	if pid < 0 {
		return nil, false, domain.NewValidationError(op, domain.FieldError{Field: "pid", Code: domain.CodeCampaignIDInvalid})
	}
	c, err := g.contract(ctx, op)
	if err != nil {
		return nil, false, err
	}

	out, err := c.Call(ctx, MethodGetCampaign, big.NewInt(pid))
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return nil, false, normalizeError(op, err)
		}
		g.logger.Debug().Err(err).Int64("pid", pid).Msg("point lookup failed, scanning campaign list")
	case len(out) == 0:
		g.logger.Debug().Int64("pid", pid).Msg("point lookup returned nothing, scanning campaign list")
	default:
		camp, derr := decodeCampaign(out[0], pid, g.unit)
		if derr == nil && !isBlankCampaign(camp) {
			return &camp, true, nil
		}
		g.logger.Debug().AnErr("decode", derr).Int64("pid", pid).Msg("point lookup unusable, scanning campaign list")
	}

	all, err := g.ListCampaigns(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range all {
		if all[i].PID == pid {
			camp := all[i]
			return &camp, true, nil
		}
	}
	return nil, false, nil
}

// ListDonations pairs the donor and amount arrays returned by getDonators.
func (g *Gateway) ListDonations(ctx context.Context, pid int64) ([]domain.Donation, error) {
	const op = "list donations"
	if pid < 0 {
		return nil, domain.NewValidationError(op, domain.FieldError{Field: "pid", Code: domain.CodeCampaignIDInvalid})
	}
	c, err := g.contract(ctx, op)
	if err != nil {
		return nil, err
	}
	out, err := g.call(ctx, op, c, MethodGetDonators, big.NewInt(pid))
	if err != nil {
		return nil, err
	}
	switch len(out) {
	case 0:
		return []domain.Donation{}, nil
	case 1:
		return nil, failed(op, domain.CauseNone, domain.CodeTxFailed, "malformed donor list",
			errors.New("ledger: getDonators returned a single value"))
	}
	donations, skew, err := decodeDonations(pid, out[0], out[1])
	if err != nil {
		return nil, failed(op, domain.CauseNone, domain.CodeTxFailed, "malformed donor list", err)
	}
	if skew != 0 {
		g.logger.Warn().Int64("pid", pid).Int("skew", skew).Msg("donor and amount lists differ in length")
	}
	return donations, nil
}

// EstimateFee quotes gas × gas price for creating form. It never fails; any
// problem yields an unavailable quote.
func (g *Gateway) EstimateFee(ctx context.Context, form domain.CampaignForm) FeeQuote {
	const op = "estimate fee"
	c, err := g.contract(ctx, op)
	if err != nil {
		return FeeQuote{}
	}
	if strings.TrimSpace(form.Owner) == "" {
		if acct, err := g.session.Account(ctx); err == nil {
			form.Owner = acct
		}
	}
	gas, err := c.EstimateGas(ctx, g.createCall(form))
	if err != nil {
		g.logger.Debug().Err(err).Msg("fee estimate unavailable")
		return FeeQuote{}
	}
	price, err := c.GasPrice(ctx)
	if err != nil || price == nil {
		g.logger.Debug().Err(err).Msg("gas price unavailable")
		return FeeQuote{}
	}
	wei := new(big.Int).Mul(new(big.Int).SetUint64(gas), price)
	return FeeQuote{Available: true, Gas: gas, GasPrice: price, Fee: FromWei(wei)}
}

// SwitchNetwork asks the provider to attach to the configured chain.
func (g *Gateway) SwitchNetwork(ctx context.Context) error {
	const op = "switch network"
	if err := g.session.SwitchNetwork(ctx, g.chainID); err != nil {
		nerr := normalizeError(op, err)
		g.logFailure(op, "switchNetwork", nerr)
		return nerr
	}
	g.logger.Info().Uint64("chain_id", g.chainID).Msg("network switched")
	return nil
}

// Status reports the session state without failing.
func (g *Gateway) Status(ctx context.Context) ConnectionStatus {
	st := ConnectionStatus{TargetChainID: g.chainID}
	if acct, err := g.session.Account(ctx); err == nil {
		st.Account = strings.TrimSpace(acct)
	}
	if c, err := g.session.Contract(ctx); err == nil && c != nil {
		st.Contract = c.Address()
	}
	if id, err := g.session.ChainID(ctx); err == nil {
		st.ChainID = id
		st.WrongNetwork = id != g.chainID
	}
	switch {
	case st.Contract == "":
		st.Reason = "contract not connected"
	case st.Account == "":
		st.Reason = "no account connected"
	case st.WrongNetwork:
		st.Reason = "wrong network"
	default:
		st.Ready = true
	}
	return st
}
