package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"crowdfund/internal/adapter/eth"
	"crowdfund/internal/domain"
	"crowdfund/internal/i18n"
	"crowdfund/internal/infra"
	"crowdfund/internal/ledger"
	"crowdfund/internal/middleware"
	"crowdfund/internal/viewstate"
)

const usage = `usage: campaignctl <command> [flags]

commands:
  list            list campaigns (-search, -category, -sort, -hide-inactive, -owner)
  show            show one campaign (-pid)
  donors          list donations to a campaign (-pid)
  create          create a campaign (-title, -description, -target, -deadline, -image, -category)
  fee             estimate the fee for creating a campaign (same flags as create)
  donate          donate to a campaign (-pid, -amount)
  delete          deactivate a campaign you own (-pid)
  status          show wallet, contract and network status
  switch-network  attach the wallet to the configured chain
  token           mint an operator token for the API (-subject, -locale, -ttl)
`

type cli struct {
	cfg     *infra.Config
	logger  infra.Logger
	catalog *i18n.Catalog
	locale  string
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	c := &cli{
		cfg:     cfg,
		logger:  infra.NewCLILogger(cfg.AppEnv, "campaignctl"),
		catalog: i18n.NewCatalog(),
		locale:  i18n.Match(os.Getenv("LANG"), cfg.DefaultLocale).String(),
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "list":
		err = c.list(args)
	case "show":
		err = c.show(args)
	case "donors":
		err = c.donors(args)
	case "create":
		err = c.create(args)
	case "fee":
		err = c.fee(args)
	case "donate":
		err = c.donate(args)
	case "delete":
		err = c.delete(args)
	case "status":
		err = c.status(args)
	case "switch-network":
		err = c.switchNetwork(args)
	case "token":
		err = c.token(args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		exitWithError(c.describe(err))
	}
}

// describe renders gateway errors in the configured locale, with field hints.
func (c *cli) describe(err error) error {
	e, ok := domain.AsError(err)
	if !ok {
		return err
	}
	var b strings.Builder
	b.WriteString(c.catalog.ErrorMessage(c.locale, e))
	for _, f := range e.Fields {
		msg, _ := c.catalog.Message(c.locale, f.Code)
		fmt.Fprintf(&b, "\n  %s: %s", f.Field, msg)
	}
	if e.Retryable() {
		b.WriteString("\n(retry may succeed)")
	}
	return errors.New(b.String())
}

// connect dials the ledger. Unless yes is set, every transaction is confirmed
// on the terminal first.
func (c *cli) connect(ctx context.Context, yes bool) (*ledger.Gateway, func(), error) {
	wallet, err := eth.LoadWallet(c.cfg.WalletPrivateKey, c.cfg.WalletKeystorePath, c.cfg.WalletPassphrase)
	if err != nil {
		return nil, nil, err
	}
	approver := eth.AutoApprove
	if !yes {
		approver = terminalApprover(bufio.NewReader(os.Stdin))
	}
	session, err := eth.Dial(ctx, eth.Options{
		RPCURL:          c.cfg.LedgerRPCURL,
		ContractAddress: c.cfg.LedgerContractAddress,
		Networks:        c.cfg.LedgerNetworks,
		Wallet:          wallet,
		Approver:        approver,
		TxTimeout:       c.cfg.LedgerTxTimeout,
		Logger:          &c.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	unit, err := ledger.ParseTimeUnit(c.cfg.LedgerDeadlineUnit)
	if err != nil {
		session.Close()
		return nil, nil, err
	}
	gw, err := ledger.NewGateway(ledger.Options{
		Session:      session,
		DeadlineUnit: unit,
		ChainID:      c.cfg.LedgerChainID,
		Logger:       &c.logger,
	})
	if err != nil {
		session.Close()
		return nil, nil, err
	}
	return gw, session.Close, nil
}

func terminalApprover(in *bufio.Reader) eth.Approver {
	return eth.ApproverFunc(func(ctx context.Context, req eth.SignRequest) (bool, error) {
		fmt.Fprintf(os.Stderr, "sign %s from %s to %s", req.Method, req.From, req.To)
		if req.Value != nil && req.Value.Sign() > 0 {
			fmt.Fprintf(os.Stderr, " value %s ETH", ledger.FromWei(req.Value))
		}
		fmt.Fprintf(os.Stderr, " (gas %d, nonce %d)? [y/N] ", req.Gas, req.Nonce)
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}

func timeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func (c *cli) list(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	search := fs.String("search", "", "case-insensitive title or description match")
	category := fs.String("category", "", "category filter")
	sortKey := fs.String("sort", string(viewstate.SortNewest), "newest, oldest, target_high, target_low, progress, deadline")
	hideInactive := fs.Bool("hide-inactive", false, "hide expired and closed campaigns")
	owner := fs.String("owner", "", "only campaigns owned by this account (me for the wallet account)")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := timeout(30 * time.Second)
	defer cancel()
	gw, closeFn, err := c.connect(ctx, true)
	if err != nil {
		return err
	}
	defer closeFn()

	who := strings.TrimSpace(*owner)
	if who == "me" {
		who = gw.Status(ctx).Account
	}
	store, err := viewstate.NewStore(viewstate.Options{Source: gw, Owner: who, DonorCounts: true, Logger: &c.logger})
	if err != nil {
		return err
	}
	if err := store.Refresh(ctx); err != nil {
		return err
	}
	q := viewstate.Query{
		Search:       *search,
		Category:     *category,
		Sort:         viewstate.ParseSortKey(*sortKey),
		HideInactive: *hideInactive,
	}
	items := store.ApplyFilters(q)
	stats := store.Aggregate()
	if *asJSON {
		return printJSON(map[string]any{"stats": stats, "items": items})
	}

	now := gw.Now()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tTITLE\tRAISED\tTARGET\tPROGRESS\tDEADLINE\tSTATE")
	for _, camp := range items {
		state := "open"
		switch {
		case !camp.IsActive:
			state = "closed"
		case camp.Expired(now):
			state = "ended"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s%%\t%s\t%s\n",
			camp.PID, camp.Title, camp.AmountCollected, camp.Target,
			camp.Progress().Mul(decimal.NewFromInt(100)).Round(1),
			camp.Deadline.Local().Format("2006-01-02 15:04"), state)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d campaigns, %d active, %s ETH raised from %d backers\n",
		stats.TotalCampaigns, stats.ActiveCampaigns, stats.TotalRaised, stats.TotalBackers)
	return nil
}

func (c *cli) show(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	pid := fs.Int64("pid", -1, "campaign id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, cancel := timeout(30 * time.Second)
	defer cancel()
	gw, closeFn, err := c.connect(ctx, true)
	if err != nil {
		return err
	}
	defer closeFn()

	camp, found, err := gw.GetCampaign(ctx, *pid)
	if err != nil {
		return err
	}
	if !found {
		return &domain.Error{Kind: domain.KindNotFound, Code: domain.CodeNotFound, Op: "show"}
	}
	return printJSON(camp)
}

func (c *cli) donors(args []string) error {
	fs := flag.NewFlagSet("donors", flag.ContinueOnError)
	pid := fs.Int64("pid", -1, "campaign id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, cancel := timeout(30 * time.Second)
	defer cancel()
	gw, closeFn, err := c.connect(ctx, true)
	if err != nil {
		return err
	}
	defer closeFn()

	list, err := gw.ListDonations(ctx, *pid)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DONOR\tAMOUNT")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s\n", d.Donor, d.Amount)
	}
	return tw.Flush()
}

func formFlags(fs *flag.FlagSet) *domain.Draft {
	d := &domain.Draft{}
	fs.StringVar(&d.Title, "title", "", "campaign title")
	fs.StringVar(&d.Description, "description", "", "campaign description")
	fs.StringVar(&d.Target, "target", "", "target amount in ETH")
	fs.StringVar(&d.Deadline, "deadline", "", "deadline (RFC3339 or YYYY-MM-DD, local time)")
	fs.StringVar(&d.Image, "image", "", "image URL")
	fs.StringVar(&d.Category, "category", "", "category")
	return d
}

func (c *cli) create(args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	draft := formFlags(fs)
	yes := fs.Bool("yes", false, "sign without confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	form, err := draft.Form("", time.Local)
	if err != nil {
		return err
	}
	ctx, cancel := timeout(c.txBudget())
	defer cancel()
	gw, closeFn, err := c.connect(ctx, *yes)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintf(os.Stderr, "estimated fee: %s\n", gw.EstimateFee(ctx, form))
	tx, err := gw.CreateCampaign(ctx, form)
	if err != nil {
		return err
	}
	return printJSON(tx)
}

func (c *cli) fee(args []string) error {
	fs := flag.NewFlagSet("fee", flag.ContinueOnError)
	draft := formFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	form, err := draft.Form("", time.Local)
	if err != nil {
		return err
	}
	ctx, cancel := timeout(30 * time.Second)
	defer cancel()
	gw, closeFn, err := c.connect(ctx, true)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Println(gw.EstimateFee(ctx, form))
	return nil
}

func (c *cli) donate(args []string) error {
	fs := flag.NewFlagSet("donate", flag.ContinueOnError)
	pid := fs.Int64("pid", -1, "campaign id")
	amount := fs.String("amount", "", "amount in ETH")
	yes := fs.Bool("yes", false, "sign without confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	value, err := decimal.NewFromString(strings.TrimSpace(*amount))
	if err != nil {
		return domain.NewValidationError("donate", domain.FieldError{Field: "amount", Code: domain.CodeDonationAmountInvalid})
	}
	ctx, cancel := timeout(c.txBudget())
	defer cancel()
	gw, closeFn, err := c.connect(ctx, *yes)
	if err != nil {
		return err
	}
	defer closeFn()

	last, _, err := gw.GetCampaign(ctx, *pid)
	if err != nil {
		c.logger.Debug().Err(err).Msg("pre-donation read failed")
		last = nil
	}
	tx, err := gw.Donate(ctx, *pid, value, last)
	if err != nil {
		return err
	}
	out := map[string]any{"tx": tx}
	if fresh, found, err := gw.GetCampaign(ctx, *pid); err == nil && found {
		out["amount_collected"] = fresh.AmountCollected
	}
	return printJSON(out)
}

func (c *cli) delete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	pid := fs.Int64("pid", -1, "campaign id")
	yes := fs.Bool("yes", false, "sign without confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, cancel := timeout(c.txBudget())
	defer cancel()
	gw, closeFn, err := c.connect(ctx, *yes)
	if err != nil {
		return err
	}
	defer closeFn()

	tx, err := gw.DeleteCampaign(ctx, *pid)
	if err != nil {
		return err
	}
	return printJSON(tx)
}

func (c *cli) status(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, cancel := timeout(15 * time.Second)
	defer cancel()
	gw, closeFn, err := c.connect(ctx, true)
	if err != nil {
		return err
	}
	defer closeFn()
	return printJSON(gw.Status(ctx))
}

func (c *cli) switchNetwork(args []string) error {
	fs := flag.NewFlagSet("switch-network", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, cancel := timeout(30 * time.Second)
	defer cancel()
	gw, closeFn, err := c.connect(ctx, true)
	if err != nil {
		return err
	}
	defer closeFn()
	if err := gw.SwitchNetwork(ctx); err != nil {
		return err
	}
	return printJSON(gw.Status(ctx))
}

func (c *cli) token(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "operator", "token subject")
	locale := fs.String("locale", "", "preferred locale carried in the token")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime (0 for no expiry)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	tok, err := middleware.SignJWT(c.cfg.JWTSecret, *subject, *locale, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

// txBudget bounds a transacting command: the confirmation wait plus the
// configured receipt timeout.
func (c *cli) txBudget() time.Duration {
	budget := 5 * time.Minute
	if c.cfg.LedgerTxTimeout > 0 {
		budget += c.cfg.LedgerTxTimeout
	}
	return budget
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
