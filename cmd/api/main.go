package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"crowdfund/internal/adapter/eth"
	"crowdfund/internal/drafts"
	"crowdfund/internal/http/handlers"
	httpapi "crowdfund/internal/http/httpapi"
	"crowdfund/internal/i18n"
	"crowdfund/internal/infra"
	"crowdfund/internal/infra/geoip"
	"crowdfund/internal/ledger"
	"crowdfund/internal/viewstate"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wallet & ledger session
	wallet, err := eth.LoadWallet(cfg.WalletPrivateKey, cfg.WalletKeystorePath, cfg.WalletPassphrase)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load wallet")
	}
	if !wallet.CanSign() {
		logger.Warn().Msg("no wallet configured, ledger is read-only")
	}
	session, err := eth.Dial(ctx, eth.Options{
		RPCURL:          cfg.LedgerRPCURL,
		ContractAddress: cfg.LedgerContractAddress,
		Networks:        cfg.LedgerNetworks,
		Wallet:          wallet,
		Approver:        eth.AutoApprove,
		TxTimeout:       cfg.LedgerTxTimeout,
		Logger:          &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to dial ledger")
	}
	defer session.Close()

	unit, err := ledger.ParseTimeUnit(cfg.LedgerDeadlineUnit)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid deadline unit")
	}
	gateway, err := ledger.NewGateway(ledger.Options{
		Session:      session,
		DeadlineUnit: unit,
		ChainID:      cfg.LedgerChainID,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gateway")
	}

	views, err := viewstate.NewRegistry(viewstate.Options{
		Source:      gateway,
		DonorCounts: true,
		Logger:      &logger,
		MaxProfiles: cfg.ProfileViewsMax,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build view registry")
	}

	// Draft autosave
	repo, closeRepo, err := drafts.OpenRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.DraftStore).Msg("failed to open draft store")
	}
	defer closeRepo()
	saver, err := drafts.New(drafts.Options{
		Repo:     repo,
		Interval: cfg.DraftAutosaveInterval,
		Logger:   &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build autosaver")
	}
	if d, err := saver.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("draft restore failed")
	} else if d != nil {
		logger.Info().Str("revision", d.Revision).Msg("draft restored")
	}
	go func() {
		if err := saver.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("autosave stopped")
		}
	}()

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable")
	}
	if resolver != nil {
		defer resolver.Close()
	}

	app, err := handlers.NewApp(handlers.Options{
		Ledger:  gateway,
		Views:   views,
		Drafts:  saver,
		Catalog: i18n.NewCatalog(),
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build app")
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   geoip.Lookup(resolver),
		Logger:          logger,
	})
	if !cfg.MutationsEnabled() {
		logger.Warn().Msg("JWT_SECRET not set, mutating routes are disabled")
	}

	server := infra.NewHTTPServer(cfg, router)

	// Start async
	go func() {
		logger.Info().Str("addr", server.Addr()).Str("contract", cfg.LedgerContractAddress).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	// Persist whatever is still pending before exit.
	flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFlush()
	if _, err := saver.Flush(flushCtx); err != nil {
		logger.Error().Err(err).Msg("final draft flush failed")
	}
	logger.Info().Msg("server stopped")
}
