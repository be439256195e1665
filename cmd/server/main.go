// Command server runs the portfolio tracking backend API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/actapp/backend/internal/auth"
	"github.com/actapp/backend/internal/clients/coingecko"
	"github.com/actapp/backend/internal/clients/yahoo"
	"github.com/actapp/backend/internal/config"
	"github.com/actapp/backend/internal/database"
	"github.com/actapp/backend/internal/domain"
	"github.com/actapp/backend/internal/identity"
	"github.com/actapp/backend/internal/modules/portfolio"
	"github.com/actapp/backend/internal/modules/users"
	"github.com/actapp/backend/internal/server"
	"github.com/actapp/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet; write to stderr and exit
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting backend API")

	// Accounts and positions share one ledger-profile database. User money
	// records get synchronous FULL.
	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "backend.db"),
		Profile: database.ProfileLedger,
		Name:    "backend",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	identityStore := identity.NewStore(db, log)
	if err := identityStore.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize identity schema")
	}

	positionRepo := portfolio.NewRepository(db, log)
	if err := positionRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize positions schema")
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	guard := auth.NewGuard(tokens, identityStore, log)

	yahooClient := yahoo.NewClient(cfg.StocksAPIURL, cfg.QuoteTimeout, log)
	coingeckoClient := coingecko.NewClient(cfg.CryptoAPIURL, cfg.QuoteTimeout, log)

	stocksService := portfolio.NewService(positionRepo, yahooClient, domain.AssetClassStock, domain.TechStocks, log)
	cryptoService := portfolio.NewService(positionRepo, coingeckoClient, domain.AssetClassCrypto, domain.CryptoAssets, log)
	usersService := users.NewService(db, identityStore, positionRepo, log)

	srv := server.New(server.Config{
		Log:           log,
		DB:            db,
		Config:        cfg,
		Identity:      identityStore,
		Tokens:        tokens,
		Guard:         guard,
		Users:         usersService,
		StocksService: stocksService,
		CryptoService: cryptoService,
	})

	// Run the server in a goroutine so shutdown signals can be handled
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
