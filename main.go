package main

import (
	"auction-ledger/internal/config"
	ledger "auction-ledger/internal/ledgerService"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/repository"
	"auction-ledger/internal/server"
	"auction-ledger/internal/storage/jsonstore"
	"auction-ledger/internal/storage/sqlitestore"
	"auction-ledger/utils"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := utils.SetLevel(cfg.LogLevel); err != nil {
		utils.Warn("unknown log level, keeping info", map[string]any{"level": cfg.LogLevel})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to open snapshot store", map[string]any{"store": cfg.Store, "error": err.Error()})
	}
	defer closeStore()

	minIncrement, _ := cfg.MinIncrementDecimal() // validated by config.Parse
	opts := []ledger.Option{ledger.WithMinIncrement(minIncrement)}
	if store != nil {
		opts = append(opts, ledger.WithStore(store))
	}

	ledgerSvc := ledger.NewLedgerService(repository.NewMemoryRepo(), opts...)
	if err := ledgerSvc.Restore(ctx); err != nil {
		utils.Fatal("failed to restore ledger", map[string]any{"error": err.Error()})
	}

	if cfg.SeedDemo {
		if err := seedDemo(ctx, ledgerSvc); err != nil {
			utils.Warn("demo seed skipped", map[string]any{"error": err.Error()})
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := server.SetupRouter(ledgerSvc)

	srv := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		utils.Info("starting auction server", map[string]any{
			"addr":          cfg.RunAddress,
			"store":         cfg.Store,
			"min_increment": minIncrement.String(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		utils.Info("shutting down server", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		utils.Info("server stopped gracefully", nil)
		return nil
	})

	if err := g.Wait(); err != nil {
		utils.Fatal("application terminated with error", map[string]any{"error": err.Error()})
	}
}

// openStore builds the configured persistence adapter; the memory store has none
func openStore(ctx context.Context, cfg *config.Config) (ledger.SnapshotStore, func(), error) {
	switch cfg.Store {
	case config.StoreJSON:
		store, err := jsonstore.NewFileStore(cfg.DataFile)
		return store, func() {}, err
	case config.StoreSQLite:
		store, err := sqlitestore.NewStore(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				utils.Warn("failed to close database", map[string]any{"error": err.Error()})
			}
		}, nil
	default:
		return nil, func() {}, nil
	}
}

// seedDemo adds sample users and auctions to an empty ledger
func seedDemo(ctx context.Context, svc *ledger.LedgerService) error {
	if len(svc.ListUsers(ctx)) > 0 {
		return errors.New("ledger is not empty")
	}

	alice, err := svc.RegisterUser(ctx, "alice", "alice@example.com", "alice")
	if err != nil {
		return err
	}
	if _, err := svc.RegisterUser(ctx, "bob", "bob@example.com", "bob"); err != nil {
		return err
	}

	deadline := time.Now().UTC().Add(7 * 24 * time.Hour)
	factor := decimal.NewFromInt(3)
	items := []struct {
		title, description string
		price              int64
		policy             model.ClosingPolicy
	}{
		{"Brass lamp", "desk lamp, works", 100, model.ClosingPolicy{Deadline: &deadline}},
		{"Oak chair", "closes at three times the starting price", 200, model.ClosingPolicy{ThresholdMultiple: &factor}},
		{"Bike", "either rule", 150, model.ClosingPolicy{Deadline: &deadline, ThresholdMultiple: &factor}},
	}

	for _, it := range items {
		if _, err := svc.CreateAuction(ctx, alice.UserID, it.title, it.description, decimal.NewFromInt(it.price), it.policy); err != nil {
			return err
		}
	}
	return nil
}
