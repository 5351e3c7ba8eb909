package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rvaz/eqledger/internal/archive"
	"github.com/rvaz/eqledger/internal/config"
	"github.com/rvaz/eqledger/internal/database"
	eqHttp "github.com/rvaz/eqledger/internal/http"
	ledgerHandler "github.com/rvaz/eqledger/internal/http/ledger"
	"github.com/rvaz/eqledger/internal/ledger"
	"github.com/rvaz/eqledger/internal/ledger/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	st := store.New()

	var archiver ledger.Archiver

	if cfg.ArchiveEnabled() {
		db, err := database.New(cfg.ConnectionString())
		if err != nil {
			slog.Error("failed to connect to archive database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		arc := archive.New(db)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if cfg.Archive.Migrate {
			if err := arc.Migrate(ctx); err != nil {
				slog.Error("failed to migrate archive", "error", err)
				os.Exit(1)
			}
		}

		if err := seedFromArchive(ctx, arc, st); err != nil {
			slog.Error("failed to load archive", "error", err)
			os.Exit(1)
		}

		archiver = arc
	}

	ledgerService := ledger.NewService(st, archiver)

	router := eqHttp.New(ledgerHandler.NewHandler(ledgerService), cfg.Auth.JWTSecret)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "app", cfg.App.Name, "port", port, "archive", cfg.ArchiveEnabled())

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// seedFromArchive replays the durable record sets into the in-memory store
// before the engine starts taking operations.
func seedFromArchive(ctx context.Context, arc *archive.Archive, st *store.Store) error {
	accounts, transactions, entries, err := arc.Load(ctx)
	if err != nil {
		return err
	}

	for _, a := range accounts {
		st.AddAccount(a)
	}

	for _, tx := range transactions {
		st.AddTransaction(tx)
	}

	st.AddEntries(entries...)

	slog.Info("archive loaded",
		"accounts", len(accounts),
		"transactions", len(transactions),
		"entries", len(entries),
	)

	return nil
}
