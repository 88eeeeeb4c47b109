// Package main runs the wallet ledger API and the commission consumer.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-petr/wallet-ledger/cmd/httpserver"
	"github.com/go-petr/wallet-ledger/internal/commissionconsumer"
	"github.com/go-petr/wallet-ledger/internal/middleware"
	"github.com/go-petr/wallet-ledger/pkg/configpkg"
	"github.com/go-petr/wallet-ledger/pkg/dbpkg"

	_ "github.com/lib/pq"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	var db *sql.DB

	if config.DBDriver != dbpkg.DriverMemory {
		db, err = dbpkg.Setup(config.DBDriver, config.DBSource)
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot connect to database")
		}
		defer db.Close()
	}

	server, err := httpserver.New(db, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if brokers := config.Brokers(); len(brokers) > 0 {
		consumer := commissionconsumer.New(commissionconsumer.NewReader(config), server.Trigger, logger)

		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("commission consumer stopped")
				stop()
			}
		}()

		logger.Info().Strs("brokers", brokers).Str("topic", config.KafkaTopic).Msg("commission consumer has started")
	}

	httpServer := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("cannot shut down server")
		}
	}()

	logger.Info().Str("address", config.ServerAddress).Msg("WALLET LEDGER SERVER HAS STARTED")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
