// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/wallet-ledger/internal/accountrepo"
	"github.com/go-petr/wallet-ledger/internal/accountservice"
	"github.com/go-petr/wallet-ledger/internal/commission"
	"github.com/go-petr/wallet-ledger/internal/commissiondelivery"
	"github.com/go-petr/wallet-ledger/internal/entryrepo"
	"github.com/go-petr/wallet-ledger/internal/historyservice"
	"github.com/go-petr/wallet-ledger/internal/ledgerdelivery"
	"github.com/go-petr/wallet-ledger/internal/ledgerrepo"
	"github.com/go-petr/wallet-ledger/internal/ledgerservice"
	"github.com/go-petr/wallet-ledger/internal/memstore"
	"github.com/go-petr/wallet-ledger/internal/middleware"
	"github.com/go-petr/wallet-ledger/pkg/configpkg"
	"github.com/go-petr/wallet-ledger/pkg/dbpkg"
	"github.com/go-petr/wallet-ledger/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB         *sql.DB
	Engine     *gin.Engine
	Config     configpkg.Config
	TokenMaker tokenpkg.Maker
	// Trigger is shared with the payment event consumer.
	Trigger *commission.Trigger
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

type repos struct {
	account accountservice.Repo
	ledger  ledgerservice.Repo
	history historyservice.Repo
}

func newRepos(conn *sql.DB, config configpkg.Config) (repos, error) {
	if config.DBDriver == dbpkg.DriverMemory {
		store := memstore.New()
		return repos{account: store, ledger: store, history: store}, nil
	}

	if conn == nil {
		return repos{}, errors.New("no database connection")
	}

	return repos{
		account: accountrepo.NewRepoPGS(conn),
		ledger:  ledgerrepo.NewRepoPGS(conn),
		history: entryrepo.NewRepoPGS(conn),
	}, nil
}

// New creates Server type with instantiated domains and routes.
//
// With DB_DRIVER=memory conn may be nil and the state lives in process memory.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	r, err := newRepos(conn, config)
	if err != nil {
		return nil, err
	}

	tokenMaker, err := tokenpkg.NewMaker(config.TokenKind, config.TokenSymmetricKey)
	if err != nil {
		return nil, errors.New("cannot create token maker")
	}

	accountService := accountservice.New(r.account)
	ledgerService, err := ledgerservice.New(r.ledger, accountService, config)
	if err != nil {
		return nil, err
	}

	historyService := historyservice.New(r.history, accountService)

	trigger, err := commission.New(ledgerService, config)
	if err != nil {
		return nil, err
	}

	ledgerHandler := ledgerdelivery.NewHandler(ledgerService, historyService)
	commissionHandler := commissiondelivery.NewHandler(trigger)

	if err := ledgerdelivery.RegisterValidators(); err != nil {
		return nil, errors.New("cannot register money validator")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.GET("/wallet", ledgerHandler.GetWallet)
	authRoutes.GET("/wallet/transactions", ledgerHandler.ListTransactions)
	authRoutes.GET("/wallet/reconciliation", ledgerHandler.Reconcile)
	authRoutes.POST("/wallet/credit", ledgerHandler.Credit)
	authRoutes.POST("/wallet/debit", ledgerHandler.Debit)
	authRoutes.GET("/wallet/owners/:owner_id", ledgerHandler.GetOwnerWallet)
	authRoutes.GET("/wallet/owners/:owner_id/transactions", ledgerHandler.ListOwnerTransactions)

	authRoutes.POST("/payments/completed", commissionHandler.PaymentCompleted)

	server := &Server{
		DB:         conn,
		Engine:     engine,
		Config:     config,
		TokenMaker: tokenMaker,
		Trigger:    trigger,
	}

	return server, nil
}
