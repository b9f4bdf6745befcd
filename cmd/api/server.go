package main

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/backoffice/internal/logger"
	"github.com/mcclellann/backoffice/pkg/auth"
	"github.com/mcclellann/backoffice/pkg/calendar"
	"github.com/mcclellann/backoffice/pkg/idempotency"
	"github.com/mcclellann/backoffice/pkg/ledger"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/mcclellann/backoffice/pkg/store"
	"github.com/rs/zerolog"
)

// idPattern keeps /stocks/profit and friends from matching the {id} routes.
const idPattern = "{id:[0-9a-fA-F-]{36}}"

// Server holds the ledger instance and everything the handlers share.
type Server struct {
	ledger   *ledger.Ledger
	auth     *auth.Service
	tokens   *auth.TokenService
	storage  store.Storage // Keep a reference to the storage to close it
	idem     idempotency.Store
	idemTTL  time.Duration
	validate *validator.Validate
	loc      *time.Location
	log      zerolog.Logger
}

type ServerOptions struct {
	Tokens         *auth.TokenService
	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration
	Location       *time.Location
}

func NewServer(s store.Storage, opts ServerOptions) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 10 * time.Minute
	}
	return &Server{
		ledger:   ledger.NewLedger(s, opts.Location),
		auth:     auth.NewService(s, opts.Tokens),
		tokens:   opts.Tokens,
		storage:  s,
		idem:     opts.Idempotency,
		idemTTL:  opts.IdempotencyTTL,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		loc:      opts.Location,
		log:      logger.WithComponent("api"),
	}
}

func (s *Server) today() calendar.Date {
	return calendar.Today(s.loc)
}

// Routes builds the router. Everything below /api except the auth endpoints
// needs a bearer token; PUT and DELETE also need the admin role.
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", s.registerHandler).Methods("POST")
	api.HandleFunc("/auth/login", s.loginHandler).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(s.authMiddleware, s.adminWritesMiddleware, s.idempotencyMiddleware)

	protected.HandleFunc("/customers", s.listCustomersHandler).Methods("GET")
	protected.HandleFunc("/customers", s.createCustomerHandler).Methods("POST")
	protected.HandleFunc("/customers/"+idPattern, s.getCustomerHandler).Methods("GET")
	protected.HandleFunc("/customers/"+idPattern, s.updateCustomerHandler).Methods("PUT")
	protected.HandleFunc("/customers/"+idPattern, s.deleteCustomerHandler).Methods("DELETE")
	protected.HandleFunc("/customers/"+idPattern+"/khata", s.khataHandler).Methods("GET")

	protected.HandleFunc("/transactions", s.listTransactionsHandler).Methods("GET")
	protected.HandleFunc("/transactions", s.createTransactionHandler).Methods("POST")
	protected.HandleFunc("/transactions/"+idPattern, s.getTransactionHandler).Methods("GET")

	protected.HandleFunc("/recoveries", s.listRecoveriesHandler).Methods("GET")
	protected.HandleFunc("/recoveries", s.createRecoveryHandler).Methods("POST")

	protected.HandleFunc("/stocks/profit", s.profitHandler).Methods("GET")
	protected.HandleFunc("/expenses/totals", expenseTotalsHandler(s, s.storage.PortExpenses())).Methods("GET")
	protected.HandleFunc("/dailyexpenses/totals", expenseTotalsHandler(s, s.storage.DailyExpenses())).Methods("GET")
	protected.HandleFunc("/commissions/summary", s.commissionSummaryHandler).Methods("GET")

	registerRecords(protected, "/stocks", newRecordHandler(s, s.storage.Products(), "stock",
		func(p *models.Product) *uuid.UUID { return &p.ID }, nil))
	registerRecords(protected, "/expenses", newRecordHandler(s, s.storage.PortExpenses(), "expense",
		func(e *models.Expense) *uuid.UUID { return &e.ID }, nil))
	registerRecords(protected, "/dailyexpenses", newRecordHandler(s, s.storage.DailyExpenses(), "daily expense",
		func(e *models.Expense) *uuid.UUID { return &e.ID }, nil))
	registerRecords(protected, "/commissions", newRecordHandler(s, s.storage.Commissions(), "commission",
		func(c *models.Commission) *uuid.UUID { return &c.ID }, nil))
	registerRecords(protected, "/freight", newRecordHandler(s, s.storage.Freight(), "freight",
		func(f *models.Freight) *uuid.UUID { return &f.ID }, nil))
	registerRecords(protected, "/agentPayments", newRecordHandler(s, s.storage.AgentPayments(), "agent payment",
		func(a *models.AgentPayment) *uuid.UUID { return &a.ID }, defaultPaymentStatus))

	return router
}

func defaultPaymentStatus(a *models.AgentPayment) {
	if a.PaymentStatus == "" {
		a.PaymentStatus = models.PaymentPending
	}
}

func (s *Server) Close() error {
	if s.idem != nil {
		s.idem.Close()
	}
	return s.storage.Close()
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
