package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/mcclellann/backoffice/internal/logger"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/rs/zerolog"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger

	customers     *recordStore[models.Customer]
	products      *recordStore[models.Product]
	portExpenses  *recordStore[models.Expense]
	dailyExpenses *recordStore[models.Expense]
	commissions   *recordStore[models.Commission]
	freight       *recordStore[models.Freight]
	agentPayments *recordStore[models.AgentPayment]
}

var _ Storage = (*SQLiteStore)(nil)

var (
	portExpensesTable  = expensesTable("port_expenses")
	dailyExpensesTable = expensesTable("daily_expenses")
)

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	// PRAGMA foreign_keys is per connection, so keep a single one.
	db.SetMaxOpenConns(1)

	// Manually enable foreign keys and WAL mode
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := newStore(db)
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	s.log.Info().Str("dsn", dataSourceName).Msg("database connection established and schema initialized")
	return s, nil
}

func newStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:            db,
		log:           logger.WithComponent("store"),
		customers:     &recordStore[models.Customer]{db: db, t: customersTable},
		products:      &recordStore[models.Product]{db: db, t: productsTable},
		portExpenses:  &recordStore[models.Expense]{db: db, t: portExpensesTable},
		dailyExpenses: &recordStore[models.Expense]{db: db, t: dailyExpensesTable},
		commissions:   &recordStore[models.Commission]{db: db, t: commissionsTable},
		freight:       &recordStore[models.Freight]{db: db, t: freightTable},
		agentPayments: &recordStore[models.AgentPayment]{db: db, t: agentPaymentsTable},
	}
}

// initSchema creates the database tables if they don't already exist.
// Decimal fields are TEXT so no precision is lost; dates are TEXT YYYY-MM-DD.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		loan TEXT NOT NULL DEFAULT '0',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		company_name TEXT NOT NULL DEFAULT '',
		size TEXT NOT NULL DEFAULT '',
		weight TEXT NOT NULL DEFAULT '0',
		quantity TEXT NOT NULL DEFAULT '0',
		purchase_price TEXT NOT NULL DEFAULT '0',
		sale_price TEXT NOT NULL DEFAULT '0',
		sold_quantity TEXT NOT NULL DEFAULT '0'
	);
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		total_price TEXT NOT NULL,
		payment TEXT NOT NULL,
		loan TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(customer_id) REFERENCES customers(id),
		FOREIGN KEY(product_id) REFERENCES products(id)
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(customer_id);
	CREATE TABLE IF NOT EXISTS recoveries (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		amount_recovered TEXT NOT NULL,
		recovery_date TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(customer_id) REFERENCES customers(id)
	);
	CREATE INDEX IF NOT EXISTS idx_recoveries_customer ON recoveries(customer_id);
	CREATE TABLE IF NOT EXISTS port_expenses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		date TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS daily_expenses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		date TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS commissions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0'
	);
	CREATE TABLE IF NOT EXISTS freight (
		id TEXT PRIMARY KEY,
		shipment_number TEXT NOT NULL,
		origin_city TEXT NOT NULL DEFAULT '',
		destination_city TEXT NOT NULL DEFAULT '',
		departure_date TEXT NOT NULL DEFAULT '',
		arrival_date TEXT NOT NULL DEFAULT '',
		carrier_name TEXT NOT NULL DEFAULT '',
		freight_cost_pkr TEXT NOT NULL DEFAULT '0',
		customs_fee_pkr TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT '',
		container_number TEXT NOT NULL DEFAULT '',
		aeroplane_number TEXT NOT NULL DEFAULT '',
		contact_number TEXT NOT NULL DEFAULT '',
		journey TEXT NOT NULL DEFAULT '',
		driver_payment_pkr TEXT NOT NULL DEFAULT '0'
	);
	CREATE TABLE IF NOT EXISTS agent_payments (
		id TEXT PRIMARY KEY,
		shipment_number TEXT NOT NULL,
		arrival_date TEXT NOT NULL DEFAULT '',
		agent_name TEXT NOT NULL,
		payment_amount TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL DEFAULT '',
		payment_date TEXT NOT NULL DEFAULT '',
		payment_status TEXT NOT NULL DEFAULT 'Pending'
	);
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// translate maps driver constraint failures onto the package's sentinel errors.
func translate(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", ErrInUse, err)
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}
	return err
}

func (s *SQLiteStore) Customers() RecordStore[models.Customer]         { return s.customers }
func (s *SQLiteStore) Products() RecordStore[models.Product]           { return s.products }
func (s *SQLiteStore) PortExpenses() RecordStore[models.Expense]       { return s.portExpenses }
func (s *SQLiteStore) DailyExpenses() RecordStore[models.Expense]      { return s.dailyExpenses }
func (s *SQLiteStore) Commissions() RecordStore[models.Commission]     { return s.commissions }
func (s *SQLiteStore) Freight() RecordStore[models.Freight]            { return s.freight }
func (s *SQLiteStore) AgentPayments() RecordStore[models.AgentPayment] { return s.agentPayments }

// withTx runs fn inside a transaction, rolling back on any error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) customerLoan(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Customer, error) {
	c := &models.Customer{ID: id}
	err := tx.QueryRowContext(ctx, `SELECT loan FROM customers WHERE id = ?`, id).Scan(&c.Loan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customersTable.notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read customer balance: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) setCustomerLoan(ctx context.Context, tx *sql.Tx, c *models.Customer) error {
	_, err := tx.ExecContext(ctx, `UPDATE customers SET loan = ?, updated_at = ? WHERE id = ?`, c.Loan, time.Now(), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update customer balance: %w", err)
	}
	return nil
}

// CreateSale inserts a transaction and applies it to the customer's balance and
// the product's sold quantity within one database transaction.
func (s *SQLiteStore) CreateSale(ctx context.Context, t *models.Transaction) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		customer, err := s.customerLoan(ctx, tx, t.CustomerID)
		if err != nil {
			return err
		}

		var product models.Product
		err = tx.QueryRowContext(ctx, `SELECT sold_quantity FROM products WHERE id = ?`, t.ProductID).Scan(&product.SoldQuantity)
		if errors.Is(err, sql.ErrNoRows) {
			return productsTable.notFound(t.ProductID)
		}
		if err != nil {
			return fmt.Errorf("failed to read product: %w", err)
		}

		if err := transactionsTable.insert(ctx, tx, t); err != nil {
			return err
		}

		customer.Loan = customer.Loan.Add(t.Loan)
		if err := s.setCustomerLoan(ctx, tx, customer); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `UPDATE products SET sold_quantity = ? WHERE id = ?`,
			product.SoldQuantity.Add(t.Quantity), t.ProductID)
		if err != nil {
			return fmt.Errorf("failed to update product sold quantity: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return transactionsTable.get(ctx, s.db, id)
}

func (s *SQLiteStore) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return transactionsTable.list(ctx, s.db, "")
}

// GetTransactionsForCustomer retrieves all transactions for a given customer ID.
func (s *SQLiteStore) GetTransactionsForCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Transaction, error) {
	return transactionsTable.list(ctx, s.db, "customer_id = ?", customerID)
}

// CreateRecovery decrements the customer's loan and records the recovery.
// Either both writes land or neither does.
func (s *SQLiteStore) CreateRecovery(ctx context.Context, r *models.Recovery) (*models.Customer, error) {
	var updated *models.Customer
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		customer, err := s.customerLoan(ctx, tx, r.CustomerID)
		if err != nil {
			return err
		}

		customer.Loan = customer.Loan.Sub(r.AmountRecovered)
		if err := s.setCustomerLoan(ctx, tx, customer); err != nil {
			return err
		}

		if err := recoveriesTable.insert(ctx, tx, r); err != nil {
			return err
		}

		updated, err = customersTable.get(ctx, tx, r.CustomerID)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("customer_id", r.CustomerID.String()).Msg("recovery rolled back")
		return nil, err
	}
	return updated, nil
}

func (s *SQLiteStore) ListRecoveries(ctx context.Context) ([]*models.Recovery, error) {
	return recoveriesTable.list(ctx, s.db, "")
}

func (s *SQLiteStore) GetRecoveriesForCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Recovery, error) {
	return recoveriesTable.list(ctx, s.db, "customer_id = ?", customerID)
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role != "" {
		return usersTable.insert(ctx, s.db, user)
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	// The role is chosen inside the INSERT so two first sign-ups cannot both see an empty table.
	const query = `INSERT INTO users (id, username, email, role, password_hash, created_at)
		SELECT ?, ?, ?, CASE WHEN EXISTS (SELECT 1 FROM users) THEN ? ELSE ? END, ?, ?`
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, models.RoleUser, models.RoleAdmin, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	if err := s.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = ?`, user.ID).Scan(&user.Role); err != nil {
		return fmt.Errorf("failed to read user role: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	users, err := usersTable.list(ctx, s.db, "username = ?", username)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return users[0], nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
