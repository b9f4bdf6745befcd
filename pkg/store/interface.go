package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/pkg/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrInUse     = errors.New("record is referenced by other records")
	ErrDuplicate = errors.New("record already exists")
)

// RecordStore is the create/read/update/delete surface shared by every flat
// record list. List returns records in insertion order.
type RecordStore[T any] interface {
	Create(ctx context.Context, rec *T) error
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Update(ctx context.Context, rec *T) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*T, error)
}

// Storage defines the interface for database operations behind the back office.
type Storage interface {
	Customers() RecordStore[models.Customer]
	Products() RecordStore[models.Product]
	PortExpenses() RecordStore[models.Expense]
	DailyExpenses() RecordStore[models.Expense]
	Commissions() RecordStore[models.Commission]
	Freight() RecordStore[models.Freight]
	AgentPayments() RecordStore[models.AgentPayment]

	// CreateSale stores a transaction, adds its loan to the customer's balance
	// and its quantity to the product's sold quantity, atomically.
	CreateSale(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)
	GetTransactionsForCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Transaction, error)

	// CreateRecovery decrements the customer's balance and stores the recovery
	// atomically, returning the updated customer.
	CreateRecovery(ctx context.Context, rec *models.Recovery) (*models.Customer, error)
	ListRecoveries(ctx context.Context) ([]*models.Recovery, error)
	GetRecoveriesForCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Recovery, error)

	// CreateUser stores a user. An empty Role is assigned by the same
	// statement that inserts the row: admin for the first user, user after.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	Close() error
}
