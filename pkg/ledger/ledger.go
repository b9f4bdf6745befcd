package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/internal/logger"
	"github.com/mcclellann/backoffice/pkg/calendar"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/mcclellann/backoffice/pkg/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned when a required amount is missing or not a number.
	ErrInvalidAmount = errors.New("amount must be a number")
	// ErrInvalidInput is returned when a sale or recovery references nothing.
	ErrInvalidInput = errors.New("invalid input")
)

// Ledger handles customer balances: sales, recoveries and the khata view.
type Ledger struct {
	storage store.Storage
	loc     *time.Location
	now     func() time.Time
	log     zerolog.Logger
}

// NewLedger creates a new Ledger with a given Storage implementation. loc
// decides which calendar day "today" is.
func NewLedger(s store.Storage, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{
		storage: s,
		loc:     loc,
		now:     time.Now,
		log:     logger.WithComponent("ledger"),
	}
}

func (l *Ledger) today() calendar.Date {
	return calendar.DateOf(l.now().In(l.loc))
}

// CreateCustomer stores a new customer with a zero balance.
func (l *Ledger) CreateCustomer(ctx context.Context, c *models.Customer) error {
	now := l.now()
	c.ID = uuid.Nil
	c.Loan = decimal.Zero
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := l.storage.Customers().Create(ctx, c); err != nil {
		return fmt.Errorf("failed to store customer: %w", err)
	}
	return nil
}

// UpdateCustomer changes contact details. The balance is left untouched and
// the stored customer is returned.
func (l *Ledger) UpdateCustomer(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	c.UpdatedAt = l.now()
	if err := l.storage.Customers().Update(ctx, c); err != nil {
		return nil, err
	}
	return l.storage.Customers().Get(ctx, c.ID)
}

// GetCustomer retrieves a customer by its ID.
func (l *Ledger) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return l.storage.Customers().Get(ctx, id)
}

// GetAllCustomers retrieves all customers.
func (l *Ledger) GetAllCustomers(ctx context.Context) ([]*models.Customer, error) {
	return l.storage.Customers().List(ctx)
}

// DeleteCustomer deletes a customer that has no transactions or recoveries.
func (l *Ledger) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return l.storage.Customers().Delete(ctx, id)
}

// RecoveryInput is a payment collected against a customer's loan. A nil
// Amount means the field was left empty.
type RecoveryInput struct {
	CustomerID   uuid.UUID        `json:"customerId"`
	Amount       *decimal.Decimal `json:"amountRecovered"`
	RecoveryDate calendar.Date    `json:"recoveryDate"`
}

// RecoveryResult carries both halves of a recorded recovery.
type RecoveryResult struct {
	Customer *models.Customer `json:"customer"`
	Recovery *models.Recovery `json:"recovery"`
}

// RecordRecovery decrements the customer's loan by the recovered amount and
// stores the recovery record. Both writes commit together or not at all.
func (l *Ledger) RecordRecovery(ctx context.Context, in RecoveryInput) (*RecoveryResult, error) {
	if in.Amount == nil {
		return nil, ErrInvalidAmount
	}
	if in.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer is required", ErrInvalidInput)
	}
	date := in.RecoveryDate
	if date.IsZero() {
		date = l.today()
	}

	recovery := &models.Recovery{
		ID:              uuid.New(),
		CustomerID:      in.CustomerID,
		AmountRecovered: *in.Amount,
		RecoveryDate:    date,
		CreatedAt:       l.now(),
	}
	customer, err := l.storage.CreateRecovery(ctx, recovery)
	if err != nil {
		return nil, fmt.Errorf("failed to record recovery: %w", err)
	}

	l.log.Info().
		Str("customer_id", customer.ID.String()).
		Str("amount", recovery.AmountRecovered.StringFixed(2)).
		Str("balance", customer.Loan.StringFixed(2)).
		Msg("recovery recorded")
	return &RecoveryResult{Customer: customer, Recovery: recovery}, nil
}

// GetRecoveries lists recoveries, optionally for one customer.
func (l *Ledger) GetRecoveries(ctx context.Context, customerID uuid.UUID) ([]*models.Recovery, error) {
	if customerID == uuid.Nil {
		return l.storage.ListRecoveries(ctx)
	}
	return l.storage.GetRecoveriesForCustomer(ctx, customerID)
}
