package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/pkg/calendar"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/shopspring/decimal"
)

// ComputeSale derives the stored totals of a sale. Nothing is bounds-checked:
// negative inputs and a negative loan (overpayment) pass through.
func ComputeSale(quantity, unitPrice, payment decimal.Decimal) (totalPrice, loan decimal.Decimal) {
	totalPrice = quantity.Mul(unitPrice)
	loan = totalPrice.Sub(payment)
	return totalPrice, loan
}

// SaleInput is a sale as entered. UnitPrice defaults to the product's catalog
// sale price when nil; Date defaults to today.
type SaleInput struct {
	CustomerID uuid.UUID        `json:"customerId"`
	ProductID  uuid.UUID        `json:"productId"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitPrice  *decimal.Decimal `json:"unitPrice,omitempty"`
	Payment    decimal.Decimal  `json:"payment"`
	Date       calendar.Date    `json:"date"`
}

// RecordSale computes totalPrice and loan once and persists them verbatim,
// adding the loan to the customer's balance.
func (l *Ledger) RecordSale(ctx context.Context, in SaleInput) (*models.Transaction, error) {
	if in.CustomerID == uuid.Nil || in.ProductID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer and product are required", ErrInvalidInput)
	}

	unitPrice := in.UnitPrice
	if unitPrice == nil {
		product, err := l.storage.Products().Get(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		unitPrice = &product.SalePrice
	}

	date := in.Date
	if date.IsZero() {
		date = l.today()
	}

	total, loan := ComputeSale(in.Quantity, *unitPrice, in.Payment)
	tx := &models.Transaction{
		ID:         uuid.New(),
		CustomerID: in.CustomerID,
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		UnitPrice:  *unitPrice,
		TotalPrice: total,
		Payment:    in.Payment,
		Loan:       loan,
		Date:       date,
		CreatedAt:  l.now(),
	}
	if err := l.storage.CreateSale(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}
	return tx, nil
}

// GetTransaction retrieves a transaction by its ID.
func (l *Ledger) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return l.storage.GetTransaction(ctx, id)
}

// GetTransactions lists transactions, optionally for one customer.
func (l *Ledger) GetTransactions(ctx context.Context, customerID uuid.UUID) ([]*models.Transaction, error) {
	if customerID == uuid.Nil {
		return l.storage.ListTransactions(ctx)
	}
	return l.storage.GetTransactionsForCustomer(ctx, customerID)
}
