package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/shopspring/decimal"
)

// KhataEntry is one sale in a customer's account book, joined with the
// product it was for. Product fields are blank when the product is gone.
type KhataEntry struct {
	*models.Transaction
	ProductName string `json:"productName"`
	CompanyName string `json:"companyName"`
	Size        string `json:"size"`
}

// Khata is a customer's account book.
type Khata struct {
	Customer             *models.Customer   `json:"customer"`
	Entries              []KhataEntry       `json:"entries"`
	Recoveries           []*models.Recovery `json:"recoveries"`
	TransactionLoanTotal decimal.Decimal    `json:"transactionLoanTotal"`
	RecoveredTotal       decimal.Decimal    `json:"recoveredTotal"`
	Outstanding          decimal.Decimal    `json:"outstanding"`
	// Discrepancy is non-zero when the stored balance has drifted from the
	// history that should explain it.
	Discrepancy decimal.Decimal `json:"discrepancy"`
}

// Khata builds the account book for one customer.
func (l *Ledger) Khata(ctx context.Context, customerID uuid.UUID) (*Khata, error) {
	customer, err := l.storage.Customers().Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	txs, err := l.storage.GetTransactionsForCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for customer: %w", err)
	}
	recoveries, err := l.storage.GetRecoveriesForCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recoveries for customer: %w", err)
	}
	if recoveries == nil {
		recoveries = []*models.Recovery{}
	}
	products, err := l.storage.Products().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	k := &Khata{
		Customer:    customer,
		Entries:     make([]KhataEntry, 0, len(txs)),
		Recoveries:  recoveries,
		Outstanding: customer.Loan,
	}
	for _, t := range txs {
		entry := KhataEntry{Transaction: t}
		if p, ok := byID[t.ProductID]; ok {
			entry.ProductName = p.Name
			entry.CompanyName = p.CompanyName
			entry.Size = p.Size
		}
		k.Entries = append(k.Entries, entry)
		k.TransactionLoanTotal = k.TransactionLoanTotal.Add(t.Loan)
	}
	for _, r := range recoveries {
		k.RecoveredTotal = k.RecoveredTotal.Add(r.AmountRecovered)
	}
	k.Discrepancy = k.Outstanding.Sub(k.TransactionLoanTotal.Sub(k.RecoveredTotal))

	if !k.Discrepancy.IsZero() {
		l.log.Warn().
			Str("customer_id", customerID.String()).
			Str("discrepancy", k.Discrepancy.String()).
			Msg("customer balance does not match history")
	}
	return k, nil
}
