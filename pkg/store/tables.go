package store

import (
	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/pkg/models"
)

var customersTable = &table[models.Customer]{
	name:    "customers",
	noun:    "customer",
	columns: []string{"name", "email", "phone", "address", "loan", "created_at", "updated_at"},
	fixed:   map[string]bool{"loan": true, "created_at": true},
	id:      func(c *models.Customer) *uuid.UUID { return &c.ID },
	values: func(c *models.Customer) []any {
		return []any{c.Name, c.Email, c.Phone, c.Address, c.Loan, c.CreatedAt, c.UpdatedAt}
	},
	dest: func(c *models.Customer) []any {
		return []any{&c.Name, &c.Email, &c.Phone, &c.Address, &c.Loan, &c.CreatedAt, &c.UpdatedAt}
	},
}

var productsTable = &table[models.Product]{
	name:    "products",
	noun:    "product",
	columns: []string{"name", "company_name", "size", "weight", "quantity", "purchase_price", "sale_price", "sold_quantity"},
	fixed:   map[string]bool{"sold_quantity": true},
	id:      func(p *models.Product) *uuid.UUID { return &p.ID },
	values: func(p *models.Product) []any {
		return []any{p.Name, p.CompanyName, p.Size, p.Weight, p.Quantity, p.PurchasePrice, p.SalePrice, p.SoldQuantity}
	},
	dest: func(p *models.Product) []any {
		return []any{&p.Name, &p.CompanyName, &p.Size, &p.Weight, &p.Quantity, &p.PurchasePrice, &p.SalePrice, &p.SoldQuantity}
	},
}

var transactionsTable = &table[models.Transaction]{
	name:    "transactions",
	noun:    "transaction",
	columns: []string{"customer_id", "product_id", "quantity", "unit_price", "total_price", "payment", "loan", "date", "created_at"},
	id:      func(t *models.Transaction) *uuid.UUID { return &t.ID },
	values: func(t *models.Transaction) []any {
		return []any{t.CustomerID, t.ProductID, t.Quantity, t.UnitPrice, t.TotalPrice, t.Payment, t.Loan, t.Date, t.CreatedAt}
	},
	dest: func(t *models.Transaction) []any {
		return []any{&t.CustomerID, &t.ProductID, &t.Quantity, &t.UnitPrice, &t.TotalPrice, &t.Payment, &t.Loan, &t.Date, &t.CreatedAt}
	},
}

var recoveriesTable = &table[models.Recovery]{
	name:    "recoveries",
	noun:    "recovery",
	columns: []string{"customer_id", "amount_recovered", "recovery_date", "created_at"},
	id:      func(r *models.Recovery) *uuid.UUID { return &r.ID },
	values: func(r *models.Recovery) []any {
		return []any{r.CustomerID, r.AmountRecovered, r.RecoveryDate, r.CreatedAt}
	},
	dest: func(r *models.Recovery) []any {
		return []any{&r.CustomerID, &r.AmountRecovered, &r.RecoveryDate, &r.CreatedAt}
	},
}

func expensesTable(name string) *table[models.Expense] {
	return &table[models.Expense]{
		name:    name,
		noun:    "expense",
		columns: []string{"name", "amount", "date"},
		id:      func(e *models.Expense) *uuid.UUID { return &e.ID },
		values:  func(e *models.Expense) []any { return []any{e.Name, e.Amount, e.Date} },
		dest:    func(e *models.Expense) []any { return []any{&e.Name, &e.Amount, &e.Date} },
	}
}

var commissionsTable = &table[models.Commission]{
	name:    "commissions",
	noun:    "commission",
	columns: []string{"name", "date", "amount"},
	id:      func(c *models.Commission) *uuid.UUID { return &c.ID },
	values:  func(c *models.Commission) []any { return []any{c.Name, c.Date, c.Amount} },
	dest:    func(c *models.Commission) []any { return []any{&c.Name, &c.Date, &c.Amount} },
}

var freightTable = &table[models.Freight]{
	name: "freight",
	noun: "freight",
	columns: []string{
		"shipment_number", "origin_city", "destination_city", "departure_date", "arrival_date",
		"carrier_name", "freight_cost_pkr", "customs_fee_pkr", "status", "container_number",
		"aeroplane_number", "contact_number", "journey", "driver_payment_pkr",
	},
	id: func(f *models.Freight) *uuid.UUID { return &f.ID },
	values: func(f *models.Freight) []any {
		return []any{
			f.ShipmentNumber, f.OriginCity, f.DestinationCity, f.DepartureDate, f.ArrivalDate,
			f.CarrierName, f.FreightCostPKR, f.CustomsFeePKR, f.Status, f.ContainerNumber,
			f.AeroplaneNumber, f.ContactNumber, f.Journey, f.DriverPaymentPKR,
		}
	},
	dest: func(f *models.Freight) []any {
		return []any{
			&f.ShipmentNumber, &f.OriginCity, &f.DestinationCity, &f.DepartureDate, &f.ArrivalDate,
			&f.CarrierName, &f.FreightCostPKR, &f.CustomsFeePKR, &f.Status, &f.ContainerNumber,
			&f.AeroplaneNumber, &f.ContactNumber, &f.Journey, &f.DriverPaymentPKR,
		}
	},
}

var agentPaymentsTable = &table[models.AgentPayment]{
	name: "agent_payments",
	noun: "agent payment",
	columns: []string{
		"shipment_number", "arrival_date", "agent_name", "payment_amount", "currency", "payment_date", "payment_status",
	},
	id: func(a *models.AgentPayment) *uuid.UUID { return &a.ID },
	values: func(a *models.AgentPayment) []any {
		return []any{a.ShipmentNumber, a.ArrivalDate, a.AgentName, a.PaymentAmount, a.Currency, a.PaymentDate, a.PaymentStatus}
	},
	dest: func(a *models.AgentPayment) []any {
		return []any{&a.ShipmentNumber, &a.ArrivalDate, &a.AgentName, &a.PaymentAmount, &a.Currency, &a.PaymentDate, &a.PaymentStatus}
	},
}

var usersTable = &table[models.User]{
	name:    "users",
	noun:    "user",
	columns: []string{"username", "email", "role", "password_hash", "created_at"},
	id:      func(u *models.User) *uuid.UUID { return &u.ID },
	values: func(u *models.User) []any {
		return []any{u.Username, u.Email, u.Role, u.PasswordHash, u.CreatedAt}
	},
	dest: func(u *models.User) []any {
		return []any{&u.Username, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt}
	},
}
