package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/pkg/calendar"
	"github.com/shopspring/decimal"
)

// Record is implemented by every back-office entity kept in a list screen.
type Record interface {
	RecordID() uuid.UUID
	SearchFields() []string
}

type Customer struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name" validate:"required"`
	Email     string          `json:"email" validate:"omitempty,email"`
	Phone     string          `json:"phone"`
	Address   string          `json:"address"`
	Loan      decimal.Decimal `json:"loan"` // Outstanding balance, maintained server-side only
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (c Customer) RecordID() uuid.UUID { return c.ID }

func (c Customer) SearchFields() []string {
	return []string{c.Name, c.Email, c.Phone}
}

// Product is a stockhouse item.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name" validate:"required"`
	CompanyName   string          `json:"companyName"`
	Size          string          `json:"size"`
	Weight        decimal.Decimal `json:"weight"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SalePrice     decimal.Decimal `json:"salePrice"` // Catalog price offered when recording a sale
	SoldQuantity  decimal.Decimal `json:"soldQuantity"`
}

func (p Product) RecordID() uuid.UUID { return p.ID }

func (p Product) SearchFields() []string {
	return []string{p.Name}
}

type Transaction struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customerId"`
	ProductID  uuid.UUID       `json:"productId"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Payment    decimal.Decimal `json:"payment"`
	Loan       decimal.Decimal `json:"loan"` // May be negative on overpayment
	Date       calendar.Date   `json:"date"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type Recovery struct {
	ID              uuid.UUID       `json:"id"`
	CustomerID      uuid.UUID       `json:"customerId"`
	AmountRecovered decimal.Decimal `json:"amountRecovered"`
	RecoveryDate    calendar.Date   `json:"recoveryDate"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Expense backs both the Dubai port and the daily expense lists.
type Expense struct {
	ID     uuid.UUID       `json:"id"`
	Name   string          `json:"name" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
	Date   calendar.Date   `json:"date" validate:"required"`
}

func (e Expense) RecordID() uuid.UUID { return e.ID }

func (e Expense) SearchFields() []string {
	return []string{e.Name, e.Date.String()}
}

// UnmarshalJSON also accepts "price", which the daily expense screen sends
// in place of "amount". A non-zero amount wins. Fields absent from data keep
// their current values.
func (e *Expense) UnmarshalJSON(data []byte) error {
	type plain Expense
	in := struct {
		plain
		Price *decimal.Decimal `json:"price"`
	}{plain: plain(*e)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = Expense(in.plain)
	if in.Price != nil && e.Amount.IsZero() {
		e.Amount = *in.Price
	}
	return nil
}

func (e Expense) Day() calendar.Date     { return e.Date }
func (e Expense) Value() decimal.Decimal { return e.Amount }

type Commission struct {
	ID     uuid.UUID       `json:"id"`
	Name   string          `json:"name" validate:"required"`
	Date   calendar.Date   `json:"date" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

func (c Commission) RecordID() uuid.UUID { return c.ID }

func (c Commission) SearchFields() []string {
	return []string{c.Name, c.Date.String(), c.Amount.String()}
}

func (c Commission) Day() calendar.Date     { return c.Date }
func (c Commission) Value() decimal.Decimal { return c.Amount }

type FreightStatus string

const (
	FreightInPeshawar FreightStatus = "In Peshawar"
	FreightInLahore   FreightStatus = "In Lahore"
	FreightInKarachi  FreightStatus = "In Karachi"
	FreightInDubai    FreightStatus = "In Dubai"
	FreightInTransit  FreightStatus = "In Transit"
)

type Freight struct {
	ID               uuid.UUID       `json:"id"`
	ShipmentNumber   string          `json:"shipmentNumber" validate:"required"`
	OriginCity       string          `json:"originCity"`
	DestinationCity  string          `json:"destinationCity"`
	DepartureDate    calendar.Date   `json:"departureDate"`
	ArrivalDate      calendar.Date   `json:"arrivalDate"`
	CarrierName      string          `json:"carrierName"`
	FreightCostPKR   decimal.Decimal `json:"freightCostPKR"`
	CustomsFeePKR    decimal.Decimal `json:"customsFeePKR"`
	Status           FreightStatus   `json:"status" validate:"omitempty,oneof='In Peshawar' 'In Lahore' 'In Karachi' 'In Dubai' 'In Transit'"`
	ContainerNumber  string          `json:"containerNumber"`
	AeroplaneNumber  string          `json:"aeroplaneNumber"`
	ContactNumber    string          `json:"contactNumber"`
	Journey          string          `json:"journey"`
	DriverPaymentPKR decimal.Decimal `json:"driverPaymentPKR"`
}

func (f Freight) RecordID() uuid.UUID { return f.ID }

func (f Freight) SearchFields() []string {
	return []string{
		f.ShipmentNumber, f.OriginCity, f.DestinationCity,
		f.DepartureDate.String(), f.ArrivalDate.String(), f.CarrierName,
		f.FreightCostPKR.String(), f.CustomsFeePKR.String(), string(f.Status),
		f.ContainerNumber, f.AeroplaneNumber, f.ContactNumber, f.Journey,
		f.DriverPaymentPKR.String(),
	}
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentFailed    PaymentStatus = "Failed"
)

type AgentPayment struct {
	ID             uuid.UUID       `json:"id"`
	ShipmentNumber string          `json:"shipmentNumber" validate:"required"`
	ArrivalDate    calendar.Date   `json:"arrivalDate"`
	AgentName      string          `json:"agentName" validate:"required"`
	PaymentAmount  decimal.Decimal `json:"paymentAmount"`
	Currency       string          `json:"currency" validate:"omitempty,oneof=USD CNY AED SAR AFN EUR PKR"` // Label only, never converted
	PaymentDate    calendar.Date   `json:"paymentDate"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus" validate:"omitempty,oneof=Pending Completed Failed"`
}

func (a AgentPayment) RecordID() uuid.UUID { return a.ID }

func (a AgentPayment) SearchFields() []string {
	return []string{
		a.ShipmentNumber, a.ArrivalDate.String(), a.AgentName,
		a.PaymentAmount.String(), a.PaymentDate.String(), string(a.PaymentStatus),
	}
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
