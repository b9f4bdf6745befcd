package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcclellann/backoffice/pkg/aggregate"
	"github.com/mcclellann/backoffice/pkg/auth"
	"github.com/mcclellann/backoffice/pkg/idempotency"
	"github.com/mcclellann/backoffice/pkg/ledger"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/mcclellann/backoffice/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)

	server := NewServer(s, ServerOptions{
		Tokens:      auth.NewTokenService("test-secret", time.Hour),
		Idempotency: idempotency.NewMemoryStore(time.Hour),
	})
	t.Cleanup(func() { server.Close() })
	return server, server.Routes()
}

type call struct {
	method string
	path   string
	token  string
	body   any
	key    string // Idempotency-Key
}

func serve(t *testing.T, h http.Handler, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.key != "" {
		req.Header.Set("Idempotency-Key", c.key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

// signUp registers username and returns a bearer token for it.
func signUp(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	rr := serve(t, h, call{method: "POST", path: "/api/auth/register",
		body: map[string]string{"username": username, "password": "secret123"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = serve(t, h, call{method: "POST", path: "/api/auth/login",
		body: map[string]string{"username": username, "password": "secret123"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[auth.LoginResult](t, rr).Token
}

func createCustomer(t *testing.T, h http.Handler, token, name string) models.Customer {
	t.Helper()
	rr := serve(t, h, call{method: "POST", path: "/api/customers", token: token,
		body: map[string]string{"name": name}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[models.Customer](t, rr)
}

func createProduct(t *testing.T, h http.Handler, token string, salePrice string) models.Product {
	t.Helper()
	rr := serve(t, h, call{method: "POST", path: "/api/stocks", token: token,
		body: map[string]string{"name": "Cement", "companyName": "Lucky", "size": "50kg",
			"quantity": "100", "purchasePrice": "40", "salePrice": salePrice}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[models.Product](t, rr)
}

func TestAPI_RegisterAndLogin(t *testing.T) {
	_, h := setupTestServer(t)

	rr := serve(t, h, call{method: "POST", path: "/api/auth/register",
		body: map[string]string{"username": "owner", "password": "secret123"}})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, models.RoleAdmin, decode[models.User](t, rr).Role)

	rr = serve(t, h, call{method: "POST", path: "/api/auth/register",
		body: map[string]string{"username": "clerk", "password": "secret123"}})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, models.RoleUser, decode[models.User](t, rr).Role)

	rr = serve(t, h, call{method: "POST", path: "/api/auth/register",
		body: map[string]string{"username": "clerk", "password": "secret123"}})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = serve(t, h, call{method: "POST", path: "/api/auth/login",
		body: map[string]string{"username": "clerk", "password": "wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(t, h, call{method: "POST", path: "/api/auth/login",
		body: map[string]string{"username": "owner", "password": "secret123"}})
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[auth.LoginResult](t, rr)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "owner", res.User.Username)
}

func TestAPI_RequiresToken(t *testing.T) {
	_, h := setupTestServer(t)

	rr := serve(t, h, call{method: "GET", path: "/api/customers"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(t, h, call{method: "GET", path: "/api/customers", token: "not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPI_NonAdminCannotEditOrDelete(t *testing.T) {
	_, h := setupTestServer(t)
	admin := signUp(t, h, "owner")
	clerk := signUp(t, h, "clerk")

	c := createCustomer(t, h, clerk, "Ali Traders")

	rr := serve(t, h, call{method: "PUT", path: "/api/customers/" + c.ID.String(), token: clerk,
		body: map[string]string{"name": "Renamed"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(t, h, call{method: "DELETE", path: "/api/customers/" + c.ID.String(), token: clerk})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(t, h, call{method: "PUT", path: "/api/customers/" + c.ID.String(), token: admin,
		body: map[string]string{"name": "Renamed"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Renamed", decode[models.Customer](t, rr).Name)

	rr = serve(t, h, call{method: "DELETE", path: "/api/customers/" + c.ID.String(), token: admin})
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestAPI_CustomerStartsWithNoLoan(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")

	rr := serve(t, h, call{method: "POST", path: "/api/customers", token: token,
		body: map[string]string{"name": "Ali Traders", "loan": "5000"}})
	require.Equal(t, http.StatusCreated, rr.Code)
	c := decode[models.Customer](t, rr)
	assert.True(t, c.Loan.IsZero())

	rr = serve(t, h, call{method: "GET", path: "/api/customers?q=ali", token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Customer](t, rr), 1)

	rr = serve(t, h, call{method: "GET", path: "/api/customers?q=nobody", token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = serve(t, h, call{method: "GET", path: "/api/customers?q=%20traders", token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Customer](t, rr), 1)

	rr = serve(t, h, call{method: "GET", path: "/api/customers?q=%20ali", token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestAPI_RecordSale(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")
	c := createCustomer(t, h, token, "Ali Traders")
	p := createProduct(t, h, token, "50")

	rr := serve(t, h, call{method: "POST", path: "/api/transactions", token: token, key: "sale-1",
		body: map[string]any{"customerId": c.ID, "productId": p.ID, "quantity": "10", "payment": "400", "date": "2024-03-01"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tx := decode[models.Transaction](t, rr)
	assert.True(t, tx.TotalPrice.Equal(decimal.NewFromInt(500)))
	assert.True(t, tx.Loan.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "2024-03-01", tx.Date.String())

	rr = serve(t, h, call{method: "GET", path: "/api/customers/" + c.ID.String(), token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[models.Customer](t, rr).Loan.Equal(decimal.NewFromInt(100)))

	rr = serve(t, h, call{method: "GET", path: "/api/transactions?customerId=" + c.ID.String(), token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Transaction](t, rr), 1)

	rr = serve(t, h, call{method: "GET", path: "/api/stocks/" + p.ID.String(), token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[models.Product](t, rr).SoldQuantity.Equal(decimal.NewFromInt(10)))
}

func TestAPI_DuplicateIdempotencyKeyRejected(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")
	c := createCustomer(t, h, token, "Ali Traders")
	p := createProduct(t, h, token, "50")

	sale := map[string]any{"customerId": c.ID, "productId": p.ID, "quantity": "1", "payment": "0"}
	rr := serve(t, h, call{method: "POST", path: "/api/transactions", token: token, key: "k-1", body: sale})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(t, h, call{method: "POST", path: "/api/transactions", token: token, key: "k-1", body: sale})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = serve(t, h, call{method: "GET", path: "/api/customers/" + c.ID.String(), token: token})
	assert.True(t, decode[models.Customer](t, rr).Loan.Equal(decimal.NewFromInt(50)))
}

func TestAPI_RecordRecovery(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")
	c := createCustomer(t, h, token, "Ali Traders")
	p := createProduct(t, h, token, "100")

	rr := serve(t, h, call{method: "POST", path: "/api/transactions", token: token,
		body: map[string]any{"customerId": c.ID, "productId": p.ID, "quantity": "10", "payment": "0"}})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(t, h, call{method: "POST", path: "/api/recoveries", token: token,
		body: map[string]any{"customerId": c.ID, "amountRecovered": "300", "recoveryDate": "2024-03-05"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[ledger.RecoveryResult](t, rr)
	assert.True(t, res.Customer.Loan.Equal(decimal.NewFromInt(700)))
	assert.True(t, res.Recovery.AmountRecovered.Equal(decimal.NewFromInt(300)))

	rr = serve(t, h, call{method: "GET", path: "/api/customers/" + c.ID.String() + "/khata", token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	k := decode[ledger.Khata](t, rr)
	require.Len(t, k.Entries, 1)
	assert.Equal(t, "Cement", k.Entries[0].ProductName)
	assert.True(t, k.Outstanding.Equal(decimal.NewFromInt(700)))
	assert.True(t, k.Discrepancy.IsZero())
}

func TestAPI_RecoveryWithoutAmountWritesNothing(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")
	c := createCustomer(t, h, token, "Ali Traders")

	rr := serve(t, h, call{method: "POST", path: "/api/recoveries", token: token,
		body: map[string]any{"customerId": c.ID}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(t, h, call{method: "GET", path: "/api/recoveries", token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = serve(t, h, call{method: "GET", path: "/api/customers/" + c.ID.String(), token: token})
	assert.True(t, decode[models.Customer](t, rr).Loan.IsZero())
}

func TestAPI_DeleteReferencedCustomer(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")
	c := createCustomer(t, h, token, "Ali Traders")
	p := createProduct(t, h, token, "50")

	rr := serve(t, h, call{method: "POST", path: "/api/transactions", token: token,
		body: map[string]any{"customerId": c.ID, "productId": p.ID, "quantity": "1", "payment": "50"}})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(t, h, call{method: "DELETE", path: "/api/customers/" + c.ID.String(), token: token})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAPI_ExpenseTotals(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")

	for _, e := range []map[string]string{
		{"name": "Crane", "amount": "10", "date": "2024-01-01"},
		{"name": "Labour", "amount": "50", "date": "2024-01-01"},
		{"name": "Fuel", "amount": "5", "date": "2024-01-02"},
	} {
		rr := serve(t, h, call{method: "POST", path: "/api/expenses", token: token, body: e})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := serve(t, h, call{method: "GET", path: "/api/expenses/totals?day=2024-01-01", token: token})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	totals := decode[aggregate.Totals](t, rr)
	assert.True(t, totals.DayTotal.Equal(decimal.NewFromInt(60)))
	require.Len(t, totals.Daily, 2)
	require.Len(t, totals.Monthly, 1)
	assert.Equal(t, "2024-01", totals.Monthly[0].Month.String())
	assert.True(t, totals.Monthly[0].Total.Equal(decimal.NewFromInt(65)))

	rr = serve(t, h, call{method: "GET", path: "/api/dailyexpenses/totals", token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[aggregate.Totals](t, rr).Daily)

	rr = serve(t, h, call{method: "GET", path: "/api/expenses/totals?day=yesterday", token: token})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_ExpenseRequiresDate(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")

	rr := serve(t, h, call{method: "POST", path: "/api/expenses", token: token,
		body: map[string]string{"name": "Crane", "amount": "10"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(t, h, call{method: "GET", path: "/api/expenses", token: token})
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestAPI_CommissionSummary(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")

	for _, c := range []map[string]string{
		{"name": "Broker A", "amount": "100", "date": "2024-02-10"},
		{"name": "Broker B", "amount": "40", "date": "2024-02-20"},
		{"name": "Broker C", "amount": "7", "date": "2024-03-01"},
	} {
		rr := serve(t, h, call{method: "POST", path: "/api/commissions", token: token, body: c})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := serve(t, h, call{method: "GET", path: "/api/commissions/summary?view=monthly", token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[aggregate.Summary[models.Commission]](t, rr)
	assert.Len(t, all.Records, 3)
	assert.True(t, all.Total.Equal(decimal.NewFromInt(147)))

	rr = serve(t, h, call{method: "GET", path: "/api/commissions/summary?view=month&month=2024-02", token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	feb := decode[aggregate.Summary[models.Commission]](t, rr)
	assert.Len(t, feb.Records, 2)
	assert.True(t, feb.Total.Equal(decimal.NewFromInt(140)))
	assert.Equal(t, "2024-02", feb.Month.String())

	rr = serve(t, h, call{method: "GET", path: "/api/commissions/summary?view=weekly", token: token})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_ProfitRouteIsNotAnID(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")

	rr := serve(t, h, call{method: "POST", path: "/api/stocks", token: token,
		body: map[string]string{"name": "Steel", "purchasePrice": "10", "salePrice": "15", "soldQuantity": "4"}})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(t, h, call{method: "GET", path: "/api/stocks/profit", token: token})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Profit decimal.Decimal `json:"profit"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Profit.Equal(decimal.NewFromInt(20)))
}

func TestAPI_AgentPaymentDefaultsToPending(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")

	rr := serve(t, h, call{method: "POST", path: "/api/agentPayments", token: token,
		body: map[string]string{"shipmentNumber": "SH-12", "agentName": "Karachi Agent",
			"paymentAmount": "250", "currency": "AED", "paymentDate": "2024-04-01"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, models.PaymentPending, decode[models.AgentPayment](t, rr).PaymentStatus)
}

func TestAPI_FreightListAndSearch(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")

	rr := serve(t, h, call{method: "POST", path: "/api/freight", token: token,
		body: map[string]string{"shipmentNumber": "SH-7", "originCity": "Peshawar",
			"destinationCity": "Dubai", "status": "In Transit", "freightCostPKR": "120000"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = serve(t, h, call{method: "POST", path: "/api/freight", token: token,
		body: map[string]string{"shipmentNumber": "SH-8", "status": "On the moon"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(t, h, call{method: "GET", path: "/api/freight?q=dubai", token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	found := decode[[]models.Freight](t, rr)
	require.Len(t, found, 1)
	assert.Equal(t, "SH-7", found[0].ShipmentNumber)
}

func TestAPI_DailyExpenseAcceptsPrice(t *testing.T) {
	_, h := setupTestServer(t)
	token := signUp(t, h, "owner")

	rr := serve(t, h, call{method: "POST", path: "/api/dailyexpenses", token: token,
		body: map[string]any{"name": "Tea", "price": 25, "date": "2024-01-01"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.True(t, decode[models.Expense](t, rr).Amount.Equal(decimal.NewFromInt(25)))

	rr = serve(t, h, call{method: "GET", path: "/api/dailyexpenses/totals?day=2024-01-01", token: token})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[aggregate.Totals](t, rr).DayTotal.Equal(decimal.NewFromInt(25)))
}
