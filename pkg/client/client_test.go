package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/backoffice/pkg/calendar"
	"github.com/mcclellann/backoffice/pkg/ledger"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/mcclellann/backoffice/pkg/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, router *mux.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 0, &session.Session{Token: "tok", User: session.User{Role: models.RoleAdmin}})
	require.NoError(t, err)
	return c
}

func TestClient_AttachesBearerAndIdempotencyKey(t *testing.T) {
	var auth, key string
	router := mux.NewRouter()
	router.HandleFunc("/api/expenses", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		key = r.Header.Get("Idempotency-Key")
		var e models.Expense
		require.NoError(t, json.NewDecoder(r.Body).Decode(&e))
		e.ID = uuid.New()
		writeJSON(w, http.StatusCreated, e)
	}).Methods("POST")

	c := newTestClient(t, router)
	created, err := c.PortExpenses().Create(context.Background(), models.Expense{
		Name:   "crane",
		Amount: decimal.NewFromInt(40),
		Date:   calendar.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", auth)
	_, err = uuid.Parse(key)
	assert.NoError(t, err, "idempotency key is a uuid")
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "crane", created.Name)
}

func TestClient_ErrorMapping(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/freight", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token has expired"})
	})
	router.HandleFunc("/api/freight/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "freight not found"})
	})
	router.HandleFunc("/api/commissions", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	c := newTestClient(t, router)
	ctx := context.Background()

	_, err := c.Freight().List(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Freight().Get(ctx, uuid.New())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "freight not found", apiErr.Message)

	_, err = c.Commissions().List(ctx)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestClient_SearchSendsTerm(t *testing.T) {
	var term string
	router := mux.NewRouter()
	router.HandleFunc("/api/agentPayments", func(w http.ResponseWriter, r *http.Request) {
		term = r.URL.Query().Get("q")
		writeJSON(w, http.StatusOK, []models.AgentPayment{})
	})

	c := newTestClient(t, router)
	out, err := c.AgentPayments().Search(context.Background(), "dubai")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, "dubai", term)
}

func TestClient_RecordRecovery(t *testing.T) {
	customerID := uuid.New()
	var posted ledger.RecoveryInput
	router := mux.NewRouter()
	router.HandleFunc("/api/recoveries", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		writeJSON(w, http.StatusCreated, ledger.RecoveryResult{
			Customer: &models.Customer{ID: customerID, Name: "Gul", Loan: decimal.NewFromInt(700)},
			Recovery: &models.Recovery{ID: uuid.New(), CustomerID: customerID, AmountRecovered: *posted.Amount},
		})
	}).Methods("POST")
	router.HandleFunc("/api/recoveries", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Recovery{{CustomerID: customerID, AmountRecovered: decimal.NewFromInt(300)}})
	}).Methods("GET")
	router.HandleFunc("/api/customers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Customer{{ID: customerID, Name: "Gul", Loan: decimal.NewFromInt(700)}})
	}).Methods("GET")

	c := newTestClient(t, router)
	out, err := c.RecordRecovery(context.Background(), customerID, " 300 ", calendar.Date{})
	require.NoError(t, err)

	assert.True(t, posted.Amount.Equal(decimal.NewFromInt(300)))
	assert.True(t, out.Result.Customer.Loan.Equal(decimal.NewFromInt(700)))
	require.Len(t, out.Customers, 1)
	assert.True(t, out.Customers[0].Loan.Equal(decimal.NewFromInt(700)))
	assert.Len(t, out.Recoveries, 1)
}

func TestClient_RecordRecovery_InvalidAmountSendsNothing(t *testing.T) {
	var calls atomic.Int32
	router := mux.NewRouter()
	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	c := newTestClient(t, router)
	for _, amount := range []string{"", "  ", "abc", "12abc"} {
		_, err := c.RecordRecovery(context.Background(), uuid.New(), amount, calendar.Date{})
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "amount %q", amount)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_RecordRecovery_RefreshFailure(t *testing.T) {
	customerID := uuid.New()
	router := mux.NewRouter()
	router.HandleFunc("/api/recoveries", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, ledger.RecoveryResult{
			Customer: &models.Customer{ID: customerID, Loan: decimal.NewFromInt(700)},
			Recovery: &models.Recovery{CustomerID: customerID, AmountRecovered: decimal.NewFromInt(300)},
		})
	}).Methods("POST")
	router.HandleFunc("/api/customers", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	c := newTestClient(t, router)
	out, err := c.RecordRecovery(context.Background(), customerID, "300", calendar.Date{})
	assert.ErrorIs(t, err, ErrRefreshFailed)
	require.NotNil(t, out)
	assert.True(t, out.Result.Customer.Loan.Equal(decimal.NewFromInt(700)))
}

func TestClient_Login(t *testing.T) {
	userID := uuid.New()
	router := mux.NewRouter()
	router.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "signed",
			"user":  models.User{ID: userID, Username: "owner", Role: models.RoleAdmin},
		})
	}).Methods("POST")

	srv := httptest.NewServer(router)
	defer srv.Close()
	c, err := New(srv.URL, 0, nil)
	require.NoError(t, err)

	s, err := c.Login(context.Background(), "owner", "secret")
	require.NoError(t, err)
	assert.Equal(t, "signed", s.Token)
	assert.Equal(t, userID, s.User.ID)
	assert.True(t, s.IsAdmin())
}
