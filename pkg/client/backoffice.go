package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/pkg/aggregate"
	"github.com/mcclellann/backoffice/pkg/calendar"
	"github.com/mcclellann/backoffice/pkg/ledger"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/mcclellann/backoffice/pkg/session"
	"github.com/shopspring/decimal"
)

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login exchanges credentials for a session. The returned session is not
// saved; callers persist it with session.Save.
func (c *Client) Login(ctx context.Context, username, password string) (*session.Session, error) {
	var resp loginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   credentials{Username: username, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return nil, fmt.Errorf("login response missing token")
	}
	return session.FromUser(resp.Token, resp.User), nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	var u models.User
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/register",
		body:   credentials{Username: username, Email: email, Password: password},
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) RecordSale(ctx context.Context, in ledger.SaleInput) (*models.Transaction, error) {
	var tx models.Transaction
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "/api/transactions",
		body:           in,
		idempotencyKey: newIdempotencyKey(),
	}, &tx)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *Client) Transactions(ctx context.Context, customerID uuid.UUID) ([]*models.Transaction, error) {
	var query url.Values
	if customerID != uuid.Nil {
		query = url.Values{"customerId": {customerID.String()}}
	}
	var out []*models.Transaction
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/transactions", query: query}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Recoveries(ctx context.Context) ([]*models.Recovery, error) {
	var out []*models.Recovery
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/recoveries"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecoveryOutcome is the state after a recovery: the recorded write plus
// freshly reloaded lists.
type RecoveryOutcome struct {
	Result     *ledger.RecoveryResult
	Customers  []models.Customer
	Recoveries []*models.Recovery
}

// RecordRecovery validates the amount as typed, records the recovery in one
// call, then reloads customers and recoveries. A failed reload returns
// ErrRefreshFailed together with the outcome holding the recorded result.
func (c *Client) RecordRecovery(ctx context.Context, customerID uuid.UUID, amount string, date calendar.Date) (*RecoveryOutcome, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, ledger.ErrInvalidAmount
	}

	var res ledger.RecoveryResult
	err = c.do(ctx, request{
		method:         http.MethodPost,
		path:           "/api/recoveries",
		body:           ledger.RecoveryInput{CustomerID: customerID, Amount: &value, RecoveryDate: date},
		idempotencyKey: newIdempotencyKey(),
	}, &res)
	if err != nil {
		return nil, err
	}

	out := &RecoveryOutcome{Result: &res}
	if out.Customers, err = c.Customers().List(ctx); err != nil {
		return out, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if out.Recoveries, err = c.Recoveries(ctx); err != nil {
		return out, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return out, nil
}

func (c *Client) Khata(ctx context.Context, customerID uuid.UUID) (*ledger.Khata, error) {
	var k ledger.Khata
	path := "/api/customers/" + customerID.String() + "/khata"
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// ExpenseTotals fetches the totals of the port ("expenses") or daily
// ("dailyexpenses") list. A zero day means today on the server.
func (c *Client) ExpenseTotals(ctx context.Context, list string, day calendar.Date) (*aggregate.Totals, error) {
	var query url.Values
	if !day.IsZero() {
		query = url.Values{"day": {day.String()}}
	}
	var t aggregate.Totals
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/" + list + "/totals", query: query}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) CommissionSummary(ctx context.Context, view aggregate.View, month calendar.Month) (*aggregate.Summary[models.Commission], error) {
	query := url.Values{"view": {string(view)}}
	if !month.IsZero() {
		query.Set("month", month.String())
	}
	var s aggregate.Summary[models.Commission]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/commissions/summary", query: query}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Profit(ctx context.Context) (decimal.Decimal, error) {
	var resp struct {
		Profit decimal.Decimal `json:"profit"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/stocks/profit"}, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Profit, nil
}
