package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/pkg/models"
)

// Resource is the list/get/create/update/delete surface of one record list.
type Resource[T any] struct {
	c    *Client
	path string
}

func newResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{c: c, path: path}
}

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	return r.Search(ctx, "")
}

// Search asks the server for the records matching term.
func (r *Resource[T]) Search(ctx context.Context, term string) ([]T, error) {
	var query url.Values
	if term != "" {
		query = url.Values{"q": {term}}
	}
	var out []T
	if err := r.c.do(ctx, request{method: http.MethodGet, path: r.path, query: query}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	var out T
	err := r.c.do(ctx, request{method: http.MethodGet, path: r.path + "/" + id.String()}, &out)
	return out, err
}

func (r *Resource[T]) Create(ctx context.Context, rec T) (T, error) {
	var out T
	err := r.c.do(ctx, request{
		method:         http.MethodPost,
		path:           r.path,
		body:           rec,
		idempotencyKey: newIdempotencyKey(),
	}, &out)
	return out, err
}

func (r *Resource[T]) Update(ctx context.Context, id uuid.UUID, rec T) (T, error) {
	var out T
	err := r.c.do(ctx, request{method: http.MethodPut, path: r.path + "/" + id.String(), body: rec}, &out)
	return out, err
}

func (r *Resource[T]) Delete(ctx context.Context, id uuid.UUID) error {
	return r.c.do(ctx, request{method: http.MethodDelete, path: r.path + "/" + id.String()}, nil)
}

func (c *Client) Customers() *Resource[models.Customer] {
	return newResource[models.Customer](c, "/api/customers")
}

func (c *Client) Stocks() *Resource[models.Product] {
	return newResource[models.Product](c, "/api/stocks")
}

func (c *Client) PortExpenses() *Resource[models.Expense] {
	return newResource[models.Expense](c, "/api/expenses")
}

func (c *Client) DailyExpenses() *Resource[models.Expense] {
	return newResource[models.Expense](c, "/api/dailyexpenses")
}

func (c *Client) Commissions() *Resource[models.Commission] {
	return newResource[models.Commission](c, "/api/commissions")
}

func (c *Client) Freight() *Resource[models.Freight] {
	return newResource[models.Freight](c, "/api/freight")
}

func (c *Client) AgentPayments() *Resource[models.AgentPayment] {
	return newResource[models.AgentPayment](c, "/api/agentPayments")
}
