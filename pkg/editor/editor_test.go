package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/pkg/calendar"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/mcclellann/backoffice/pkg/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	records   []models.Commission
	failNext  error
	block     chan struct{}
	started   chan struct{}
	creates   int
	deletedID uuid.UUID
}

func (f *fakeRemote) List(context.Context) ([]models.Commission, error) {
	return append([]models.Commission(nil), f.records...), nil
}

func (f *fakeRemote) Create(_ context.Context, rec models.Commission) (models.Commission, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if err := f.takeFailure(); err != nil {
		return models.Commission{}, err
	}
	f.creates++
	rec.ID = uuid.New()
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeRemote) Update(_ context.Context, id uuid.UUID, rec models.Commission) (models.Commission, error) {
	if err := f.takeFailure(); err != nil {
		return models.Commission{}, err
	}
	rec.ID = id
	return rec, nil
}

func (f *fakeRemote) Delete(_ context.Context, id uuid.UUID) error {
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.deletedID = id
	return nil
}

func (f *fakeRemote) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

var (
	admin = &session.Session{Token: "t", User: session.User{Username: "owner", Role: models.RoleAdmin}}
	clerk = &session.Session{Token: "t", User: session.User{Username: "clerk", Role: models.RoleUser}}
)

func commission(name string, amount int64) models.Commission {
	return models.Commission{
		ID:     uuid.New(),
		Name:   name,
		Date:   calendar.NewDate(2024, 3, 1),
		Amount: decimal.NewFromInt(amount),
	}
}

func loaded(t *testing.T, s *session.Session, records ...models.Commission) (*Editor[models.Commission], *fakeRemote) {
	t.Helper()
	remote := &fakeRemote{records: records}
	e := New[models.Commission](remote, s)
	require.NoError(t, e.Load(context.Background()))
	return e, remote
}

func TestSubmit_CreateAppends(t *testing.T) {
	e, remote := loaded(t, clerk, commission("Asif", 10))

	require.NoError(t, e.NewForm())
	assert.Equal(t, Editing, e.State())

	saved, err := e.Submit(context.Background(), models.Commission{Name: "Bilal", Date: calendar.NewDate(2024, 3, 2)})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, 1, remote.creates)

	items := e.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Bilal", items[1].Name)
}

func TestSubmit_UpdateReplacesInPlace(t *testing.T) {
	first, second := commission("Asif", 10), commission("Bilal", 20)
	e, _ := loaded(t, admin, first, second)

	form, err := e.Edit(first.ID)
	require.NoError(t, err)
	form.Amount = decimal.NewFromInt(15)

	_, err = e.Submit(context.Background(), form)
	require.NoError(t, err)

	items := e.Items()
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.True(t, items[0].Amount.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "Bilal", items[1].Name)
}

func TestSubmit_FailureKeepsForm(t *testing.T) {
	e, remote := loaded(t, admin)
	remote.failNext = errors.New("api error 500")

	rec := models.Commission{Name: "Asif"}
	_, err := e.Submit(context.Background(), rec)
	require.Error(t, err)

	assert.Equal(t, Editing, e.State())
	assert.Equal(t, "Asif", e.Form().Name)
	assert.Empty(t, e.Items())
}

func TestSubmit_InFlightGuard(t *testing.T) {
	e, remote := loaded(t, admin)
	remote.block = make(chan struct{})
	remote.started = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background(), models.Commission{Name: "first"})
		done <- err
	}()
	<-remote.started

	assert.Equal(t, Submitting, e.State())
	_, err := e.Submit(context.Background(), models.Commission{Name: "second"})
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(remote.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, remote.creates)
	assert.Len(t, e.Items(), 1)
}

func TestEditAndDelete_AdminOnly(t *testing.T) {
	rec := commission("Asif", 10)
	e, remote := loaded(t, clerk, rec)

	_, err := e.Edit(rec.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	err = e.Delete(context.Background(), rec.ID, func(models.Commission) bool { return true })
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, uuid.Nil, remote.deletedID)
	assert.Len(t, e.Items(), 1)
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	rec := commission("Asif", 10)
	e, remote := loaded(t, admin, rec)

	var asked models.Commission
	err := e.Delete(context.Background(), rec.ID, func(c models.Commission) bool {
		asked = c
		return false
	})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, rec.ID, asked.ID)
	assert.Equal(t, uuid.Nil, remote.deletedID)
	assert.Len(t, e.Items(), 1)
}

func TestDelete_NeverAppearsInLaterSearches(t *testing.T) {
	doomed := commission("Asif Khan", 10)
	e, remote := loaded(t, admin, doomed, commission("Asif Ali", 20), commission("Bilal", 30))

	require.Len(t, e.Search("asif"), 2)
	require.NoError(t, e.Delete(context.Background(), doomed.ID, func(models.Commission) bool { return true }))
	assert.Equal(t, doomed.ID, remote.deletedID)

	for _, term := range []string{"", "asif", "khan", "2024-03-01", "10"} {
		for _, c := range e.Search(term) {
			assert.NotEqual(t, doomed.ID, c.ID, "term %q", term)
		}
	}
	deleted := e.Deleted()
	require.Len(t, deleted, 1)
	assert.Equal(t, doomed.ID, deleted[0].ID)
}

func TestDelete_RemoteFailureKeepsRecord(t *testing.T) {
	rec := commission("Asif", 10)
	e, remote := loaded(t, admin, rec)
	remote.failNext = errors.New("api error 409")

	err := e.Delete(context.Background(), rec.ID, nil)
	require.Error(t, err)
	assert.Len(t, e.Items(), 1)
	assert.Empty(t, e.Deleted())
}

func TestSearch_EmptyReturnsAllInOrder(t *testing.T) {
	e, _ := loaded(t, clerk, commission("c", 1), commission("a", 2), commission("b", 3))
	assert.Empty(t, e.Search("   "))
	got := e.Search("")
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Name)
	assert.Equal(t, "a", got[1].Name)
	assert.Equal(t, "b", got[2].Name)
}

func TestCancel(t *testing.T) {
	rec := commission("Asif", 10)
	e, _ := loaded(t, admin, rec)

	_, err := e.Edit(rec.ID)
	require.NoError(t, err)
	e.Cancel()
	assert.Equal(t, Idle, e.State())

	// After cancel, a submit creates rather than updates.
	saved, err := e.Submit(context.Background(), models.Commission{Name: "new"})
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, saved.ID)
	assert.Len(t, e.Items(), 2)
}
