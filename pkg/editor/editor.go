// Package editor drives one record list: load, search, create or edit through
// a form, and delete with confirmation.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/mcclellann/backoffice/pkg/search"
	"github.com/mcclellann/backoffice/pkg/session"
)

var (
	ErrForbidden        = errors.New("admin role required")
	ErrSubmitInProgress = errors.New("a submit is already in progress")
	ErrNotFound         = errors.New("record not in list")
	ErrCancelled        = errors.New("delete not confirmed")
)

// Remote is the server side of a record list.
type Remote[T models.Record] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, id uuid.UUID, rec T) (T, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type State int

const (
	Idle State = iota
	Editing
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Editor holds the in-memory list for one screen. It is safe for concurrent
// use; Submit releases the lock while the remote call is in flight.
type Editor[T models.Record] struct {
	remote  Remote[T]
	session *session.Session

	mu        sync.Mutex
	items     []T
	deleted   []T
	state     State
	editingID uuid.UUID
	form      T
}

func New[T models.Record](remote Remote[T], s *session.Session) *Editor[T] {
	return &Editor[T]{remote: remote, session: s}
}

// Load replaces the local list with the server's.
func (e *Editor[T]) Load(ctx context.Context) error {
	items, err := e.remote.List(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.items = items
	e.mu.Unlock()
	return nil
}

// NewForm opens an empty form for a record to be created.
func (e *Editor[T]) NewForm() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Submitting {
		return ErrSubmitInProgress
	}
	if !e.session.Allows(session.ActionCreate) {
		return ErrForbidden
	}
	var zero T
	e.form = zero
	e.editingID = uuid.Nil
	e.state = Editing
	return nil
}

// Edit opens the form on an existing record. Admins only.
func (e *Editor[T]) Edit(id uuid.UUID) (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero T
	if e.state == Submitting {
		return zero, ErrSubmitInProgress
	}
	if !e.session.Allows(session.ActionEdit) {
		return zero, ErrForbidden
	}
	i := e.indexOf(id)
	if i < 0 {
		return zero, ErrNotFound
	}
	e.form = e.items[i]
	e.editingID = id
	e.state = Editing
	return e.form, nil
}

// Cancel closes the form without saving.
func (e *Editor[T]) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Submitting {
		return
	}
	var zero T
	e.form = zero
	e.editingID = uuid.Nil
	e.state = Idle
}

// Submit saves rec: an update when a record is being edited, a create
// otherwise. On failure the form stays open with rec in it.
func (e *Editor[T]) Submit(ctx context.Context, rec T) (T, error) {
	var zero T

	e.mu.Lock()
	if e.state == Submitting {
		e.mu.Unlock()
		return zero, ErrSubmitInProgress
	}
	editingID := e.editingID
	action := session.ActionCreate
	if editingID != uuid.Nil {
		action = session.ActionEdit
	}
	if !e.session.Allows(action) {
		e.mu.Unlock()
		return zero, ErrForbidden
	}
	e.state = Submitting
	e.form = rec
	e.mu.Unlock()

	var saved T
	var err error
	if editingID != uuid.Nil {
		saved, err = e.remote.Update(ctx, editingID, rec)
	} else {
		saved, err = e.remote.Create(ctx, rec)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = Editing
		return zero, err
	}
	if editingID != uuid.Nil {
		if i := e.indexOf(editingID); i >= 0 {
			e.items[i] = saved
		}
	} else {
		e.items = append(e.items, saved)
	}
	e.form = zero
	e.editingID = uuid.Nil
	e.state = Idle
	return saved, nil
}

// Delete removes a record after confirm returns true. Admins only. The
// removed record is kept on the recently deleted list for this session.
func (e *Editor[T]) Delete(ctx context.Context, id uuid.UUID, confirm func(T) bool) error {
	if !e.session.Allows(session.ActionDelete) {
		return ErrForbidden
	}

	e.mu.Lock()
	i := e.indexOf(id)
	if i < 0 {
		e.mu.Unlock()
		return ErrNotFound
	}
	rec := e.items[i]
	e.mu.Unlock()

	if confirm != nil && !confirm(rec) {
		return ErrCancelled
	}
	if err := e.remote.Delete(ctx, id); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexOf(id); i >= 0 {
		e.items = append(e.items[:i:i], e.items[i+1:]...)
	}
	e.deleted = append(e.deleted, rec)
	return nil
}

// Search filters the full local list. A blank term returns everything.
func (e *Editor[T]) Search(term string) []T {
	return search.Filter(e.Items(), term)
}

// Items returns a copy of the local list.
func (e *Editor[T]) Items() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]T(nil), e.items...)
}

// Deleted returns the records deleted during this session.
func (e *Editor[T]) Deleted() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]T(nil), e.deleted...)
}

func (e *Editor[T]) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Form returns the record currently in the form.
func (e *Editor[T]) Form() T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form
}

func (e *Editor[T]) indexOf(id uuid.UUID) int {
	for i, item := range e.items {
		if item.RecordID() == id {
			return i
		}
	}
	return -1
}
