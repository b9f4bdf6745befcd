package main

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/backoffice/pkg/search"
	"github.com/mcclellann/backoffice/pkg/store"
)

// recordHandler serves the list/get/create/update/delete routes of one flat
// record list.
type recordHandler[T search.Searchable] struct {
	s       *Server
	records store.RecordStore[T]
	noun    string
	id      func(*T) *uuid.UUID
	prepare func(*T) // defaults applied before create
}

func newRecordHandler[T search.Searchable](s *Server, records store.RecordStore[T], noun string, id func(*T) *uuid.UUID, prepare func(*T)) *recordHandler[T] {
	return &recordHandler[T]{s: s, records: records, noun: noun, id: id, prepare: prepare}
}

func registerRecords[T search.Searchable](router *mux.Router, path string, h *recordHandler[T]) {
	router.HandleFunc(path, h.list).Methods("GET")
	router.HandleFunc(path, h.create).Methods("POST")
	router.HandleFunc(path+"/"+idPattern, h.get).Methods("GET")
	router.HandleFunc(path+"/"+idPattern, h.update).Methods("PUT")
	router.HandleFunc(path+"/"+idPattern, h.delete).Methods("DELETE")
}

func (h *recordHandler[T]) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.records.List(r.Context())
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filterRecords(items, r.URL.Query().Get("q")))
}

// filterRecords applies the ?q= search term as search.Filter does. The result
// is never nil so an empty list encodes as [].
func filterRecords[T search.Searchable](items []*T, term string) []*T {
	term = strings.ToLower(term)
	out := make([]*T, 0, len(items))
	for _, item := range items {
		if term == "" || search.Matches(*item, term) {
			out = append(out, item)
		}
	}
	return out
}

func (h *recordHandler[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}
	rec, err := h.records.Get(r.Context(), id)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *recordHandler[T]) create(w http.ResponseWriter, r *http.Request) {
	rec := new(T)
	if err := decodeJSON(r, rec); err != nil {
		h.s.writeError(w, r, err)
		return
	}
	*h.id(rec) = uuid.Nil
	if h.prepare != nil {
		h.prepare(rec)
	}
	if err := h.s.validate.Struct(rec); err != nil {
		h.s.writeError(w, r, err)
		return
	}
	if err := h.records.Create(r.Context(), rec); err != nil {
		h.s.writeError(w, r, err)
		return
	}
	h.s.log.Info().Str("record", h.noun).Str("id", h.id(rec).String()).Msg("created")
	writeJSON(w, http.StatusCreated, rec)
}

func (h *recordHandler[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}
	rec := new(T)
	if err := decodeJSON(r, rec); err != nil {
		h.s.writeError(w, r, err)
		return
	}
	*h.id(rec) = id // Ensure ID from URL is used
	if err := h.s.validate.Struct(rec); err != nil {
		h.s.writeError(w, r, err)
		return
	}
	if err := h.records.Update(r.Context(), rec); err != nil {
		h.s.writeError(w, r, err)
		return
	}
	// Re-read so columns an update leaves alone come back as stored.
	stored, err := h.records.Get(r.Context(), id)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *recordHandler[T]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}
	if err := h.records.Delete(r.Context(), id); err != nil {
		h.s.writeError(w, r, err)
		return
	}
	h.s.log.Info().Str("record", h.noun).Str("id", id.String()).Msg("deleted")
	w.WriteHeader(http.StatusNoContent)
}
