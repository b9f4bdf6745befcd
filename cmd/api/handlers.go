package main

import (
	"net/http"
	"strings"

	"github.com/mcclellann/backoffice/pkg/aggregate"
	"github.com/mcclellann/backoffice/pkg/auth"
	"github.com/mcclellann/backoffice/pkg/calendar"
	"github.com/mcclellann/backoffice/pkg/ledger"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/mcclellann/backoffice/pkg/store"
)

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	customers, err := s.ledger.GetAllCustomers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filterRecords(customers, r.URL.Query().Get("q")))
}

func (s *Server) getCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.ledger.GetCustomer(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) createCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var c models.Customer
	if err := decodeJSON(r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.validate.Struct(&c); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.CreateCustomer(r.Context(), &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var c models.Customer
	if err := decodeJSON(r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	c.ID = id // Ensure ID from URL is used
	if err := s.validate.Struct(&c); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.ledger.UpdateCustomer(r.Context(), &c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteCustomer(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) khataHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	k, err := s.ledger.Khata(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

func (s *Server) listTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryID(r, "customerId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	txs, err := s.ledger.GetTransactions(r.Context(), customerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) getTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) createTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var in ledger.SaleInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := s.ledger.RecordSale(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) listRecoveriesHandler(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryID(r, "customerId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recoveries, err := s.ledger.GetRecoveries(r.Context(), customerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recoveries == nil {
		recoveries = []*models.Recovery{}
	}
	writeJSON(w, http.StatusOK, recoveries)
}

func (s *Server) createRecoveryHandler(w http.ResponseWriter, r *http.Request) {
	var in ledger.RecoveryInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.ledger.RecordRecovery(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) profitHandler(w http.ResponseWriter, r *http.Request) {
	products, err := s.storage.Products().List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profit": aggregate.Profit(products)})
}

func expenseTotalsHandler(s *Server, expenses store.RecordStore[models.Expense]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := s.today()
		if raw := strings.TrimSpace(r.URL.Query().Get("day")); raw != "" {
			parsed, err := calendar.ParseDate(raw)
			if err != nil {
				s.writeError(w, r, badRequest{msg: "invalid day"})
				return
			}
			day = parsed
		}
		items, err := expenses.List(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, aggregate.TotalsFor(items, day))
	}
}

func (s *Server) commissionSummaryHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := aggregate.ParseView(q.Get("view"))
	if err != nil {
		s.writeError(w, r, badRequest{msg: err.Error()})
		return
	}
	var month calendar.Month
	if view == aggregate.ViewMonth {
		raw := q.Get("month")
		if raw == "" {
			month = s.today().YearMonth()
		} else if month, err = calendar.ParseMonth(raw); err != nil {
			s.writeError(w, r, badRequest{msg: "invalid month"})
			return
		}
	}

	items, err := s.storage.Commissions().List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Summarize(items, view, s.today(), month))
}
