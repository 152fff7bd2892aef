package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/display"
	"bilancio/internal/ledger"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

// entryRequest is one entry as the client submits it.
type entryRequest struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Value       amountField `json:"value"`
}

// amountField accepts "12.50", "12,50", 12.5 or 1e3. Exponents are only
// understood in JSON numbers; strings go to core.ParseAmount untouched.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("value must be a string or a number")
	}
	if v, err := decimal.NewFromString(n.String()); err == nil {
		*a = amountField(v.String())
		return nil
	}
	*a = amountField(n.String())
	return nil
}

type mutationResponse struct {
	Entries  []display.ItemView `json:"entries,omitempty"`
	Deleted  *bool              `json:"deleted,omitempty"`
	Overview display.Overview   `json:"overview"`
}

type percentagesResponse struct {
	Percentages []ledger.Percentage `json:"percentages"`
	Labels      []string            `json:"labels"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, display.NewOverview(s.ledger.Snapshot(r.Context()), s.now()))
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, display.NewBudgetView(s.ledger.BudgetSummary(r.Context())))
}

func (s *Server) handlePercentages(w http.ResponseWriter, r *http.Request) {
	ps := s.ledger.ExpensePercentages(r.Context())
	writeJSON(w, http.StatusOK, percentagesResponse{
		Percentages: ps,
		Labels:      display.PercentageLabels(ps),
	})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEntryRequest(w, r)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	in, err := core.NewEntryInput(req.Type, req.Description, string(req.Value))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	res, err := s.ledger.AddEntry(r.Context(), in)
	if err != nil {
		s.fail(w, r, err, log.OpAdd)
		return
	}
	writeJSON(w, http.StatusCreated, s.mutationResponse(res, nil))
}

func (s *Server) handleCreateEntries(w http.ResponseWriter, r *http.Request) {
	var reqs []entryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		s.badRequest(w, r, fmt.Errorf("malformed JSON body: %w", err))
		return
	}
	if len(reqs) == 0 {
		s.badRequest(w, r, errors.New("no entries to add"))
		return
	}

	ins := make([]core.EntryInput, 0, len(reqs))
	for i, req := range reqs {
		in, err := core.NewEntryInput(req.Type, req.Description, string(req.Value))
		if err != nil {
			s.badRequest(w, r, fmt.Errorf("item %d: %w", i, err))
			return
		}
		ins = append(ins, in)
	}

	res, err := s.ledger.AddEntries(r.Context(), ins)
	if err != nil {
		s.fail(w, r, err, log.OpAddBatch)
		return
	}
	writeJSON(w, http.StatusCreated, s.mutationResponse(res, nil))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	c, id, err := core.ParseElementID(r.PathValue("element"))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	res, err := s.ledger.DeleteEntry(r.Context(), c, id)
	if err != nil {
		s.fail(w, r, err, log.OpDelete)
		return
	}
	writeJSON(w, http.StatusOK, s.mutationResponse(res, &res.Deleted))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
}

func (s *Server) mutationResponse(res services.Result, deleted *bool) mutationResponse {
	items := make([]display.ItemView, len(res.Entries))
	for i, e := range res.Entries {
		items[i] = display.NewItemView(e)
	}
	return mutationResponse{
		Entries:  items,
		Deleted:  deleted,
		Overview: display.NewOverview(res.Snapshot, s.now()),
	}
}

// decodeEntryRequest reads a JSON body, or form fields for any other content type.
func decodeEntryRequest(w http.ResponseWriter, r *http.Request) (entryRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		var req entryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return entryRequest{}, fmt.Errorf("malformed JSON body: %w", err)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return entryRequest{}, fmt.Errorf("malformed form: %w", err)
	}
	return entryRequest{
		Type:        r.PostForm.Get("type"),
		Description: r.PostForm.Get("description"),
		Value:       amountField(r.PostForm.Get("value")),
	}, nil
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected request",
		log.FieldOperation, log.OpValidate,
		log.FieldError, err.Error(),
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusBadRequest, err)
}

// fail maps service errors: validation problems are the caller's fault,
// anything else is logged as a server error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	if core.IsValidationError(err) {
		s.badRequest(w, r, err)
		return
	}
	log.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, op, nil)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
