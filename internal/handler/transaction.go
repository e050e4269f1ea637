package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luminapp/lumina/internal/apperr"
	"github.com/luminapp/lumina/internal/auth"
	"github.com/luminapp/lumina/internal/model"
	"github.com/luminapp/lumina/internal/store"
	"github.com/luminapp/lumina/internal/websocket"
)

type TransactionHandler struct {
	transactionStore *store.TransactionStore
	coupleStore      *store.CoupleStore
	hub              *websocket.Hub
}

func NewTransactionHandler(ts *store.TransactionStore, cs *store.CoupleStore, hub *websocket.Hub) *TransactionHandler {
	return &TransactionHandler{
		transactionStore: ts,
		coupleStore:      cs,
		hub:              hub,
	}
}

type transactionRequest struct {
	CategoryID  *int64  `json:"category_id"`
	Kind        string  `json:"kind"`
	Amount      string  `json:"amount"`
	Description string  `json:"description"`
	OccurredAt  *string `json:"occurred_at"`
}

func (req *transactionRequest) parse() (decimal.Decimal, time.Time, error) {
	if req.Kind != model.KindExpense && req.Kind != model.KindIncome {
		return decimal.Zero, time.Time{}, apperr.New(apperr.InvalidArgument, "kind must be expense or income")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, time.Time{}, apperr.New(apperr.InvalidArgument, "amount must be a positive decimal")
	}
	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt, err = time.Parse(time.RFC3339, *req.OccurredAt)
		if err != nil {
			return decimal.Zero, time.Time{}, apperr.New(apperr.InvalidArgument, "occurred_at must be RFC 3339")
		}
	}
	return amount, occurredAt, nil
}

// Create records a transaction for the authenticated user.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	amount, occurredAt, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	ac, _ := auth.FromContext(r.Context())
	txn, err := h.transactionStore.Create(ac.UserID, req.CategoryID, req.Kind, amount, req.Description, occurredAt)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "create transaction", err))
		return
	}

	h.hub.BroadcastCouple(ac.CoupleID, ac.UserID, websocket.NewMessage("transaction", "created", txn.ID, nil))
	writeJSON(w, http.StatusCreated, txn)
}

// List returns the user's transactions in a date range. With ?scope=couple
// and a linked partner, both members' transactions are returned.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ac, _ := auth.FromContext(r.Context())
	var txns []model.Transaction
	if r.URL.Query().Get("scope") == "couple" && ac.CoupleID != 0 {
		c, err := h.coupleStore.GetByID(ac.CoupleID)
		if err != nil || c == nil {
			writeError(w, apperr.Wrap(apperr.Internal, "get couple", err))
			return
		}
		txns, err = h.transactionStore.ListForCouple(c.MemberA, c.MemberB, from, to)
		if err != nil {
			writeError(w, apperr.Wrap(apperr.Internal, "list transactions", err))
			return
		}
	} else {
		txns, err = h.transactionStore.List(ac.UserID, from, to)
		if err != nil {
			writeError(w, apperr.Wrap(apperr.Internal, "list transactions", err))
			return
		}
	}
	writeJSON(w, http.StatusOK, txns)
}

// Get returns one transaction. Partners can read each other's entries.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.loadVisible(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// Update modifies a transaction. Only the owner can modify.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid transaction id")
		return
	}
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	amount, occurredAt, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	ac, _ := auth.FromContext(r.Context())
	existing, err := h.transactionStore.GetByID(id)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "get transaction", err))
		return
	}
	if existing == nil {
		writeError(w, apperr.New(apperr.NotFound, "transaction not found"))
		return
	}
	if existing.UserID != ac.UserID {
		writeError(w, apperr.New(apperr.Unauthorized, "not your transaction"))
		return
	}

	txn, err := h.transactionStore.Update(id, req.CategoryID, req.Kind, amount, req.Description, occurredAt)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "update transaction", err))
		return
	}

	h.hub.BroadcastCouple(ac.CoupleID, ac.UserID, websocket.NewMessage("transaction", "updated", txn.ID, nil))
	writeJSON(w, http.StatusOK, txn)
}

// Delete removes a transaction. Only the owner can delete.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid transaction id")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	existing, err := h.transactionStore.GetByID(id)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "get transaction", err))
		return
	}
	if existing == nil {
		writeError(w, apperr.New(apperr.NotFound, "transaction not found"))
		return
	}
	if existing.UserID != ac.UserID {
		writeError(w, apperr.New(apperr.Unauthorized, "not your transaction"))
		return
	}

	if err := h.transactionStore.Delete(id); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "delete transaction", err))
		return
	}

	h.hub.BroadcastCouple(ac.CoupleID, ac.UserID, websocket.NewMessage("transaction", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Summary returns income, expenses, balance, and per-category totals for one
// month (?month=2026-08, default current). Includes the partner when linked.
func (h *TransactionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ref := time.Now().UTC()
	if month := r.URL.Query().Get("month"); month != "" {
		parsed, err := time.Parse("2006-01", month)
		if err != nil {
			writeBadRequest(w, "month must look like 2026-08")
			return
		}
		ref = parsed
	}

	ac, _ := auth.FromContext(r.Context())
	userIDs := []int64{ac.UserID}
	if ac.CoupleID != 0 {
		c, err := h.coupleStore.GetByID(ac.CoupleID)
		if err == nil && c != nil {
			userIDs = []int64{c.MemberA, c.MemberB}
		}
	}

	summary, err := h.transactionStore.MonthSummary(userIDs, ref)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "month summary", err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *TransactionHandler) loadVisible(r *http.Request) (*model.Transaction, error) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "invalid transaction id")
	}
	txn, err := h.transactionStore.GetByID(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get transaction", err)
	}
	if txn == nil {
		return nil, apperr.New(apperr.NotFound, "transaction not found")
	}

	ac, _ := auth.FromContext(r.Context())
	if txn.UserID == ac.UserID {
		return txn, nil
	}
	if ac.CoupleID != 0 {
		c, err := h.coupleStore.GetByID(ac.CoupleID)
		if err == nil && c != nil && c.HasMember(txn.UserID) {
			return txn, nil
		}
	}
	return nil, apperr.New(apperr.Unauthorized, "not your transaction")
}

// parseDateRange reads ?from= and ?to= (RFC 3339 dates), defaulting to the
// last 30 days.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if s := r.URL.Query().Get("from"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.New(apperr.InvalidArgument, "from must look like 2026-08-01")
		}
		from = parsed
	}
	if s := r.URL.Query().Get("to"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.New(apperr.InvalidArgument, "to must look like 2026-08-31")
		}
		// Inclusive end of day
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}
