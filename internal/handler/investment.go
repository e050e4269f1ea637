package handler

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/luminapp/lumina/internal/apperr"
	"github.com/luminapp/lumina/internal/auth"
	"github.com/luminapp/lumina/internal/model"
	"github.com/luminapp/lumina/internal/store"
)

type InvestmentHandler struct {
	investmentStore *store.InvestmentStore
}

func NewInvestmentHandler(is *store.InvestmentStore) *InvestmentHandler {
	return &InvestmentHandler{investmentStore: is}
}

type investmentRequest struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Quantity string `json:"quantity"`
	AvgPrice string `json:"avg_price"`
}

func (req *investmentRequest) parse() (quantity, avgPrice decimal.Decimal, err error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return decimal.Zero, decimal.Zero, apperr.New(apperr.InvalidArgument, "symbol is required")
	}
	quantity, qErr := decimal.NewFromString(req.Quantity)
	if qErr != nil || !quantity.IsPositive() {
		return decimal.Zero, decimal.Zero, apperr.New(apperr.InvalidArgument, "quantity must be a positive decimal")
	}
	avgPrice, pErr := decimal.NewFromString(req.AvgPrice)
	if pErr != nil || avgPrice.IsNegative() {
		return decimal.Zero, decimal.Zero, apperr.New(apperr.InvalidArgument, "avg_price must be a non-negative decimal")
	}
	return quantity, avgPrice, nil
}

func (h *InvestmentHandler) List(w http.ResponseWriter, r *http.Request) {
	investments, err := h.investmentStore.List(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "list investments", err))
		return
	}
	writeJSON(w, http.StatusOK, investments)
}

func (h *InvestmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	quantity, avgPrice, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	inv, err := h.investmentStore.Create(auth.UserID(r.Context()), req.Symbol, req.Name, req.Kind, quantity, avgPrice)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "create investment", err))
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *InvestmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid investment id")
		return
	}
	var req investmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	quantity, avgPrice, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.ownInvestment(id, auth.UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	inv, err := h.investmentStore.Update(id, req.Symbol, req.Name, req.Kind, quantity, avgPrice)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "update investment", err))
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvestmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid investment id")
		return
	}

	if _, err := h.ownInvestment(id, auth.UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	if err := h.investmentStore.Delete(id); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "delete investment", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *InvestmentHandler) ownInvestment(id, userID int64) (*model.Investment, error) {
	inv, err := h.investmentStore.GetByID(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get investment", err)
	}
	if inv == nil {
		return nil, apperr.New(apperr.NotFound, "investment not found")
	}
	if inv.UserID != userID {
		return nil, apperr.New(apperr.Unauthorized, "not your investment")
	}
	return inv, nil
}
