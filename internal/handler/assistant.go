package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/luminapp/lumina/internal/apperr"
	"github.com/luminapp/lumina/internal/assistant"
	"github.com/luminapp/lumina/internal/auth"
	"github.com/luminapp/lumina/internal/model"
	"github.com/luminapp/lumina/internal/store"
)

const maxChatMessages = 40

type AssistantHandler struct {
	client           *assistant.Client
	transactionStore *store.TransactionStore
	categoryStore    *store.CategoryStore
	coupleStore      *store.CoupleStore
}

func NewAssistantHandler(
	client *assistant.Client,
	ts *store.TransactionStore,
	cs *store.CategoryStore,
	cos *store.CoupleStore,
) *AssistantHandler {
	return &AssistantHandler{
		client:           client,
		transactionStore: ts,
		categoryStore:    cs,
		coupleStore:      cos,
	}
}

// Chat forwards a conversation to the model with the current month's summary
// injected as context.
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if !h.client.Configured() {
		writeError(w, apperr.New(apperr.Conflict, "assistant is not configured"))
		return
	}

	var req struct {
		Messages []assistant.Message `json:"messages"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if len(req.Messages) == 0 || len(req.Messages) > maxChatMessages {
		writeBadRequest(w, "messages must contain between 1 and 40 entries")
		return
	}

	reply, err := h.client.Chat(r.Context(), h.financialContext(r), req.Messages)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "assistant chat", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// Categorize suggests a category for a transaction description.
func (h *AssistantHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	if !h.client.Configured() {
		writeError(w, apperr.New(apperr.Conflict, "assistant is not configured"))
		return
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeBadRequest(w, "description is required")
		return
	}

	categories, err := h.categoryStore.List(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "list categories", err))
		return
	}

	names := make([]string, 0, len(categories))
	byName := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
		byName[c.Name] = c
	}

	suggestion, err := h.client.SuggestCategory(r.Context(), req.Description, names)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "suggest category", err))
		return
	}
	if suggestion == "" {
		writeJSON(w, http.StatusOK, map[string]any{"category": nil})
		return
	}
	category := byName[suggestion]
	writeJSON(w, http.StatusOK, map[string]any{"category": category})
}

// financialContext renders the current month's summary as plain text for the
// model. Best-effort; chat proceeds without it on error.
func (h *AssistantHandler) financialContext(r *http.Request) string {
	ac, _ := auth.FromContext(r.Context())
	userIDs := []int64{ac.UserID}
	if ac.CoupleID != 0 {
		if c, err := h.coupleStore.GetByID(ac.CoupleID); err == nil && c != nil {
			userIDs = []int64{c.MemberA, c.MemberB}
		}
	}

	summary, err := h.transactionStore.MonthSummary(userIDs, time.Now().UTC())
	if err != nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Month %s: income %s, expenses %s, balance %s.\n",
		summary.Month, summary.Income, summary.Expenses, summary.Balance)
	for _, ct := range summary.ByCategory {
		fmt.Fprintf(&b, "- %s (%s): %s\n", ct.CategoryName, ct.Kind, ct.Total)
	}
	return b.String()
}
