package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luminapp/lumina/internal/model"
	"github.com/luminapp/lumina/internal/store"
	"github.com/luminapp/lumina/internal/voice"
)

// alexaRequest is the subset of the Alexa request envelope we need.
type alexaRequest struct {
	Request struct {
		Type   string `json:"type"`
		Intent struct {
			Name  string `json:"name"`
			Slots map[string]struct {
				Value string `json:"value"`
			} `json:"slots"`
		} `json:"intent"`
	} `json:"request"`
	Context struct {
		System struct {
			User struct {
				AccessToken string `json:"accessToken"`
			} `json:"user"`
		} `json:"System"`
	} `json:"context"`
}

type alexaResponse struct {
	Version  string `json:"version"`
	Response struct {
		OutputSpeech struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"outputSpeech"`
		ShouldEndSession bool `json:"shouldEndSession"`
	} `json:"response"`
}

func speak(text string, endSession bool) alexaResponse {
	var resp alexaResponse
	resp.Version = "1.0"
	resp.Response.OutputSpeech.Type = "PlainText"
	resp.Response.OutputSpeech.Text = text
	resp.Response.ShouldEndSession = endSession
	return resp
}

type AlexaHandler struct {
	tokenIssuer      *voice.TokenIssuer
	transactionStore *store.TransactionStore
	coupleStore      *store.CoupleStore
	logger           *slog.Logger
}

func NewAlexaHandler(
	ti *voice.TokenIssuer,
	ts *store.TransactionStore,
	cs *store.CoupleStore,
	logger *slog.Logger,
) *AlexaHandler {
	return &AlexaHandler{
		tokenIssuer:      ti,
		transactionStore: ts,
		coupleStore:      cs,
		logger:           logger.With("component", "alexa"),
	}
}

// HandleAlexaWebhook routes skill requests. The access token obtained during
// account linking identifies the user.
func (h *AlexaHandler) HandleAlexaWebhook(w http.ResponseWriter, r *http.Request) {
	var req alexaRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	token := req.Context.System.User.AccessToken
	if token == "" {
		writeJSON(w, http.StatusOK, speak("Please link your Lumina account in the Alexa app first.", true))
		return
	}
	userID, err := h.tokenIssuer.Verify(token)
	if err != nil {
		h.logger.Warn("invalid alexa access token", "error", err)
		writeJSON(w, http.StatusOK, speak("Your account link has expired. Please relink Lumina in the Alexa app.", true))
		return
	}

	switch {
	case req.Request.Type == "LaunchRequest":
		writeJSON(w, http.StatusOK, speak("Welcome to Lumina. You can ask for your balance, your spending, or add an expense.", false))
	case req.Request.Type == "IntentRequest":
		h.handleIntent(w, userID, req)
	default:
		writeJSON(w, http.StatusOK, speak("Goodbye.", true))
	}
}

func (h *AlexaHandler) handleIntent(w http.ResponseWriter, userID int64, req alexaRequest) {
	switch req.Request.Intent.Name {
	case "GetBalanceIntent":
		summary, err := h.monthSummary(userID)
		if err != nil {
			h.logger.Error("month summary", "error", err)
			writeJSON(w, http.StatusOK, speak("Sorry, I could not look that up right now.", true))
			return
		}
		writeJSON(w, http.StatusOK, speak(
			fmt.Sprintf("This month your balance is %s: %s in and %s out.",
				summary.Balance.StringFixed(2), summary.Income.StringFixed(2), summary.Expenses.StringFixed(2)),
			true))

	case "GetSpendingIntent":
		summary, err := h.monthSummary(userID)
		if err != nil {
			h.logger.Error("month summary", "error", err)
			writeJSON(w, http.StatusOK, speak("Sorry, I could not look that up right now.", true))
			return
		}
		text := fmt.Sprintf("You have spent %s this month.", summary.Expenses.StringFixed(2))
		if top := topExpense(summary); top != "" {
			text += " Most of it went to " + top + "."
		}
		writeJSON(w, http.StatusOK, speak(text, true))

	case "AddExpenseIntent":
		amountSlot := req.Request.Intent.Slots["amount"].Value
		description := req.Request.Intent.Slots["description"].Value
		amount, err := decimal.NewFromString(amountSlot)
		if err != nil || !amount.IsPositive() {
			writeJSON(w, http.StatusOK, speak("I did not catch the amount. Try something like: add a twelve dollar expense for lunch.", false))
			return
		}
		if description == "" {
			description = "Added by voice"
		}
		if _, err := h.transactionStore.Create(userID, nil, model.KindExpense, amount, description, time.Now().UTC()); err != nil {
			h.logger.Error("create voice expense", "error", err)
			writeJSON(w, http.StatusOK, speak("Sorry, I could not save that expense.", true))
			return
		}
		writeJSON(w, http.StatusOK, speak(fmt.Sprintf("Added a %s expense for %s.", amount.StringFixed(2), description), true))

	default:
		writeJSON(w, http.StatusOK, speak("You can ask for your balance, your spending, or add an expense.", false))
	}
}

// monthSummary covers the couple when the user is linked.
func (h *AlexaHandler) monthSummary(userID int64) (*model.MonthSummary, error) {
	userIDs := []int64{userID}
	if c, err := h.coupleStore.GetForUser(userID); err == nil && c != nil {
		userIDs = []int64{c.MemberA, c.MemberB}
	}
	return h.transactionStore.MonthSummary(userIDs, time.Now().UTC())
}

func topExpense(summary *model.MonthSummary) string {
	top := ""
	max := decimal.Zero
	for _, ct := range summary.ByCategory {
		if ct.Kind == model.KindExpense && ct.Total.GreaterThan(max) {
			max = ct.Total
			top = ct.CategoryName
		}
	}
	return top
}
