package handler

import (
	"net/http"

	"github.com/luminapp/lumina/internal/apperr"
	"github.com/luminapp/lumina/internal/auth"
	"github.com/luminapp/lumina/internal/billing"
	"github.com/luminapp/lumina/internal/store"
)

type BillingHandler struct {
	stripeClient      *billing.Client
	userStore         *store.UserStore
	subscriptionStore *store.SubscriptionStore
	baseURL           string
}

func NewBillingHandler(sc *billing.Client, us *store.UserStore, ss *store.SubscriptionStore, baseURL string) *BillingHandler {
	return &BillingHandler{
		stripeClient:      sc,
		userStore:         us,
		subscriptionStore: ss,
		baseURL:           baseURL,
	}
}

// Checkout creates a Stripe checkout session for the premium plan and
// returns the redirect URL.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if !h.stripeClient.Configured() {
		writeError(w, apperr.New(apperr.Conflict, "billing is not configured"))
		return
	}

	var req struct {
		Interval string `json:"interval"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Interval == "" {
		req.Interval = "monthly"
	}
	if req.Interval != "monthly" && req.Interval != "annual" {
		writeBadRequest(w, "interval must be monthly or annual")
		return
	}

	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil || user == nil {
		writeError(w, apperr.New(apperr.NotFound, "account not found"))
		return
	}

	customerID := ""
	if user.StripeCustomerID != nil {
		customerID = *user.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = h.stripeClient.CreateCustomer(user.Email)
		if err != nil {
			writeError(w, apperr.Wrap(apperr.Internal, "create customer", err))
			return
		}
		if err := h.userStore.UpdateStripeCustomerID(user.ID, customerID); err != nil {
			writeError(w, apperr.Wrap(apperr.Internal, "save customer id", err))
			return
		}
	}

	url, err := h.stripeClient.CreateCheckoutSession(customerID, h.stripeClient.PriceIDForInterval(req.Interval))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "create checkout session", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Portal creates a Stripe billing portal session.
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	if !h.stripeClient.Configured() {
		writeError(w, apperr.New(apperr.Conflict, "billing is not configured"))
		return
	}

	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil || user == nil {
		writeError(w, apperr.New(apperr.NotFound, "account not found"))
		return
	}
	if user.StripeCustomerID == nil {
		writeError(w, apperr.New(apperr.InvalidArgument, "no billing account"))
		return
	}

	url, err := h.stripeClient.CreateBillingPortalSession(*user.StripeCustomerID, h.baseURL+"/settings")
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "create portal session", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Subscription returns the user's subscription, or the free plan when none
// exists.
func (h *BillingHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subscriptionStore.GetByUserID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "get subscription", err))
		return
	}
	if sub == nil {
		writeJSON(w, http.StatusOK, map[string]any{"plan": "free", "active": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"plan":         sub.Plan,
		"active":       sub.Active(),
		"subscription": sub,
	})
}
