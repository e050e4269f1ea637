package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/luminapp/lumina/internal/billing"
	"github.com/luminapp/lumina/internal/store"
)

type WebhookHandler struct {
	stripeClient      *billing.Client
	userStore         *store.UserStore
	subscriptionStore *store.SubscriptionStore
	logger            *slog.Logger
}

func NewWebhookHandler(sc *billing.Client, us *store.UserStore, ss *store.SubscriptionStore, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		stripeClient:      sc,
		userStore:         us,
		subscriptionStore: ss,
		logger:            logger.With("component", "stripe_webhook"),
	}
}

func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	event, err := h.stripeClient.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(event)
	case "invoice.paid":
		h.handleInvoicePaid(event)
	case "invoice.payment_failed":
		h.handleInvoicePaymentFailed(event)
	case "customer.subscription.updated":
		h.handleSubscriptionUpdated(event)
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(event)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleCheckoutCompleted(event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session", "error", err)
		return
	}

	email := ""
	if sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	if email == "" {
		h.logger.Warn("checkout session missing email")
		return
	}

	user, err := h.userStore.GetByEmail(email)
	if err != nil || user == nil {
		h.logger.Error("checkout for unknown account", "email", email, "error", err)
		return
	}

	if sess.Customer != nil {
		if err := h.userStore.UpdateStripeCustomerID(user.ID, sess.Customer.ID); err != nil {
			h.logger.Error("update stripe customer id", "error", err)
		}
	}

	sub, err := h.subscriptionStore.GetByUserID(user.ID)
	if err != nil {
		h.logger.Error("get subscription", "error", err)
		return
	}
	if sub == nil {
		sub, err = h.subscriptionStore.Create(user.ID, "premium")
		if err != nil {
			h.logger.Error("create subscription", "error", err)
			return
		}
	}

	if sess.Subscription != nil {
		if err := h.subscriptionStore.UpdateStripeID(sub.ID, sess.Subscription.ID); err != nil {
			h.logger.Error("update stripe subscription id", "error", err)
		}
	}
	if err := h.subscriptionStore.UpdateStatus(sub.ID, "active"); err != nil {
		h.logger.Error("activate subscription", "error", err)
	}

	h.logger.Info("checkout completed", "user", user.ID)
}

func subscriptionIDFromInvoice(invoice stripe.Invoice) string {
	if invoice.Parent != nil &&
		invoice.Parent.SubscriptionDetails != nil &&
		invoice.Parent.SubscriptionDetails.Subscription != nil {
		return invoice.Parent.SubscriptionDetails.Subscription.ID
	}
	return ""
}

func (h *WebhookHandler) handleInvoicePaid(event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("unmarshal invoice", "error", err)
		return
	}

	subID := subscriptionIDFromInvoice(invoice)
	if subID == "" {
		return
	}

	sub, err := h.subscriptionStore.GetByStripeID(subID)
	if err != nil || sub == nil {
		h.logger.Warn("invoice.paid for unknown subscription", "stripe_id", subID)
		return
	}

	if err := h.subscriptionStore.UpdateStatus(sub.ID, "active"); err != nil {
		h.logger.Error("update subscription status", "error", err)
	}
	if invoice.PeriodEnd > 0 {
		periodEnd := time.Unix(invoice.PeriodEnd, 0).UTC()
		if err := h.subscriptionStore.UpdatePeriodEnd(sub.ID, periodEnd); err != nil {
			h.logger.Error("update period end", "error", err)
		}
	}
}

func (h *WebhookHandler) handleInvoicePaymentFailed(event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("unmarshal invoice", "error", err)
		return
	}

	subID := subscriptionIDFromInvoice(invoice)
	if subID == "" {
		return
	}

	sub, err := h.subscriptionStore.GetByStripeID(subID)
	if err != nil || sub == nil {
		return
	}
	if err := h.subscriptionStore.UpdateStatus(sub.ID, "past_due"); err != nil {
		h.logger.Error("update subscription status to past_due", "error", err)
	}
}

func (h *WebhookHandler) handleSubscriptionUpdated(event stripe.Event) {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		h.logger.Error("unmarshal subscription", "error", err)
		return
	}

	sub, err := h.subscriptionStore.GetByStripeID(stripeSub.ID)
	if err != nil || sub == nil {
		return
	}

	if err := h.subscriptionStore.UpdateStatus(sub.ID, string(stripeSub.Status)); err != nil {
		h.logger.Error("update subscription status", "error", err)
	}
	if err := h.subscriptionStore.SetCancelAtPeriodEnd(sub.ID, stripeSub.CancelAtPeriodEnd); err != nil {
		h.logger.Error("set cancel at period end", "error", err)
	}
}

func (h *WebhookHandler) handleSubscriptionDeleted(event stripe.Event) {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		h.logger.Error("unmarshal subscription", "error", err)
		return
	}

	sub, err := h.subscriptionStore.GetByStripeID(stripeSub.ID)
	if err != nil || sub == nil {
		return
	}
	if err := h.subscriptionStore.UpdateStatus(sub.ID, "canceled"); err != nil {
		h.logger.Error("update subscription status to canceled", "error", err)
	}
}
