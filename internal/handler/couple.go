package handler

import (
	"log/slog"
	"net/http"

	"github.com/luminapp/lumina/internal/apperr"
	"github.com/luminapp/lumina/internal/auth"
	"github.com/luminapp/lumina/internal/couple"
	"github.com/luminapp/lumina/internal/model"
	"github.com/luminapp/lumina/internal/push"
	"github.com/luminapp/lumina/internal/store"
	"github.com/luminapp/lumina/internal/websocket"
)

type CoupleHandler struct {
	service     *couple.Service
	userStore   *store.UserStore
	inviteStore *store.InviteStore
	coupleStore *store.CoupleStore
	pushStore   *store.PushStore
	pusher      *push.Service
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewCoupleHandler(
	svc *couple.Service,
	us *store.UserStore,
	is *store.InviteStore,
	cs *store.CoupleStore,
	ps *store.PushStore,
	pusher *push.Service,
	hub *websocket.Hub,
	logger *slog.Logger,
) *CoupleHandler {
	return &CoupleHandler{
		service:     svc,
		userStore:   us,
		inviteStore: is,
		coupleStore: cs,
		pushStore:   ps,
		pusher:      pusher,
		hub:         hub,
		logger:      logger.With("component", "couple"),
	}
}

// SendInvite creates a pending invite to the given partner email.
func (h *CoupleHandler) SendInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	inv, err := h.service.SendInvite(r.Context(), auth.UserID(r.Context()), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	if inv.SentTo != nil {
		h.notifyUser(*inv.SentTo, "New partner invite", "Someone wants to link finances with you")
		h.hub.BroadcastUser(*inv.SentTo, websocket.NewMessage("invite", "received", inv.ID, nil))
	}
	writeJSON(w, http.StatusCreated, inv)
}

// ListInvites returns pending invites addressed to the user and all invites
// the user has sent.
func (h *CoupleHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	user, err := h.userStore.GetByID(userID)
	if err != nil || user == nil {
		writeError(w, apperr.New(apperr.Unauthenticated, "account not found"))
		return
	}

	received, err := h.inviteStore.ListPendingForUser(userID, user.Email)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "list received invites", err))
		return
	}
	sent, err := h.inviteStore.ListSentBy(userID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "list sent invites", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"received": received,
		"sent":     sent,
	})
}

// AcceptInvite links the acting user with the invite sender.
func (h *CoupleHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	inviteID, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid invite id")
		return
	}
	userID := auth.UserID(r.Context())

	c, err := h.service.AcceptInvite(r.Context(), inviteID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	partnerID := c.PartnerOf(userID)
	h.notifyUser(partnerID, "Invite accepted", "Your partner accepted your invite")
	h.hub.BroadcastCouple(c.ID, userID, websocket.NewMessage("couple", "linked", c.ID, nil))
	writeJSON(w, http.StatusOK, c)
}

// RejectInvite declines (or withdraws) a pending invite.
func (h *CoupleHandler) RejectInvite(w http.ResponseWriter, r *http.Request) {
	inviteID, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid invite id")
		return
	}

	if err := h.service.RejectInvite(r.Context(), inviteID, auth.UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// Get returns the user's couple and partner profile, or 404 when not linked.
func (h *CoupleHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	c, err := h.coupleStore.GetForUser(userID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "get couple", err))
		return
	}
	if c == nil {
		writeError(w, apperr.New(apperr.NotFound, "not linked"))
		return
	}

	partner, err := h.userStore.GetByID(c.PartnerOf(userID))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "get partner", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"couple":  c,
		"partner": partner,
	})
}

// Disconnect unlinks the couple.
func (h *CoupleHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	c, err := h.coupleStore.GetForUser(userID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "get couple", err))
		return
	}

	if err := h.service.Disconnect(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	if c != nil {
		partnerID := c.PartnerOf(userID)
		h.notifyUser(partnerID, "Accounts unlinked", "Your partner disconnected your shared space")
		h.hub.BroadcastUser(partnerID, websocket.NewMessage("couple", "disconnected", c.ID, nil))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// notifyUser sends a best-effort web push to all of a user's devices.
func (h *CoupleHandler) notifyUser(userID int64, title, body string) {
	if !h.pusher.Configured() {
		return
	}
	subs, err := h.pushStore.ListForUser(userID)
	if err != nil {
		h.logger.Warn("list push subscriptions", "user", userID, "error", err)
		return
	}
	for i := range subs {
		h.sendPush(&subs[i], push.Payload{Title: title, Body: body, Tag: "couple"})
	}
}

func (h *CoupleHandler) sendPush(sub *model.PushSubscription, payload push.Payload) {
	if err := h.pusher.Send(sub, payload); err != nil {
		if err == push.ErrExpired {
			h.pushStore.DeleteByEndpoint(sub.Endpoint)
			return
		}
		h.logger.Warn("send push", "endpoint", sub.Endpoint, "error", err)
	}
}
