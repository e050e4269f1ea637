package handler

import (
	"net/http"

	"github.com/luminapp/lumina/internal/apperr"
	"github.com/luminapp/lumina/internal/auth"
	"github.com/luminapp/lumina/internal/push"
	"github.com/luminapp/lumina/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	pusher    *push.Service
}

func NewPushHandler(ps *store.PushStore, pusher *push.Service) *PushHandler {
	return &PushHandler{pushStore: ps, pusher: pusher}
}

// VAPIDKey returns the public key browsers need to subscribe.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if !h.pusher.Configured() {
		writeError(w, apperr.New(apperr.Conflict, "push is not configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": h.pusher.VAPIDPublicKey()})
}

// Subscribe stores (or refreshes) a browser push subscription.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeBadRequest(w, "endpoint and keys are required")
		return
	}

	sub, err := h.pushStore.Subscribe(auth.UserID(r.Context()), req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "subscribe", err))
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *PushHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.pushStore.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "list subscriptions", err))
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// Unsubscribe removes the subscription for the given endpoint.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := decodeBody(r, &req); err != nil || req.Endpoint == "" {
		writeBadRequest(w, "endpoint is required")
		return
	}

	if err := h.pushStore.DeleteByEndpoint(req.Endpoint); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "unsubscribe", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}
