package handler

import (
	"net/http"

	"github.com/luminapp/lumina/internal/apperr"
	"github.com/luminapp/lumina/internal/auth"
	"github.com/luminapp/lumina/internal/store"
	"github.com/luminapp/lumina/internal/voice"
)

type VoiceHandler struct {
	voiceStore  *store.VoiceLinkStore
	tokenIssuer *voice.TokenIssuer
}

func NewVoiceHandler(vs *store.VoiceLinkStore, ti *voice.TokenIssuer) *VoiceHandler {
	return &VoiceHandler{voiceStore: vs, tokenIssuer: ti}
}

// SetPIN creates or replaces the user's voice-linking PIN.
func (h *VoiceHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if !voice.ValidPIN(req.PIN) {
		writeBadRequest(w, "pin must be 4 to 8 digits")
		return
	}

	hash, err := voice.HashPIN(req.PIN)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "hash pin", err))
		return
	}
	if _, err := h.voiceStore.SetPIN(auth.UserID(r.Context()), hash); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "store pin", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin_set"})
}

// Token exchanges the user's PIN for a signed access token used during
// Alexa account linking.
func (h *VoiceHandler) Token(w http.ResponseWriter, r *http.Request) {
	if !h.tokenIssuer.Configured() {
		writeError(w, apperr.New(apperr.Conflict, "voice linking is not configured"))
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	userID := auth.UserID(r.Context())
	link, err := h.voiceStore.GetByUserID(userID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "get voice link", err))
		return
	}
	if link == nil {
		writeError(w, apperr.New(apperr.NotFound, "no voice pin set"))
		return
	}
	if !voice.CheckPIN(link.PINHash, req.PIN) {
		writeError(w, apperr.New(apperr.Unauthorized, "wrong pin"))
		return
	}

	token, err := h.tokenIssuer.Issue(userID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "issue token", err))
		return
	}
	if err := h.voiceStore.MarkLinked(userID); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "mark linked", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "Bearer"})
}

// Unlink removes the voice PIN and link.
func (h *VoiceHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	if err := h.voiceStore.Delete(auth.UserID(r.Context())); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "delete voice link", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})
}
