package handler

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/luminapp/lumina/internal/apperr"
	"github.com/luminapp/lumina/internal/auth"
	"github.com/luminapp/lumina/internal/email"
	"github.com/luminapp/lumina/internal/middleware"
	"github.com/luminapp/lumina/internal/store"
)

const maxCodeAttempts = 5

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type AuthHandler struct {
	userStore      *store.UserStore
	sessionStore   *store.SessionStore
	magicLinkStore *store.MagicLinkStore
	categoryStore  *store.CategoryStore
	mailer         *email.Client
	logger         *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	ss *store.SessionStore,
	mls *store.MagicLinkStore,
	cs *store.CategoryStore,
	mailer *email.Client,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userStore:      us,
		sessionStore:   ss,
		magicLinkStore: mls,
		categoryStore:  cs,
		mailer:         mailer,
		logger:         logger.With("component", "auth"),
	}
}

// Login sends a sign-in code to an existing account. Responds 200 either way
// so the endpoint does not reveal which emails are registered.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	addr := normalizeEmail(req.Email)
	if !emailPattern.MatchString(addr) {
		writeBadRequest(w, "invalid email")
		return
	}

	user, err := h.userStore.GetByEmail(addr)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "lookup user", err))
		return
	}
	if user != nil {
		h.sendCode(addr, "login")
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "code_sent"})
}

// Register sends a registration code to a new email address.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	addr := normalizeEmail(req.Email)
	if !emailPattern.MatchString(addr) {
		writeBadRequest(w, "invalid email")
		return
	}

	user, err := h.userStore.GetByEmail(addr)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "lookup user", err))
		return
	}
	if user != nil {
		// Existing account gets a login code instead.
		h.sendCode(addr, "login")
	} else {
		h.sendCode(addr, "register")
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "code_sent"})
}

// Verify exchanges a 6-digit code for a session. For registration codes the
// account is created, with a seeded category set, before the session.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
		Name  string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	addr := normalizeEmail(req.Email)

	ml, err := h.magicLinkStore.GetLatestByEmail(addr)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "lookup code", err))
		return
	}
	if ml == nil {
		writeError(w, apperr.New(apperr.Unauthenticated, "invalid or expired code"))
		return
	}

	if ml.Token != req.Code {
		attempts, err := h.magicLinkStore.IncrementAttempts(ml.ID)
		if err == nil && attempts >= maxCodeAttempts {
			h.magicLinkStore.MarkUsed(ml.ID)
		}
		writeError(w, apperr.New(apperr.Unauthenticated, "invalid or expired code"))
		return
	}

	if err := h.magicLinkStore.MarkUsed(ml.ID); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "mark code used", err))
		return
	}

	user, err := h.userStore.GetByEmail(addr)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "lookup user", err))
		return
	}
	if user == nil {
		if ml.Purpose != "register" {
			writeError(w, apperr.New(apperr.Unauthenticated, "account not found"))
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = addr[:strings.IndexByte(addr, '@')]
		}
		user, err = h.userStore.Create(addr, name)
		if err != nil {
			writeError(w, apperr.Wrap(apperr.Internal, "create user", err))
			return
		}
		if err := h.categoryStore.SeedDefaults(user.ID); err != nil {
			h.logger.Error("seed default categories", "user", user.ID, "error", err)
		}
	}

	sess, err := h.sessionStore.Create(user.ID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "create session", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token": sess.Token,
		"user":  user,
	})
}

// Logout deletes the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.Unauthenticated, "not signed in"))
		return
	}
	if err := h.sessionStore.Delete(ac.SessionID); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "delete session", err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil || user == nil {
		writeError(w, apperr.New(apperr.Unauthenticated, "account not found"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile updates name and photo for the authenticated user.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		PhotoURL string `json:"photo_url"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeBadRequest(w, "name is required")
		return
	}

	user, err := h.userStore.UpdateProfile(auth.UserID(r.Context()), strings.TrimSpace(req.Name), req.PhotoURL)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "update profile", err))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) sendCode(addr, purpose string) {
	ml, err := h.magicLinkStore.Create(addr, purpose)
	if err != nil {
		h.logger.Error("create sign-in code", "error", err)
		return
	}
	if err := h.mailer.SendAuthCode(addr, ml.Token, purpose); err != nil {
		h.logger.Warn("send sign-in code", "error", err)
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
