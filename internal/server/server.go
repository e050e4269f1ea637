// Package server wires stores, services, and handlers into the HTTP router.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/luminapp/lumina/internal/assistant"
	"github.com/luminapp/lumina/internal/billing"
	"github.com/luminapp/lumina/internal/couple"
	"github.com/luminapp/lumina/internal/email"
	"github.com/luminapp/lumina/internal/handler"
	"github.com/luminapp/lumina/internal/middleware"
	"github.com/luminapp/lumina/internal/push"
	"github.com/luminapp/lumina/internal/store"
	"github.com/luminapp/lumina/internal/voice"
	ws "github.com/luminapp/lumina/internal/websocket"
)

// Config carries the external service settings the server needs.
type Config struct {
	BaseURL          string
	SendGridAPIKey   string
	FromEmail        string
	GeminiAPIKey     string
	GeminiModel      string
	Stripe           billing.Config
	VAPIDPublicKey   string
	VAPIDPrivateKey  string
	VoiceTokenSecret string
}

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	authH        *handler.AuthHandler
	coupleH      *handler.CoupleHandler
	transactionH *handler.TransactionHandler
	categoryH    *handler.CategoryHandler
	goalH        *handler.GoalHandler
	investmentH  *handler.InvestmentHandler
	assistantH   *handler.AssistantHandler
	billingH     *handler.BillingHandler
	webhookH     *handler.WebhookHandler
	alexaH       *handler.AlexaHandler
	pushH        *handler.PushHandler
	voiceH       *handler.VoiceHandler

	sessionStore   *store.SessionStore
	userStore      *store.UserStore
	magicLinkStore *store.MagicLinkStore
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	coupleStore := store.NewCoupleStore(db)
	inviteStore := store.NewInviteStore(db)
	sessionStore := store.NewSessionStore(db)
	magicLinkStore := store.NewMagicLinkStore(db)
	categoryStore := store.NewCategoryStore(db)
	transactionStore := store.NewTransactionStore(db)
	goalStore := store.NewGoalStore(db)
	investmentStore := store.NewInvestmentStore(db)
	subscriptionStore := store.NewSubscriptionStore(db)
	pushStore := store.NewPushStore(db)
	voiceStore := store.NewVoiceLinkStore(db)

	mailer := email.NewClient(cfg.SendGridAPIKey, cfg.FromEmail, cfg.BaseURL)
	assistantOpts := []assistant.Option{}
	if cfg.GeminiModel != "" {
		assistantOpts = append(assistantOpts, assistant.WithModel(cfg.GeminiModel))
	}
	assistantClient := assistant.NewClient(cfg.GeminiAPIKey, assistantOpts...)
	stripeClient := billing.NewClient(cfg.Stripe)
	pusher := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	tokenIssuer := voice.NewTokenIssuer(cfg.VoiceTokenSecret)

	coupleSvc := couple.NewService(db, mailer, logger)

	return &Server{
		db:  db,
		hub: hub,

		authH:        handler.NewAuthHandler(userStore, sessionStore, magicLinkStore, categoryStore, mailer, logger),
		coupleH:      handler.NewCoupleHandler(coupleSvc, userStore, inviteStore, coupleStore, pushStore, pusher, hub, logger),
		transactionH: handler.NewTransactionHandler(transactionStore, coupleStore, hub),
		categoryH:    handler.NewCategoryHandler(categoryStore),
		goalH:        handler.NewGoalHandler(goalStore, hub),
		investmentH:  handler.NewInvestmentHandler(investmentStore),
		assistantH:   handler.NewAssistantHandler(assistantClient, transactionStore, categoryStore, coupleStore),
		billingH:     handler.NewBillingHandler(stripeClient, userStore, subscriptionStore, cfg.BaseURL),
		webhookH:     handler.NewWebhookHandler(stripeClient, userStore, subscriptionStore, logger),
		alexaH:       handler.NewAlexaHandler(tokenIssuer, transactionStore, coupleStore, logger),
		pushH:        handler.NewPushHandler(pushStore, pusher),
		voiceH:       handler.NewVoiceHandler(voiceStore, tokenIssuer),

		sessionStore:   sessionStore,
		userStore:      userStore,
		magicLinkStore: magicLinkStore,
		rateLimiter:    middleware.NewRateLimiter(),
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// MagicLinkStore returns the magic link store for cleanup tasks.
func (s *Server) MagicLinkStore() *store.MagicLinkStore {
	return s.magicLinkStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /auth/verify", s.rateLimitedHandler(s.authH.Verify))
	outerMux.HandleFunc("POST /webhooks/stripe", s.webhookH.HandleStripeWebhook)
	outerMux.HandleFunc("POST /webhooks/alexa", s.alexaH.HandleAlexaWebhook)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes behind session auth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("PUT /api/me", s.authH.UpdateProfile)

	// Couple linking
	mux.HandleFunc("POST /api/couple/invites", s.coupleH.SendInvite)
	mux.HandleFunc("GET /api/couple/invites", s.coupleH.ListInvites)
	mux.HandleFunc("POST /api/couple/invites/{id}/accept", s.coupleH.AcceptInvite)
	mux.HandleFunc("POST /api/couple/invites/{id}/reject", s.coupleH.RejectInvite)
	mux.HandleFunc("GET /api/couple", s.coupleH.Get)
	mux.HandleFunc("DELETE /api/couple", s.coupleH.Disconnect)

	// Transactions
	mux.HandleFunc("POST /api/transactions", s.transactionH.Create)
	mux.HandleFunc("GET /api/transactions", s.transactionH.List)
	mux.HandleFunc("GET /api/transactions/summary", s.transactionH.Summary)
	mux.HandleFunc("GET /api/transactions/{id}", s.transactionH.Get)
	mux.HandleFunc("PUT /api/transactions/{id}", s.transactionH.Update)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.transactionH.Delete)

	// Categories
	mux.HandleFunc("GET /api/categories", s.categoryH.List)
	mux.HandleFunc("POST /api/categories", s.categoryH.Create)
	mux.HandleFunc("PUT /api/categories/{id}", s.categoryH.Update)
	mux.HandleFunc("DELETE /api/categories/{id}", s.categoryH.Delete)

	// Goals
	mux.HandleFunc("GET /api/goals", s.goalH.List)
	mux.HandleFunc("POST /api/goals", s.goalH.Create)
	mux.HandleFunc("PUT /api/goals/{id}", s.goalH.Update)
	mux.HandleFunc("DELETE /api/goals/{id}", s.goalH.Delete)
	mux.HandleFunc("POST /api/goals/{id}/contribute", s.goalH.Contribute)
	mux.HandleFunc("POST /api/goals/{id}/share", s.goalH.Share)

	// Investments
	mux.HandleFunc("GET /api/investments", s.investmentH.List)
	mux.HandleFunc("POST /api/investments", s.investmentH.Create)
	mux.HandleFunc("PUT /api/investments/{id}", s.investmentH.Update)
	mux.HandleFunc("DELETE /api/investments/{id}", s.investmentH.Delete)

	// Assistant
	mux.HandleFunc("POST /api/assistant/chat", s.assistantH.Chat)
	mux.HandleFunc("POST /api/assistant/categorize", s.assistantH.Categorize)

	// Billing
	mux.HandleFunc("POST /api/billing/checkout", s.billingH.Checkout)
	mux.HandleFunc("POST /api/billing/portal", s.billingH.Portal)
	mux.HandleFunc("GET /api/billing/subscription", s.billingH.Subscription)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscriptions", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)
	mux.HandleFunc("DELETE /api/push/subscriptions", s.pushH.Unsubscribe)

	// Voice linking
	mux.HandleFunc("POST /api/voice/link", s.voiceH.SetPIN)
	mux.HandleFunc("POST /api/voice/token", s.voiceH.Token)
	mux.HandleFunc("DELETE /api/voice/link", s.voiceH.Unlink)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger))
}
