package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luminapp/lumina/internal/backup"
	"github.com/luminapp/lumina/internal/billing"
	"github.com/luminapp/lumina/internal/config"
	"github.com/luminapp/lumina/internal/database"
	"github.com/luminapp/lumina/internal/logging"
	"github.com/luminapp/lumina/internal/server"
	"github.com/luminapp/lumina/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, server.Config{
		BaseURL:        cfg.BaseURL,
		SendGridAPIKey: cfg.SendGridAPIKey,
		FromEmail:      cfg.FromEmail,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiModel:    cfg.GeminiModel,
		Stripe: billing.Config{
			SecretKey:            cfg.StripeSecretKey,
			WebhookSecret:        cfg.StripeWebhookSecret,
			PremiumPriceID:       cfg.PremiumPriceID,
			PremiumAnnualPriceID: cfg.PremiumAnnualPriceID,
			SuccessURL:           cfg.BaseURL + "/settings?upgraded=1",
			CancelURL:            cfg.BaseURL + "/settings",
		},
		VAPIDPublicKey:   cfg.VAPIDPublicKey,
		VAPIDPrivateKey:  cfg.VAPIDPrivateKey,
		VoiceTokenSecret: cfg.VoiceTokenSecret,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.BackupS3Endpoint,
			Bucket:    cfg.BackupS3Bucket,
			Region:    cfg.BackupS3Region,
			AccessKey: cfg.BackupS3AccessKey,
			SecretKey: cfg.BackupS3SecretKey,
		},
		DBPath:     cfg.DBPath,
		Passphrase: cfg.BackupPassphrase,
		Retention:  cfg.BackupRetention,
	}, db, store.NewBackupStore(db), logger)
	backupMgr.Start(ctx)
	defer backupMgr.Stop()

	go cleanupLoop(ctx, srv, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("lumina listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// cleanupLoop expires old sessions, login codes, and rate limit buckets.
func cleanupLoop(ctx context.Context, srv *server.Server, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := srv.SessionStore().DeleteExpired(); err != nil {
				logger.Error("delete expired sessions", "error", err)
			}
			if _, err := srv.MagicLinkStore().DeleteExpired(); err != nil {
				logger.Error("delete expired login codes", "error", err)
			}
			srv.RateLimiter().Cleanup()
		}
	}
}
