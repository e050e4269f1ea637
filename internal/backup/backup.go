// Package backup produces encrypted database snapshots and ships them to
// S3-compatible storage. Snapshots are taken with VACUUM INTO, encrypted with
// a passphrase-derived AES-256-GCM key, and pruned by retention count.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/multierr"

	"github.com/luminapp/lumina/internal/model"
	"github.com/luminapp/lumina/internal/store"
)

const backupInterval = 24 * time.Hour

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration.
type Config struct {
	S3         S3Config
	DBPath     string
	Passphrase string
	Retention  int // successful backups to keep
}

// Manager runs scheduled encrypted backups.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	db     *sql.DB
	store  *store.BackupStore
	client s3Client
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		db:     db,
		store:  bs,
		logger: logger.With("component", "backup"),
	}
	if m.Enabled() {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled returns true when storage credentials and a passphrase are set.
func (m *Manager) Enabled() bool {
	return m.cfg.S3.Bucket != "" && m.cfg.S3.AccessKey != "" &&
		m.cfg.S3.SecretKey != "" && m.cfg.Passphrase != ""
}

// Start begins the daily backup loop. No-op when not configured.
func (m *Manager) Start(ctx context.Context) {
	if !m.Enabled() {
		m.logger.Info("backups disabled: storage or passphrase not configured")
		return
	}

	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(backupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Run(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
				if err := m.prune(ctx); err != nil {
					m.logger.Error("backup prune failed", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the backup loop and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Run takes one backup now and records the outcome. Returns the backup record.
func (m *Manager) Run(ctx context.Context) (*model.Backup, error) {
	if m.client == nil {
		return nil, fmt.Errorf("backup not configured")
	}

	now := time.Now().UTC()
	objectKey := fmt.Sprintf("backups/lumina-%s-%d.db.enc", now.Format("2006-01-02"), now.UnixNano())

	size, err := m.snapshotAndUpload(ctx, objectKey)
	if err != nil {
		if _, recErr := m.store.Record(objectKey, 0, model.BackupStatusFailed, err.Error()); recErr != nil {
			m.logger.Error("record failed backup", "error", recErr)
		}
		return nil, err
	}

	record, err := m.store.Record(objectKey, size, model.BackupStatusOK, "")
	if err != nil {
		return nil, fmt.Errorf("record backup: %w", err)
	}
	m.logger.Info("backup complete", "key", objectKey, "bytes", size)
	return record, nil
}

func (m *Manager) snapshotAndUpload(ctx context.Context, objectKey string) (int64, error) {
	tmpDir := os.TempDir()
	snapshot := filepath.Join(tmpDir, fmt.Sprintf("lumina-snapshot-%d.db", time.Now().UnixNano()))
	encFile := snapshot + ".enc"
	defer os.Remove(snapshot)
	defer os.Remove(encFile)

	// VACUUM INTO writes a consistent copy without blocking writers.
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return 0, fmt.Errorf("snapshot database: %w", err)
	}

	if err := encryptFile(snapshot, encFile, m.cfg.Passphrase); err != nil {
		return 0, fmt.Errorf("encrypt snapshot: %w", err)
	}

	f, err := os.Open(encFile)
	if err != nil {
		return 0, fmt.Errorf("open encrypted snapshot: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat encrypted snapshot: %w", err)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(objectKey),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
	})
	if err != nil {
		return 0, fmt.Errorf("upload backup: %w", err)
	}
	return stat.Size(), nil
}

// Download streams an encrypted backup object.
func (m *Manager) Download(ctx context.Context, backup *model.Backup) (io.ReadCloser, error) {
	if m.client == nil {
		return nil, fmt.Errorf("backup not configured")
	}
	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(backup.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("download backup: %w", err)
	}
	return result.Body, nil
}

// Restore downloads and decrypts a backup into destPath. The server keeps
// running; swapping the live database file is up to the operator.
func (m *Manager) Restore(ctx context.Context, backup *model.Backup, destPath string) error {
	body, err := m.Download(ctx, backup)
	if err != nil {
		return err
	}
	defer body.Close()

	encFile := filepath.Join(os.TempDir(), fmt.Sprintf("lumina-restore-%d.db.enc", time.Now().UnixNano()))
	defer os.Remove(encFile)

	f, err := os.OpenFile(encFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create restore file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("download backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close restore file: %w", err)
	}

	return decryptFile(encFile, destPath, m.cfg.Passphrase)
}

// prune deletes successful backups beyond the retention count. Partial
// failures are collected so one bad object does not stop the sweep.
func (m *Manager) prune(ctx context.Context) error {
	retention := m.cfg.Retention
	if retention <= 0 {
		retention = 14
	}

	old, err := m.store.ListSuccessfulBeyond(retention)
	if err != nil {
		return err
	}

	var errs error
	for _, b := range old {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(b.ObjectKey),
		}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete object %s: %w", b.ObjectKey, err))
			continue
		}
		if err := m.store.Delete(b.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete record %d: %w", b.ID, err))
		}
	}
	return errs
}
