package backup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/luminapp/lumina/internal/database"
	"github.com/luminapp/lumina/internal/model"
	"github.com/luminapp/lumina/internal/store"
)

type fakeS3 struct {
	objects map[string][]byte
	deleted []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data := f.objects[*input.Key]
	return &s3.GetObjectOutput{Body: io.NopCloser(newByteReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *input.Key)
	f.deleted = append(f.deleted, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func setupManager(t *testing.T) (*Manager, *fakeS3, *store.BackupStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bs := store.NewBackupStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(Config{
		S3:         S3Config{Bucket: "test-bucket", AccessKey: "ak", SecretKey: "sk", Region: "auto"},
		DBPath:     dbPath,
		Passphrase: "correct horse battery staple",
		Retention:  2,
	}, db, bs, logger)

	fake := newFakeS3()
	m.client = fake
	return m, fake, bs
}

func TestRunUploadsEncryptedSnapshot(t *testing.T) {
	m, fake, _ := setupManager(t)

	record, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if record.Status != model.BackupStatusOK {
		t.Errorf("status = %q, want ok", record.Status)
	}

	data, ok := fake.objects[record.ObjectKey]
	if !ok {
		t.Fatalf("object %q not uploaded", record.ObjectKey)
	}
	if int64(len(data)) != record.SizeBytes {
		t.Errorf("uploaded %d bytes, record says %d", len(data), record.SizeBytes)
	}
	// Encrypted output must not start with the SQLite magic header.
	if len(data) > 16 && string(data[:15]) == "SQLite format 3" {
		t.Error("uploaded object looks unencrypted")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	m, _, bs := setupManager(t)

	if _, err := m.Run(context.Background()); err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if _, err := m.Run(context.Background()); err != nil {
		t.Fatalf("run backup: %v", err)
	}

	recent, err := bs.ListRecent(10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recorded backups = %d, want 2", len(recent))
	}
}

func TestPruneKeepsRetention(t *testing.T) {
	m, fake, bs := setupManager(t)

	for i := 0; i < 4; i++ {
		if _, err := m.Run(context.Background()); err != nil {
			t.Fatalf("run backup %d: %v", i, err)
		}
	}

	if err := m.prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	recent, err := bs.ListRecent(10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("backups after prune = %d, want retention 2", len(recent))
	}
	if len(fake.deleted) != 2 {
		t.Errorf("deleted objects = %d, want 2", len(fake.deleted))
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	m, _, _ := setupManager(t)

	record, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "restored.db")
	if err := m.Restore(context.Background(), record, destPath); err != nil {
		t.Fatalf("restore: %v", err)
	}

	restored, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if len(restored) < 16 || string(restored[:15]) != "SQLite format 3" {
		t.Error("restored file is not a sqlite database")
	}
}

func TestEnabled(t *testing.T) {
	m := &Manager{cfg: Config{
		S3:         S3Config{Bucket: "b", AccessKey: "a", SecretKey: "s"},
		Passphrase: "p",
	}}
	if !m.Enabled() {
		t.Error("expected enabled with full config")
	}

	m.cfg.Passphrase = ""
	if m.Enabled() {
		t.Error("expected disabled without passphrase")
	}
}
