package store

import (
	"testing"

	"github.com/luminapp/lumina/internal/database"
	"github.com/luminapp/lumina/internal/model"
)

func setupBackupTestDB(t *testing.T) *BackupStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBackupStore(db)
}

func TestBackupRecord(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, err := bs.Record("backups/lumina-2026-08-30-1.db.enc", 2048, model.BackupStatusOK, "")
	if err != nil {
		t.Fatalf("record backup: %v", err)
	}
	if b.SizeBytes != 2048 {
		t.Errorf("size = %d, want 2048", b.SizeBytes)
	}
	if b.Status != model.BackupStatusOK {
		t.Errorf("status = %q, want %q", b.Status, model.BackupStatusOK)
	}

	failed, err := bs.Record("", 0, model.BackupStatusFailed, "upload timed out")
	if err != nil {
		t.Fatalf("record failed backup: %v", err)
	}
	if failed.Error != "upload timed out" {
		t.Errorf("error = %q, want %q", failed.Error, "upload timed out")
	}
}

func TestBackupListRecent(t *testing.T) {
	bs := setupBackupTestDB(t)

	for i := 0; i < 5; i++ {
		if _, err := bs.Record("key", 100, model.BackupStatusOK, ""); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, err := bs.ListRecent(3)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(recent))
	}
	// Newest first.
	if recent[0].ID < recent[1].ID {
		t.Errorf("order = [%d, %d], want newest first", recent[0].ID, recent[1].ID)
	}
}

func TestBackupListSuccessfulBeyond(t *testing.T) {
	bs := setupBackupTestDB(t)

	var ids []int64
	for i := 0; i < 4; i++ {
		b, err := bs.Record("key", 100, model.BackupStatusOK, "")
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		ids = append(ids, b.ID)
	}
	// Failed runs never count toward the retention window.
	if _, err := bs.Record("", 0, model.BackupStatusFailed, "boom"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	prunable, err := bs.ListSuccessfulBeyond(2)
	if err != nil {
		t.Fatalf("list prunable: %v", err)
	}
	if len(prunable) != 2 {
		t.Fatalf("expected 2 prunable backups, got %d", len(prunable))
	}
	for _, b := range prunable {
		if b.ID != ids[0] && b.ID != ids[1] {
			t.Errorf("prunable id = %d, want one of the two oldest %v", b.ID, ids[:2])
		}
	}
}
