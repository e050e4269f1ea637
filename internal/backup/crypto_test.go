package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return path
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("SQLite format 3\x00 pretend database contents")
	srcPath := writeTestFile(t, "plain.db", plaintext)
	encPath := filepath.Join(t.TempDir(), "enc.db")
	decPath := filepath.Join(t.TempDir(), "dec.db")

	if err := encryptFile(srcPath, encPath, "hunter2"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	encrypted, err := os.ReadFile(encPath)
	if err != nil {
		t.Fatalf("read encrypted: %v", err)
	}
	if len(encrypted) <= saltLen+nonceLen {
		t.Fatalf("encrypted size = %d, want > header size %d", len(encrypted), saltLen+nonceLen)
	}
	if bytes.Contains(encrypted, []byte("pretend database")) {
		t.Fatal("ciphertext contains plaintext")
	}

	if err := decryptFile(encPath, decPath, "hunter2"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	decrypted, err := os.ReadFile(decPath)
	if err != nil {
		t.Fatalf("read decrypted: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("decrypted = %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptFreshSaltPerFile(t *testing.T) {
	srcPath := writeTestFile(t, "plain.db", []byte("same contents"))
	encA := filepath.Join(t.TempDir(), "a.enc")
	encB := filepath.Join(t.TempDir(), "b.enc")

	if err := encryptFile(srcPath, encA, "pw"); err != nil {
		t.Fatalf("encrypt a: %v", err)
	}
	if err := encryptFile(srcPath, encB, "pw"); err != nil {
		t.Fatalf("encrypt b: %v", err)
	}

	a, err := os.ReadFile(encA)
	if err != nil {
		t.Fatalf("read a: %v", err)
	}
	b, err := os.ReadFile(encB)
	if err != nil {
		t.Fatalf("read b: %v", err)
	}
	if bytes.Equal(a[:saltLen], b[:saltLen]) {
		t.Error("two encryptions reused the same salt")
	}
	if bytes.Equal(a, b) {
		t.Error("two encryptions produced identical output")
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	srcPath := writeTestFile(t, "plain.db", []byte("secret"))
	encPath := filepath.Join(t.TempDir(), "enc.db")
	decPath := filepath.Join(t.TempDir(), "dec.db")

	if err := encryptFile(srcPath, encPath, "correct-password"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if err := decryptFile(encPath, decPath, "wrong-password"); err == nil {
		t.Fatal("expected decrypt error with wrong passphrase")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	srcPath := writeTestFile(t, "plain.db", []byte("secret"))
	encPath := filepath.Join(t.TempDir(), "enc.db")
	decPath := filepath.Join(t.TempDir(), "dec.db")

	if err := encryptFile(srcPath, encPath, "password"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	data, err := os.ReadFile(encPath)
	if err != nil {
		t.Fatalf("read encrypted: %v", err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(encPath, data, 0600); err != nil {
		t.Fatalf("write tampered: %v", err)
	}

	if err := decryptFile(encPath, decPath, "password"); err == nil {
		t.Fatal("expected decrypt error for tampered ciphertext")
	}
}

func TestDecryptTruncatedFile(t *testing.T) {
	encPath := writeTestFile(t, "short.enc", []byte("too short"))
	decPath := filepath.Join(t.TempDir(), "dec.db")

	if err := decryptFile(encPath, decPath, "password"); err == nil {
		t.Fatal("expected error for truncated file")
	}
}
