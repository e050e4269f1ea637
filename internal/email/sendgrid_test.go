package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendAuthCode(t *testing.T) {
	var received sgMail
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient("test-key", "noreply@example.com", "https://lumina.test", WithAPIURL(server.URL))

	if err := client.SendAuthCode("alice@example.com", "482913", "login"); err != nil {
		t.Fatalf("send auth code: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
	if len(received.Personalizations) != 1 || received.Personalizations[0].To[0].Email != "alice@example.com" {
		t.Errorf("recipient = %+v, want alice@example.com", received.Personalizations)
	}
	if received.From.Email != "noreply@example.com" {
		t.Errorf("from = %q, want %q", received.From.Email, "noreply@example.com")
	}
	if received.Subject != "Sign in to Lumina" {
		t.Errorf("subject = %q, want %q", received.Subject, "Sign in to Lumina")
	}
	if len(received.Content) != 2 || !strings.Contains(received.Content[0].Value, "482913") {
		t.Errorf("content does not carry the code: %+v", received.Content)
	}
}

func TestSendCoupleInvite(t *testing.T) {
	var received sgMail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient("test-key", "noreply@example.com", "https://lumina.test", WithAPIURL(server.URL))

	if err := client.SendCoupleInvite("bob@example.com", "Alice", "tok-123"); err != nil {
		t.Fatalf("send couple invite: %v", err)
	}

	if received.Subject != "Alice invited you to Lumina" {
		t.Errorf("subject = %q, want invite subject", received.Subject)
	}
	if !strings.Contains(received.Content[0].Value, "https://lumina.test/invite?token=tok-123") {
		t.Errorf("text body missing invite link: %q", received.Content[0].Value)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://lumina.test")

	if err := client.SendAuthCode("alice@example.com", "123456", "login"); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad-key", "noreply@example.com", "https://lumina.test", WithAPIURL(server.URL))

	if err := client.SendAuthCode("alice@example.com", "123456", "login"); err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("key", "from@test.com", "https://test.com").Configured() {
		t.Error("expected Configured() = true")
	}
	if NewClient("", "from@test.com", "https://test.com").Configured() {
		t.Error("expected Configured() = false")
	}
}
