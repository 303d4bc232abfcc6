package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPublishDeliversEventWithBearerToken(t *testing.T) {
	t.Parallel()

	var (
		gotAuth        string
		gotContentType string
		gotBody        []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := client.Publish(context.Background(), "lead.created", map[string]string{"email": "ana@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type: %q", gotContentType)
	}

	var envelope struct {
		Event   string            `json:"event"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(gotBody, &envelope); err != nil {
		t.Fatalf("invalid request body: %v", err)
	}
	if envelope.Event != "lead.created" {
		t.Fatalf("unexpected event: %q", envelope.Event)
	}
	if envelope.Payload["email"] != "ana@example.com" {
		t.Fatalf("unexpected payload: %v", envelope.Payload)
	}
}

func TestPublishReportsNon2xxWithBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream unavailable")
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = client.Publish(context.Background(), "lead.created", nil)
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if !strings.Contains(err.Error(), "status=502") || !strings.Contains(err.Error(), "upstream unavailable") {
		t.Fatalf("error lacks status and body: %v", err)
	}
}

func TestDisabledClientIsNoOp(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("client without URL must be disabled")
	}
	if err := client.Publish(context.Background(), "lead.created", nil); err != nil {
		t.Fatalf("disabled publish must be a no-op, got %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client must report disabled")
	}
}

func TestNewClientRejectsMalformedURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "://not-a-url"}); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}
