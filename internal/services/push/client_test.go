package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskping/taskping/internal/queue"
)

func TestClient_Send(t *testing.T) {
	t.Parallel()

	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", nil)
	msg := &Message{
		Token: "device-token-1",
		Title: "🔴 Pay rent",
		Body:  "Due: 2025-01-31",
		Tag:   "task-1",
		Actions: []queue.ActionButton{
			{ID: "complete", Label: "✅ Done"},
		},
		Data: map[string]string{"taskId": "task-1"},
	}
	if err := c.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Token != msg.Token || got.Title != msg.Title || got.Tag != msg.Tag {
		t.Errorf("delivered payload = %+v", got)
	}
	if len(got.Actions) != 1 {
		t.Errorf("actions = %v", got.Actions)
	}
}

func TestClient_SendTokenGone(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		c := NewClient(srv.URL, "", nil)
		err := c.Send(context.Background(), &Message{Token: "dead-token"})
		if !errors.Is(err, ErrTokenGone) {
			t.Errorf("status %d: err = %v, want ErrTokenGone", status, err)
		}
		srv.Close()
	}
}

func TestClient_SendServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	err := c.Send(context.Background(), &Message{Token: "token"})
	if err == nil {
		t.Fatal("expected error for 502")
	}
	if errors.Is(err, ErrTokenGone) {
		t.Error("502 must not be treated as token gone")
	}
}
