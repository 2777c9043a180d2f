package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/notify"
)

func TestFeedStream_DeliversOwnAlertsOnly(t *testing.T) {
	t.Parallel()

	toasts := notify.NewToastChannel()
	handler := NewFeedHandler(toasts, zap.NewNop())

	user := testUser()
	mine := notify.Alert{Kind: notify.KindDue, UserID: user.ID, Title: "🔴 Pay rent", Tag: "t1"}
	theirs := notify.Alert{Kind: notify.KindDue, UserID: testUser().ID, Title: "Someone else's task", Tag: "t2"}

	req := authedRequest("GET", "/notifications/feed", nil, user)
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "text/event-stream")
	w := httptest.NewRecorder()

	// Stream subscribes after it starts, so deliver repeatedly until the
	// subscription is live, then close the connection.
	go func() {
		for i := 0; i < 40; i++ {
			_ = toasts.Deliver(context.Background(), mine)
			_ = toasts.Deliver(context.Background(), theirs)
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
	}()

	handler.Stream(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "🔴 Pay rent") {
		t.Errorf("feed missing own alert: %q", body)
	}
	if strings.Contains(body, "Someone else's task") {
		t.Errorf("feed leaked another user's alert: %q", body)
	}
	if !strings.Contains(body, "event: alert") {
		t.Errorf("feed missing event framing: %q", body)
	}
}

func TestFeedStream_Unauthenticated(t *testing.T) {
	t.Parallel()

	handler := NewFeedHandler(notify.NewToastChannel(), zap.NewNop())
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/notifications/feed", nil)

	handler.Stream(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
