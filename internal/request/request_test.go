package request

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/taskping/taskping/internal/models"
	"github.com/google/uuid"
)

func TestClientIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "", "1.2.3.4"},
		{"forwarded for chain keeps first hop", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8 "}, "", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "", "9.9.9.9"},
		{"forwarded for wins over real ip", map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "9.9.9.9"}, "", "1.2.3.4"},
		{"remote addr strips port", nil, "10.0.0.1:12345", "10.0.0.1"},
		{"remote addr without port", nil, "10.0.0.1", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserFromContext(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		u := &models.User{ID: uuid.New(), Email: "someone@example.com"}
		r := httptest.NewRequest("GET", "/", nil).WithContext(WithUser(context.Background(), u))
		if got := UserFromContext(r); got != u {
			t.Errorf("UserFromContext() = %v, want same user", got)
		}
	})

	t.Run("unauthenticated request", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("GET", "/", nil)
		if got := UserFromContext(r); got != nil {
			t.Errorf("UserFromContext() = %+v, want nil", got)
		}
	})

	t.Run("wrong value type", func(t *testing.T) {
		t.Parallel()
		ctx := context.WithValue(context.Background(), UserContextKey(), "not a user")
		r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
		if got := UserFromContext(r); got != nil {
			t.Errorf("UserFromContext() = %+v, want nil when wrong type", got)
		}
	})
}
