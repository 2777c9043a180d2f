package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		endpoint    string
		wantErr     bool
	}{
		{"configured service", "taskping-api", "localhost:4318", false},
		{"empty service name still initializes", "", "localhost:4318", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.serviceName, tt.endpoint)
			if (err != nil) != tt.wantErr {
				t.Fatalf("InitTracer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tp == nil {
				return
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := Shutdown(shutdownCtx, tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestShutdown(t *testing.T) {
	t.Run("nil provider is a no-op", func(t *testing.T) {
		if err := Shutdown(context.Background(), nil); err != nil {
			t.Errorf("Shutdown(nil) error = %v", err)
		}
	})

	t.Run("live provider shuts down cleanly", func(t *testing.T) {
		tp, err := InitTracer(context.Background(), "taskping-api", "localhost:4318")
		if err != nil {
			t.Fatalf("InitTracer() error = %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := Shutdown(ctx, tp); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
}
