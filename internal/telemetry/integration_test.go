package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTraceContextPropagation verifies that incoming traceparent headers are
// honored by the router instrumentation and that spans reach the exporter.
func TestTraceContextPropagation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("taskping-api"))
	r.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	const upstreamTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	tests := []struct {
		name        string
		traceParent string
	}{
		{name: "new trace started locally"},
		{
			name:        "joins upstream trace",
			traceParent: "00-" + upstreamTraceID + "-00f067aa0ba902b7-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
			}
			if err := tp.ForceFlush(context.Background()); err != nil {
				t.Fatalf("ForceFlush() error = %v", err)
			}

			spans := exporter.GetSpans()
			if len(spans) == 0 {
				t.Fatal("expected at least one span")
			}
			got := spans[0].SpanContext.TraceID()
			if !got.IsValid() {
				t.Error("span has invalid trace ID")
			}
			if tt.traceParent != "" && got.String() != upstreamTraceID {
				t.Errorf("trace ID = %s, want upstream %s", got, upstreamTraceID)
			}
		})
	}
}
