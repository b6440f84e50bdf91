package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"signal-simulation-service/internal/platform/logging"
	"signal-simulation-service/internal/platform/obs"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestIDHeader = "X-Request-ID"
	tracerName      = "signal-simulation-service/api"
)

// statusWriter captures the final HTTP status code and number of bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Record implicit 200 responses when handlers write without calling WriteHeader.
func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// instrument attaches a request id and request-scoped logger, opens a server
// span continuing any inbound trace, records metrics, and logs one line per request.
func instrument(next http.Handler, base *slog.Logger, metrics *obs.Collector, routes map[string]struct{}) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		route := r.URL.Path
		if _, ok := routes[route]; !ok {
			route = "other"
		}

		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = logging.NewRequestID()
		}
		w.Header().Set(requestIDHeader, reqID)

		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := otel.Tracer(tracerName).Start(ctx, fmt.Sprintf("%s %s", r.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("request.id", reqID),
			),
		)
		defer span.End()

		log := base.With(slog.String("request_id", reqID))
		ctx = logging.ContextWithRequestID(ctx, reqID)
		ctx = logging.ContextWithLogger(ctx, log)

		sw := &statusWriter{
			ResponseWriter: w,
			status:         0,
		}

		next.ServeHTTP(sw, r.WithContext(ctx))

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		dur := time.Since(start)

		span.SetAttributes(attribute.Int("http.status_code", sw.status))
		if sw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.status))
		}
		metrics.ObserveHTTP(r.Method, route, sw.status, dur)

		log.LogAttrs(ctx, slog.LevelInfo, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.RequestURI()),
			slog.Int("status", sw.status),
			slog.Int("bytes", sw.bytes),
			slog.Int64("dur_ms", dur.Milliseconds()),
		)
	})
}
