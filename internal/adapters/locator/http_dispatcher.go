package locator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"signal-simulation-service/internal/domain"
	"signal-simulation-service/internal/platform/obs"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "signal-simulation-service/locator"

// HTTPDispatcher POSTs SignalBundles to the locator service.
// One call is one request; there are no retries. Safe for concurrent use.
type HTTPDispatcher struct {
	session *http.Client
	url     string
}

func NewHTTPDispatcher(locatorURL string, timeout time.Duration) (*HTTPDispatcher, error) {
	u, err := url.Parse(locatorURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("new locator dispatcher: invalid url %q", locatorURL)
	}
	if timeout <= 0 {
		return nil, errors.New("new locator dispatcher: timeout must be > 0")
	}

	return &HTTPDispatcher{
		session: &http.Client{Timeout: timeout},
		url:     locatorURL,
	}, nil
}

func (d *HTTPDispatcher) URL() string { return d.url }

// Dispatch sends one bundle. Any transport failure or non-2xx answer is
// returned as *domain.LocatorDispatchError.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, bundle domain.SignalBundle) (err error) {
	defer obs.Time(ctx, "locator.Dispatch")(&err)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "locator.dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("locator.url", d.url),
			attribute.Int64("signal.timestamp", bundle.SignalTimestamp),
			attribute.Int("bundle.towers", len(bundle.Towers)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(bundle)
	if err != nil {
		return &domain.LocatorDispatchError{URL: d.url, Err: fmt.Errorf("encode bundle: %w", err)}
	}

	req, err := d.newRequest(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return &domain.LocatorDispatchError{URL: d.url, Err: err}
	}

	resp, err := d.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return nil
}

func (d *HTTPDispatcher) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return req, nil
}

func (d *HTTPDispatcher) do(req *http.Request) (*http.Response, error) {
	resp, err := d.session.Do(req)
	if err != nil {
		return nil, &domain.LocatorDispatchError{URL: d.url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &domain.LocatorDispatchError{
			URL:        d.url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}
