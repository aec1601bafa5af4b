package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"emperror.dev/errors"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pgillich/httpqueue/internal/middleware/client"
	"github.com/pgillich/httpqueue/internal/queue"
)

var _ queue.Transport = (*Transport)(nil)

// Transport sends queue requests by net/http.
// Outgoing requests are traced by otelhttp and logged.
type Transport struct {
	client *http.Client
}

// New creates a Transport on top of base (http.DefaultTransport, if nil).
// timeout 0 means no client-side timeout.
func New(base http.RoundTripper, timeout time.Duration, log logr.Logger) *Transport {
	return &Transport{
		client: &http.Client{
			Transport: otelhttp.NewTransport(client.NewTransport(base, 1, 1, log)),
			Timeout:   timeout,
		},
	}
}

func (t *Transport) Get(ctx context.Context, url string, header http.Header) (queue.Response, error) {
	return t.do(ctx, http.MethodGet, url, nil, header)
}

func (t *Transport) Post(ctx context.Context, url string, body []byte, header http.Header) (queue.Response, error) {
	return t.do(ctx, http.MethodPost, url, body, header)
}

func (t *Transport) Head(ctx context.Context, url string) (queue.Response, error) {
	return t.do(ctx, http.MethodHead, url, nil, nil)
}

func (t *Transport) do(ctx context.Context, method string, url string, body []byte, header http.Header) (queue.Response, error) {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "unable to create request", "method", method)
	}
	for name, values := range header {
		req.Header[name] = values
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "unable to send request", "method", method)
	}
	defer resp.Body.Close() //nolint:errcheck // not important
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "unable to read response", "method", method)
	}

	return queue.NewResponse(resp.StatusCode, resp.Header, respBody), nil
}
