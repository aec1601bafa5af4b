package queue

import (
	"context"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pgillich/httpqueue/internal/middleware"
	"github.com/pgillich/httpqueue/internal/middleware/inner"
	"github.com/pgillich/httpqueue/internal/tracing"
)

const (
	OpPoll  = "poll"
	OpPut   = "put"
	OpStats = "stats"

	tracerName = "github.com/pgillich/httpqueue/internal/queue"
	metricName = "queue_client_requests"
)

// Stats is the queue statistics, read by HEAD
type Stats struct {
	Size  int64 `json:"size" yaml:"size"`
	Bytes int64 `json:"bytes" yaml:"bytes"`
}

// Client talks to one queue endpoint through a Transport.
// It keeps no state between calls, so it can be used concurrently.
type Client struct {
	endpoint      string
	transport     Transport
	transportName string
	log           logr.Logger
	tracer        trace.Tracer
	chains        map[string]inner.InternalMiddleware
}

type ClientOption func(*Client)

func WithLogger(log logr.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithTracer sets the tracer of operation spans, default is the global tracer provider
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// WithTransportName sets the transport metric attribute
func WithTransportName(name string) ClientOption {
	return func(c *Client) {
		c.transportName = name
	}
}

func NewClient(endpoint string, transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:      endpoint,
		transport:     transport,
		transportName: "custom",
		log:           logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.GetTracerProvider().Tracer(tracerName, trace.WithInstrumentationVersion(tracing.SemVersion()))
	}

	ctx := logr.NewContext(context.Background(), c.log)
	c.chains = make(map[string]inner.InternalMiddleware, 3)
	for _, op := range []string{OpPoll, OpPut, OpStats} {
		c.chains[op] = inner.InternalMiddlewareChain(
			inner.TryCatch(),
			inner.Logger(map[string]string{"op": op, "endpoint": endpoint}, 1, 1),
			inner.Span(c.tracer, "OUT QUEUE "+op,
				attribute.String(middleware.MetrAttrOperation, op),
				attribute.String(middleware.MetrAttrTransport, c.transportName),
			),
			inner.Metrics(ctx, metricName, "Queue client requests",
				map[string]string{
					middleware.MetrAttrOperation: op,
					middleware.MetrAttrTransport: c.transportName,
				},
				middleware.FirstErr,
			),
		)
	}

	return c
}

// Endpoint returns the base URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Poll fetches one message by GET endpoint+path.
// A non-200 response is not an error, the message is returned with Valid=false.
func (c *Client) Poll(ctx context.Context, path string) (*Message, error) {
	url := c.endpoint + path
	retVal, err := c.run(ctx, OpPoll, func(ctx context.Context) (interface{}, error) {
		resp, err := c.transport.Get(ctx, url, nil)
		if err != nil {
			return nil, errors.WrapIfWithDetails(err, "poll", "url", url)
		}

		return DecodeResponse(resp), nil
	})
	if err != nil {
		return nil, err
	}
	m, is := retVal.(*Message)
	if !is {
		return nil, errors.WithDetails(inner.ErrTypeCast, "type", "*Message")
	}

	return m, nil
}

// Get is an alias of Poll
func (c *Client) Get(ctx context.Context, path string) (*Message, error) {
	return c.Poll(ctx, path)
}

// Put submits the message by POST endpoint+path. The raw response is returned.
func (c *Client) Put(ctx context.Context, m *Message, path string) (Response, error) {
	url := c.endpoint + path
	retVal, err := c.run(ctx, OpPut, func(ctx context.Context) (interface{}, error) {
		resp, err := c.transport.Post(ctx, url, m.Payload, EncodeHeaders(m))
		if err != nil {
			return nil, errors.WrapIfWithDetails(err, "put", "url", url)
		}

		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	resp, is := retVal.(Response)
	if !is {
		return nil, errors.WithDetails(inner.ErrTypeCast, "type", "Response")
	}

	return resp, nil
}

// Post is an alias of Put
func (c *Client) Post(ctx context.Context, m *Message, path string) (Response, error) {
	return c.Put(ctx, m, path)
}

// Size returns QUEUE_SIZE of HEAD endpoint, 0 if missing or not a number
func (c *Client) Size(ctx context.Context) (int64, error) {
	stats, err := c.Stats(ctx)

	return stats.Size, err
}

// Bytes returns QUEUE_BYTES of HEAD endpoint, 0 if missing or not a number
func (c *Client) Bytes(ctx context.Context) (int64, error) {
	stats, err := c.Stats(ctx)

	return stats.Bytes, err
}

// Stats reads both QUEUE_SIZE and QUEUE_BYTES by one HEAD request
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	retVal, err := c.run(ctx, OpStats, func(ctx context.Context) (interface{}, error) {
		resp, err := c.transport.Head(ctx, c.endpoint)
		if err != nil {
			return nil, errors.WrapIfWithDetails(err, "stats", "url", c.endpoint)
		}

		return Stats{
			Size:  headerInt(resp, HeaderQueueSize),
			Bytes: headerInt(resp, HeaderQueueBytes),
		}, nil
	})
	if err != nil {
		return Stats{}, err
	}
	stats, is := retVal.(Stats)
	if !is {
		return Stats{}, errors.WithDetails(inner.ErrTypeCast, "type", "Stats")
	}

	return stats, nil
}

func (c *Client) run(ctx context.Context, op string, fn inner.InternalMiddlewareFn) (interface{}, error) {
	if _, err := logr.FromContext(ctx); err != nil {
		ctx = logr.NewContext(ctx, c.log)
	}

	return c.chains[op](fn)(ctx)
}

func headerInt(resp Response, name string) int64 {
	value, has := resp.Header(name)
	if !has {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}

	return n
}
