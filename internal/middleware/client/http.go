package client

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	metric_api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pgillich/httpqueue/internal/logger"
	"github.com/pgillich/httpqueue/internal/middleware"
)

const metricName = "http_client_requests"

// Transport implements the http.RoundTripper interface and wraps
// outbound HTTP(S) requests with logs.
type Transport struct {
	rt http.RoundTripper

	logger     logr.Logger
	beginLevel int
	endLevel   int
	requests   metric_api.Int64Counter
}

// NewTransport wraps the provided http.RoundTripper with one that
// logs request and response.
// beginLevel and endLevel are logr verbosity levels.
//
// If the provided http.RoundTripper is nil, http.DefaultTransport will be used
// as the base http.RoundTripper.
// The logger from the request context is used, if it has one.
func NewTransport(base http.RoundTripper, beginLevel int, endLevel int, log logr.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	middleware.GetMeter(log)
	requests, err := middleware.Int64CounterGetInstrument(metricName, metric_api.WithDescription("Outgoing HTTP requests"))
	if err != nil {
		log.Error(err, "unable to instantiate counter", "metricName", metricName)
		panic(err)
	}

	return &Transport{
		rt:         base,
		logger:     log,
		beginLevel: beginLevel,
		endLevel:   endLevel,
		requests:   requests,
	}
}

// RoundTrip logs outgoing request and response.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if _, err := logr.FromContext(ctx); err != nil {
		ctx = logr.NewContext(ctx, t.logger)
	}
	ctx, log := logger.FromContext(ctx,
		"outMethod", r.Method,
		"outUrl", r.URL.String(),
		"spanID", trace.SpanFromContext(ctx).SpanContext().SpanID().String(),
	)

	log.V(t.beginLevel).Info("OUT_REQ")
	beginTS := time.Now()

	res, err := t.rt.RoundTrip(r.WithContext(ctx))

	elapsedSec := time.Since(beginTS).Seconds()
	log = log.WithValues("outDuration", fmt.Sprintf("%.3f", elapsedSec))
	status := ""
	if res != nil {
		status = strconv.Itoa(res.StatusCode)
	}
	t.requests.Add(ctx, 1, metric_api.WithAttributes(
		attribute.String(middleware.MetrAttrMethod, r.Method),
		attribute.String(middleware.MetrAttrStatus, status),
		attribute.String(middleware.MetrAttrErr, middleware.FirstErr(err)),
	))
	if err != nil {
		log.Error(err, "OUT_RESP")
	} else {
		log.V(t.endLevel).Info("OUT_RESP",
			"outStatusCode", res.StatusCode,
			"outContentLength", res.ContentLength,
		)
	}

	return res, err //nolint:wrapcheck // should not be changed
}
