// Package transport selects the queue.Transport implementation by configuration.
package transport

import (
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/go-logr/logr"

	"github.com/pgillich/httpqueue/internal/queue"
	"github.com/pgillich/httpqueue/internal/transport/httpclient"
	"github.com/pgillich/httpqueue/internal/transport/natsbridge"
)

const (
	KindHTTP = "http"
	KindNATS = "nats"
)

var (
	ErrUnknownTransport = errors.NewPlain("unknown transport")
	ErrMissingNatsURL   = errors.NewPlain("missing NATS URL")
)

type Config struct {
	Kind        string
	Timeout     time.Duration
	NatsURL     string
	NatsSubject string
}

// New creates the configured transport. The returned func releases its resources.
// A transport, which cannot be used, is reported here, not at the first request.
func New(cfg Config, log logr.Logger) (queue.Transport, func(), error) {
	switch strings.ToLower(cfg.Kind) {
	case KindHTTP, "":
		return httpclient.New(nil, cfg.Timeout, log), func() {}, nil
	case KindNATS:
		if cfg.NatsURL == "" {
			return nil, nil, errors.WithDetails(ErrMissingNatsURL, "kind", cfg.Kind)
		}
		reqClient, err := natsbridge.NewNatsReqRespClient(cfg.NatsURL, log)
		if err != nil {
			return nil, nil, err //nolint:wrapcheck // already wrapped
		}

		return &natsbridge.Transport{
			Client:  reqClient,
			Subject: cfg.NatsSubject,
			Timeout: cfg.Timeout,
		}, reqClient.Close, nil
	default:
		return nil, nil, errors.WithDetails(ErrUnknownTransport, "kind", cfg.Kind)
	}
}
