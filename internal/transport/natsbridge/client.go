package natsbridge

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"emperror.dev/errors"
	"github.com/go-logr/logr"
	"github.com/nats-io/nats.go"

	"github.com/pgillich/httpqueue/internal/queue"
	"github.com/pgillich/httpqueue/internal/transport/natsbridge/model"
)

var (
	ErrNoStatus = errors.NewPlain("no status in reply")
	ErrRemote   = errors.NewPlain("remote bridge error")
)

var _ model.MsgRequester = (*NatsReqRespClient)(nil)

// NatsReqRespClient sends a request message and waits for the reply
type NatsReqRespClient struct {
	url  string
	conn *nats.Conn
	log  logr.Logger
}

func NewNatsReqRespClient(natsURL string, log logr.Logger) (*NatsReqRespClient, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "unable to connect to NATS", "url", natsURL)
	}

	return &NatsReqRespClient{
		url:  natsURL,
		conn: conn,
		log:  log,
	}, nil
}

func (c *NatsReqRespClient) Request(ctx context.Context, req model.Request) (*model.Response, error) {
	log := c.log.WithValues("Queue", req.Queue, "Header", req.Header, "PayloadLen", len(req.Payload))

	respMsg, err := c.conn.RequestMsgWithContext(ctx, &nats.Msg{
		Subject: req.Queue,
		Header:  nats.Header(req.Header),
		Data:    req.Payload,
	})
	if err != nil {
		log.Error(err, "nats.Conn.Request")

		return nil, errors.WrapIfWithDetails(err, "nats request", "subject", req.Queue)
	}
	log.V(1).Info("nats.Conn.Request", "RespHeader", respMsg.Header)
	statusText := respMsg.Header.Get(NatsHeaderStatus)
	if statusText == "" {
		return nil, errors.WithDetails(ErrNoStatus, "subject", req.Queue)
	}
	status, err := strconv.Atoi(statusText)
	if err != nil {
		return nil, errors.WrapIfWithDetails(ErrNoStatus, "invalid status", "status", statusText)
	}
	respMsg.Header.Del(NatsHeaderStatus)
	errTxt := respMsg.Header.Get(NatsHeaderError)
	respMsg.Header.Del(NatsHeaderError)

	return &model.Response{
		Header:  respMsg.Header,
		Payload: respMsg.Data,
		Status:  status,
		Error:   errTxt,
	}, nil
}

func (c *NatsReqRespClient) Close() {
	if err := c.conn.Drain(); err != nil {
		c.log.Error(err, "nats.Conn.Drain")
	}
}

var _ queue.Transport = (*Transport)(nil)

// Transport carries queue HTTP requests over NATS request/reply.
// Method and URL are sent in headers, a Server on the other side
// serves them by an http.Handler.
// Timeout is applied, if ctx has no deadline.
type Transport struct {
	Client  model.MsgRequester
	Subject string
	Timeout time.Duration
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
	reqHeader := make(http.Header, len(header)+2)
	for name, values := range header {
		reqHeader[name] = values
	}
	reqHeader.Set(model.QueueHeaderMethod, method)
	reqHeader.Set(model.QueueHeaderURL, url)
	if _, has := ctx.Deadline(); !has && t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	resp, err := t.Client.Request(ctx, model.Request{Queue: t.Subject, Header: reqHeader, Payload: body})
	if err != nil {
		return nil, err //nolint:wrapcheck // already wrapped
	}
	if resp.Error != "" {
		return nil, errors.WithDetails(ErrRemote, "method", method, "url", url, "error", resp.Error)
	}

	return queue.NewResponse(resp.Status, resp.Header, resp.Payload), nil
}
