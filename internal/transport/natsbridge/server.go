package natsbridge

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"

	"emperror.dev/errors"
	"github.com/go-logr/logr"
	"github.com/nats-io/nats.go"

	"github.com/pgillich/httpqueue/internal/transport/natsbridge/model"
)

var _ model.MsgReceiver = (*MsgToHttp)(nil)

// MsgToHttp serves request messages by an http.Handler
type MsgToHttp struct {
	Handler    http.Handler
	PathPrefix string
}

func (h *MsgToHttp) Receive(ctx context.Context, req model.Request) (*model.Response, error) {
	header := http.Header(req.Header).Clone()
	if header == nil {
		header = http.Header{}
	}
	method := header.Get(model.QueueHeaderMethod)
	reqURL, err := url.Parse(header.Get(model.QueueHeaderURL))
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "invalid URL", "url", header.Get(model.QueueHeaderURL))
	}
	header.Del(model.QueueHeaderMethod)
	header.Del(model.QueueHeaderURL)
	path, err := url.JoinPath("/", h.PathPrefix, reqURL.Path)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "invalid path", "path", reqURL.Path)
	}
	reqURL.Path = path
	reqURL.RawPath = ""

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL.String(), io.NopCloser(bytes.NewReader(req.Payload)))
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "unable to create request", "method", method)
	}
	httpReq.Header = header
	httpReq.ContentLength = int64(len(req.Payload))

	respRec := httptest.NewRecorder()
	h.Handler.ServeHTTP(respRec, httpReq)

	hostname, _ := os.Hostname() //nolint:errcheck // informative only
	respRec.Header().Set(model.QueueHeaderServer, hostname)

	return &model.Response{
		Header:  respRec.Header(),
		Status:  respRec.Code,
		Payload: respRec.Body.Bytes(),
	}, nil
}

// NatsReqRespServer receives request messages on a subject pattern and replies
type NatsReqRespServer struct {
	url     string
	pattern string
	conn    *nats.Conn
	sub     *nats.Subscription
	log     logr.Logger
}

func NewNatsReqRespServer(natsURL string, pattern string, msgReceiver model.MsgReceiver, log logr.Logger) (*NatsReqRespServer, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "unable to connect to NATS", "url", natsURL)
	}

	sub, err := conn.Subscribe(pattern, func(msg *nats.Msg) {
		log := log.WithValues("Queue", msg.Subject, "Header", msg.Header, "PayloadLen", len(msg.Data))
		log.V(1).Info("nats.Conn.Subscribe")
		resp, err := msgReceiver.Receive(context.Background(), model.Request{
			Queue:   msg.Subject,
			Header:  msg.Header,
			Payload: msg.Data,
		})
		if resp == nil {
			resp = &model.Response{Header: nats.Header{}}
		}
		if resp.Header == nil {
			resp.Header = nats.Header{}
		}
		if err != nil {
			resp.Error = err.Error()
		}
		if resp.Status == 0 {
			resp.Status = http.StatusInternalServerError
		}
		header := nats.Header(resp.Header)
		header.Set(NatsHeaderStatus, strconv.Itoa(resp.Status))
		if resp.Error != "" {
			header.Set(NatsHeaderError, resp.Error)
		}
		log.V(1).Info("nats.Msg.RespondMsg", "RespHeader", header, "RespPayloadLen", len(resp.Payload))
		if err = msg.RespondMsg(&nats.Msg{Header: header, Data: resp.Payload}); err != nil {
			log.Error(err, "nats.Msg.RespondMsg")
		}
	})
	if err != nil {
		conn.Close()

		return nil, errors.WrapIfWithDetails(err, "unable to subscribe", "pattern", pattern)
	}
	if err = conn.Flush(); err != nil {
		conn.Close()

		return nil, errors.WrapIfWithDetails(err, "unable to flush subscription", "pattern", pattern)
	}

	return &NatsReqRespServer{
		url:     natsURL,
		pattern: pattern,
		conn:    conn,
		sub:     sub,
		log:     log,
	}, nil
}

func (s *NatsReqRespServer) Close() {
	if err := s.sub.Unsubscribe(); err != nil {
		s.log.Error(err, "nats.Subscription.Unsubscribe")
	}
	if err := s.conn.Drain(); err != nil {
		s.log.Error(err, "nats.Conn.Drain")
	}
}
