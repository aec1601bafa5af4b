package test

import (
	"net/http/httptest"

	"github.com/go-logr/logr"
	nats_server "github.com/nats-io/nats-server/v2/server"

	"github.com/pgillich/httpqueue/internal/queuetest"
	"github.com/pgillich/httpqueue/internal/transport/natsbridge"
)

// TestQueueServer is an in-memory queue, reachable over HTTP and
// over an embedded NATS server.
type TestQueueServer struct {
	Queue      *queuetest.Server
	HTTPServer *httptest.Server
	NatsServer *nats_server.Server
	bridge     *natsbridge.NatsReqRespServer
}

func RunTestQueueServer(natsSubject string, log logr.Logger) (*TestQueueServer, error) {
	server := &TestQueueServer{
		Queue: queuetest.NewServer(log),
	}
	server.HTTPServer = httptest.NewServer(server.Queue)

	opts := natsbridge.NatsTestOptions()
	server.NatsServer = natsbridge.NatsRunServerCallback(&opts, nil)
	bridge, err := natsbridge.NewNatsReqRespServer(server.NatsServer.ClientURL(), natsSubject,
		&natsbridge.MsgToHttp{Handler: server.Queue}, log)
	if err != nil {
		server.Close()

		return nil, err //nolint:wrapcheck // test
	}
	server.bridge = bridge

	return server, nil
}

func (s *TestQueueServer) NatsURL() string {
	return s.NatsServer.ClientURL()
}

func (s *TestQueueServer) Close() {
	if s.bridge != nil {
		s.bridge.Close()
	}
	s.NatsServer.Shutdown()
	s.HTTPServer.Close()
}
