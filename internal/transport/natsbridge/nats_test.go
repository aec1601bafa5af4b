package natsbridge

import (
	"context"
	"net/http"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/go-logr/logr"
	nats_server "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/suite"

	"github.com/pgillich/httpqueue/internal/logger"
	"github.com/pgillich/httpqueue/internal/queue"
	"github.com/pgillich/httpqueue/internal/queuetest"
	"github.com/pgillich/httpqueue/internal/transport/natsbridge/model"
)

type NatsTestSuite struct {
	suite.Suite
	log       logr.Logger
	natsSrv   *nats_server.Server
	queue     *queuetest.Server
	srv       *NatsReqRespServer
	reqClient *NatsReqRespClient
}

func TestNatsTestSuite(t *testing.T) {
	suite.Run(t, new(NatsTestSuite))
}

func (s *NatsTestSuite) SetupTest() {
	s.log = logger.GetLogger(s.T().Name())

	opts := NatsTestOptions()
	s.natsSrv = NatsRunServerCallback(&opts, nil)

	s.queue = queuetest.NewServer(s.log)
	var err error
	s.srv, err = NewNatsReqRespServer(s.natsSrv.ClientURL(), "httpqueue", &MsgToHttp{Handler: s.queue}, s.log)
	s.Require().NoError(err)

	s.reqClient, err = NewNatsReqRespClient(s.natsSrv.ClientURL(), s.log)
	s.Require().NoError(err)
}

func (s *NatsTestSuite) TearDownTest() {
	s.reqClient.Close()
	s.srv.Close()
	s.natsSrv.Shutdown()
}

func (s *NatsTestSuite) newClient() *queue.Client {
	return queue.NewClient("http://queue.local/orders", &Transport{
		Client:  s.reqClient,
		Subject: "httpqueue",
		Timeout: 5 * time.Second,
	}, queue.WithLogger(s.log), queue.WithTransportName("nats"))
}

func (s *NatsTestSuite) TestPutPollStats() {
	ctx := context.Background()
	client := s.newClient()

	resp, err := client.Put(ctx, queue.NewMessage([]byte("PING"),
		queue.WithContentType("application/octet-stream"),
		queue.WithOption("Priority", "high"),
	), "")
	s.Require().NoError(err)
	s.Equal(http.StatusCreated, resp.StatusCode())
	s.Equal([]byte("OK"), resp.Body())
	server, has := resp.Header(model.QueueHeaderServer)
	s.True(has)
	s.NotEmpty(server)
	s.Equal(1, s.queue.Len("/orders"))

	stats, err := client.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(queue.Stats{Size: 1, Bytes: 4}, stats)

	m, err := client.Poll(ctx, "")
	s.Require().NoError(err)
	s.True(m.Valid)
	s.Equal([]byte("PING"), m.Payload)
	s.Equal("application/octet-stream", m.ContentType)
	// NATS keeps the header casing
	s.Equal(map[string]string{"Priority": "high"}, m.Options)

	m, err = client.Poll(ctx, "")
	s.Require().NoError(err)
	s.False(m.Valid)
}

func (s *NatsTestSuite) TestPathPrefix() {
	s.srv.Close()
	var err error
	s.srv, err = NewNatsReqRespServer(s.natsSrv.ClientURL(), "httpqueue", &MsgToHttp{Handler: s.queue, PathPrefix: "tenant"}, s.log)
	s.Require().NoError(err)

	_, err = s.newClient().Put(context.Background(), queue.NewMessage([]byte("x")), "/a")
	s.Require().NoError(err)

	s.Equal(1, s.queue.Len("/tenant/orders/a"))
}

func (s *NatsTestSuite) TestNoResponder() {
	client := queue.NewClient("http://queue.local/orders", &Transport{
		Client:  s.reqClient,
		Subject: "nobody.listens",
		Timeout: 200 * time.Millisecond,
	})

	_, err := client.Stats(context.Background())

	s.Error(err)
}

type failingReceiver struct{}

func (failingReceiver) Receive(ctx context.Context, req model.Request) (*model.Response, error) {
	return nil, errors.NewPlain("queue is on fire")
}

func (s *NatsTestSuite) TestRemoteError() {
	failSrv, err := NewNatsReqRespServer(s.natsSrv.ClientURL(), "failing", failingReceiver{}, s.log)
	s.Require().NoError(err)
	defer failSrv.Close()

	client := queue.NewClient("http://queue.local/orders", &Transport{
		Client:  s.reqClient,
		Subject: "failing",
		Timeout: 5 * time.Second,
	})

	m, err := client.Poll(context.Background(), "")

	s.Nil(m)
	s.True(errors.Is(err, ErrRemote), err)
}

func (s *NatsTestSuite) TestInvalidURL() {
	resp, err := (&MsgToHttp{Handler: s.queue}).Receive(context.Background(), model.Request{
		Header: map[string][]string{
			model.QueueHeaderMethod: {http.MethodGet},
			model.QueueHeaderURL:    {"http://[::1"},
		},
	})

	s.Nil(resp)
	s.Error(err)
}
