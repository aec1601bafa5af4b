package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/suite"

	"github.com/pgillich/httpqueue/internal/logger"
	"github.com/pgillich/httpqueue/internal/queue"
	"github.com/pgillich/httpqueue/internal/queuetest"
)

type HTTPTransportTestSuite struct {
	suite.Suite
	log    logr.Logger
	server *httptest.Server
	queue  *queuetest.Server
	client *queue.Client
}

func TestHTTPTransportTestSuite(t *testing.T) {
	suite.Run(t, new(HTTPTransportTestSuite))
}

func (s *HTTPTransportTestSuite) SetupTest() {
	s.log = logger.GetLogger(s.T().Name())
	s.queue = queuetest.NewServer(s.log)
	s.server = httptest.NewServer(s.queue)
	s.client = queue.NewClient(s.server.URL+"/orders", New(nil, 5*time.Second, s.log),
		queue.WithLogger(s.log),
		queue.WithTransportName("http"),
	)
}

func (s *HTTPTransportTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *HTTPTransportTestSuite) TestPutPollStats() {
	ctx := context.Background()

	stats, err := s.client.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(queue.Stats{}, stats)

	resp, err := s.client.Put(ctx, queue.NewMessage([]byte("first"),
		queue.WithContentType("application/yaml"),
		queue.WithOption("Priority", "high"),
		queue.WithOption("Ttl", "30"),
	), "")
	s.Require().NoError(err)
	s.Equal(http.StatusCreated, resp.StatusCode())
	s.Equal([]byte("OK"), resp.Body())

	_, err = s.client.Post(ctx, queue.NewMessage([]byte("second!")), "")
	s.Require().NoError(err)

	size, err := s.client.Size(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), size)
	bytes, err := s.client.Bytes(ctx)
	s.Require().NoError(err)
	s.Equal(int64(len("first")+len("second!")), bytes)

	m, err := s.client.Poll(ctx, "")
	s.Require().NoError(err)
	s.True(m.Valid)
	s.Equal([]byte("first"), m.Payload)
	s.Equal("application/yaml", m.ContentType)
	// net/http canonicalizes the received header names
	s.Equal(map[string]string{"priority": "high", "ttl": "30"}, m.Options)
	priority, has := m.Option("Priority")
	s.True(has)
	s.Equal("high", priority)
	ttl, has := m.Option("TTL")
	s.True(has)
	s.Equal("30", ttl)

	m, err = s.client.Get(ctx, "")
	s.Require().NoError(err)
	s.True(m.Valid)
	s.Equal([]byte("second!"), m.Payload)
	s.Equal(queue.DefaultContentType, m.ContentType)
	s.Empty(m.Options)

	m, err = s.client.Poll(ctx, "")
	s.Require().NoError(err)
	s.False(m.Valid)
	s.Empty(m.Payload)
}

func (s *HTTPTransportTestSuite) TestPathIsAppended() {
	ctx := context.Background()

	_, err := s.client.Put(ctx, queue.NewMessage([]byte("x")), "/urgent")
	s.Require().NoError(err)

	s.Equal(1, s.queue.Len("/orders/urgent"))
	s.Equal(0, s.queue.Len("/orders"))
}

func (s *HTTPTransportTestSuite) TestConnectionRefused() {
	s.server.Close()

	m, err := s.client.Poll(context.Background(), "")

	s.Nil(m)
	s.Error(err)
}

func (s *HTTPTransportTestSuite) TestTimeout() {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer slow.Close()
	client := queue.NewClient(slow.URL, New(nil, 50*time.Millisecond, s.log))

	_, err := client.Size(context.Background())

	s.Error(err)
}
