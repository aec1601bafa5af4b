package test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/pgillich/httpqueue/cmd"
	"github.com/pgillich/httpqueue/internal/logger"
	"github.com/pgillich/httpqueue/internal/tracing"
)

const natsSubject = "e2e.httpqueue"

type E2ETestSuite struct {
	suite.Suite
	log    logr.Logger
	server *TestQueueServer
}

func TestE2ETestSuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}

func (s *E2ETestSuite) SetupTest() {
	s.log = logger.GetLogger(s.T().Name())
	tracing.SetErrorHandlerLogger(&s.log)
	var err error
	s.server, err = RunTestQueueServer(natsSubject, s.log)
	s.Require().NoError(err)
}

func (s *E2ETestSuite) TearDownTest() {
	s.server.Close()
}

type pollOutput struct {
	Valid       bool              `yaml:"valid"`
	ContentType string            `yaml:"contentType"`
	Options     map[string]string `yaml:"options"`
	Size        int               `yaml:"size"`
	Payload     string            `yaml:"payload"`
}

type putOutput struct {
	Status int    `yaml:"status"`
	Body   string `yaml:"body"`
	ID     string `yaml:"id"`
}

type statsOutput struct {
	Size  int64 `yaml:"size"`
	Bytes int64 `yaml:"bytes"`
}

func (s *E2ETestSuite) httpArgs() []string {
	return []string{"--endpoint", s.server.HTTPServer.URL + "/e2e"}
}

func (s *E2ETestSuite) natsArgs() []string {
	return []string{
		"--endpoint", "http://queue.local/e2e",
		"--transport", "nats",
		"--natsURL", s.server.NatsURL(),
		"--natsSubject", natsSubject,
	}
}

func (s *E2ETestSuite) execute(stdin string, args ...string) []byte {
	out := &bytes.Buffer{}
	err := cmd.ExecuteE(context.Background(), args, strings.NewReader(stdin), out, &bytes.Buffer{})
	s.Require().NoError(err, args)

	return out.Bytes()
}

func (s *E2ETestSuite) TestHTTP() {
	s.roundTrip(s.httpArgs())
}

func (s *E2ETestSuite) TestNATS() {
	s.roundTrip(s.natsArgs())
}

func (s *E2ETestSuite) roundTrip(commonArgs []string) {
	put := putOutput{}
	s.Require().NoError(yaml.Unmarshal(s.execute("",
		append([]string{"put", "--contentType", "application/json", "--option", "Priority=high", "--withID", `{"id":1}`}, commonArgs...)...,
	), &put))
	s.Equal(201, put.Status)
	s.Equal("OK", put.Body)
	s.NotEmpty(put.ID)
	id := put.ID

	put = putOutput{}
	s.Require().NoError(yaml.Unmarshal(s.execute("from stdin", append([]string{"post"}, commonArgs...)...), &put))
	s.Equal(201, put.Status)
	s.Empty(put.ID)
	s.Equal(2, s.server.Queue.Len("/e2e"))

	stats := statsOutput{}
	s.Require().NoError(yaml.Unmarshal(s.execute("", append([]string{"stats"}, commonArgs...)...), &stats))
	s.Equal(statsOutput{Size: 2, Bytes: int64(len(`{"id":1}`) + len("from stdin"))}, stats)

	poll := pollOutput{}
	s.Require().NoError(yaml.Unmarshal(s.execute("", append([]string{"poll"}, commonArgs...)...), &poll))
	s.True(poll.Valid)
	s.Equal("application/json", poll.ContentType)
	s.Equal(`{"id":1}`, poll.Payload)
	s.Equal(len(`{"id":1}`), poll.Size)
	s.Len(poll.Options, 2)
	for name, value := range poll.Options {
		switch strings.ToLower(name) {
		case "priority":
			s.Equal("high", value)
		case "id":
			s.Equal(id, value)
		default:
			s.Fail("unexpected option", name)
		}
	}

	poll = pollOutput{}
	s.Require().NoError(yaml.Unmarshal(s.execute("", append([]string{"get"}, commonArgs...)...), &poll))
	s.True(poll.Valid)
	s.Equal("text/plain", poll.ContentType)
	s.Equal("from stdin", poll.Payload)

	poll = pollOutput{}
	s.Require().NoError(yaml.Unmarshal(s.execute("", append([]string{"poll"}, commonArgs...)...), &poll))
	s.False(poll.Valid)
	s.Empty(poll.Payload)
}

func (s *E2ETestSuite) TestPollPath() {
	s.execute("", append([]string{"put", "--path", "/sub", "into sub"}, s.httpArgs()...)...)
	s.Equal(1, s.server.Queue.Len("/e2e/sub"))

	poll := pollOutput{}
	s.Require().NoError(yaml.Unmarshal(s.execute("", append([]string{"poll", "/sub"}, s.httpArgs()...)...), &poll))
	s.True(poll.Valid)
	s.Equal("into sub", poll.Payload)
}

func (s *E2ETestSuite) TestErrors() {
	for name, args := range map[string][]string{
		"unknown transport": append([]string{"stats"}, append(s.httpArgs(), "--transport", "pigeon")...),
		"invalid option":    append([]string{"put", "--option", "no-value", "x"}, s.httpArgs()...),
		"refused":           {"poll", "--endpoint", "http://127.0.0.1:1/e2e"},
		"too many args":     append([]string{"poll", "/a", "/b"}, s.httpArgs()...),
	} {
		err := cmd.ExecuteE(context.Background(), args, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
		s.Error(err, name)
	}
}

func (s *E2ETestSuite) TestMetricsDump() {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	args := append([]string{"stats", "--metrics"}, s.httpArgs()...)

	s.Require().NoError(cmd.ExecuteE(context.Background(), args, strings.NewReader(""), out, errOut))

	s.Contains(out.String(), "size: 0")
	s.Contains(errOut.String(), "queue_client_requests_total")
	s.Contains(errOut.String(), `operation="stats"`)
	s.Contains(errOut.String(), "http_client_requests_total")
}

func (s *E2ETestSuite) TestVersion() {
	out := s.execute("", "version")

	s.Contains(string(out), "httpqueue")
}
