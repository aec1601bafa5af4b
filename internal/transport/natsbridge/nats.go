package natsbridge

import (
	"fmt"
	"time"

	nats_server "github.com/nats-io/nats-server/v2/server"
	nats_test "github.com/nats-io/nats-server/v2/test"
)

const NatsHeaderStatus = "X-Nats-Status"
const NatsHeaderError = "X-Nats-Error"

// NatsRunServerCallback is an adapted github.com/nats-io/nats-server/v2/test/test.go:RunServerCallback
// It starts an embedded NATS server for tests (this package, test/ and transport tests).
// Production code connects to an external server by NatsURL.
func NatsRunServerCallback(opts *nats_server.Options, callback func(*nats_server.Server)) *nats_server.Server {
	if opts == nil {
		opts = &nats_test.DefaultTestOptions
	}
	s, err := nats_server.NewServer(opts)
	if err != nil || s == nil {
		panic(fmt.Sprintf("No NATS Server object returned: %v", err))
	}

	if !opts.NoLog {
		s.ConfigureLogger()
	}

	if callback != nil {
		callback(s)
	}

	// Run server in Go routine.
	go s.Start()

	// Wait for accept loop(s) to be started
	if !s.ReadyForConnections(1 * time.Second) {
		panic("Unable to start NATS Server in Go Routine")
	}

	return s
}

// NatsTestOptions are the embedded server options of tests, listening on a random port
func NatsTestOptions() nats_server.Options {
	return nats_server.Options{
		Host:                  "127.0.0.1",
		Port:                  -1,
		NoLog:                 true,
		NoSigs:                true,
		MaxControlLine:        4096,
		DisableShortFirstPing: true,
	}
}
