// Package queuetest provides an in-memory queue server for tests.
// It follows the wire convention of the queue client, nothing more.
package queuetest

import (
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"

	"github.com/pgillich/httpqueue/internal/logger"
	"github.com/pgillich/httpqueue/internal/queue"
)

type entry struct {
	header http.Header
	body   []byte
}

// Server keeps one FIFO per URL path.
// GET pops (204, if empty), POST pushes (201), HEAD reports QUEUE_SIZE and QUEUE_BYTES.
type Server struct {
	router chi.Router
	mu     sync.Mutex
	queues map[string][]entry
}

var _ http.Handler = (*Server)(nil)

func NewServer(log logr.Logger) *Server {
	s := &Server{
		queues: map[string][]entry{},
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&logger.ChiLogr{Logger: log}))
	r.Get("/*", s.poll)
	r.Post("/*", s.put)
	r.Head("/*", s.stats)
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Len returns the number of queued messages on path
func (s *Server) Len(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queues[path])
}

func (s *Server) put(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}
	header := http.Header{}
	if contentType, has := queue.HeaderValue(r.Header, queue.HeaderContentType); has {
		header.Set(queue.HeaderContentType, contentType)
	}
	for name, values := range r.Header {
		if _, is := queue.OptionName(name); is {
			header[name] = values
		}
	}

	s.mu.Lock()
	s.queues[r.URL.Path] = append(s.queues[r.URL.Path], entry{header: header, body: body})
	s.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("OK")) //nolint:errcheck // test server
}

func (s *Server) poll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entries := s.queues[r.URL.Path]
	if len(entries) == 0 {
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

		return
	}
	e := entries[0]
	s.queues[r.URL.Path] = entries[1:]
	s.mu.Unlock()

	for name, values := range e.header {
		w.Header()[name] = values
	}
	w.Header().Set("X-Request-Id", middleware.GetReqID(r.Context()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.body) //nolint:errcheck // test server
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entries := s.queues[r.URL.Path]
	size := 0
	for _, e := range entries {
		size += len(e.body)
	}
	count := len(entries)
	s.mu.Unlock()

	w.Header()[queue.HeaderQueueSize] = []string{strconv.Itoa(count)}
	w.Header()[queue.HeaderQueueBytes] = []string{strconv.Itoa(size)}
	w.WriteHeader(http.StatusOK)
}
