package queue

import (
	"context"
	"net/http"
	"sort"
)

// Response is what the codec needs from an HTTP response
type Response interface {
	StatusCode() int
	// Header looks up a header by case-insensitive name
	Header(name string) (string, bool)
	HeaderNames() []string
	Body() []byte
}

// Transport sends one HTTP request and returns the buffered response.
// Implementations must be safe for concurrent use.
type Transport interface {
	Get(ctx context.Context, url string, header http.Header) (Response, error)
	Post(ctx context.Context, url string, body []byte, header http.Header) (Response, error)
	Head(ctx context.Context, url string) (Response, error)
}

var _ Response = (*BufferedResponse)(nil)

// BufferedResponse is a fully read response, shared by the Transport implementations
type BufferedResponse struct {
	Status  int
	Headers http.Header
	Payload []byte
}

func NewResponse(status int, header http.Header, body []byte) *BufferedResponse {
	if header == nil {
		header = http.Header{}
	}

	return &BufferedResponse{
		Status:  status,
		Headers: header,
		Payload: body,
	}
}

func (r *BufferedResponse) StatusCode() int {
	return r.Status
}

func (r *BufferedResponse) Header(name string) (string, bool) {
	return HeaderValue(r.Headers, name)
}

func (r *BufferedResponse) HeaderNames() []string {
	names := make([]string, 0, len(r.Headers))
	for name := range r.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (r *BufferedResponse) Body() []byte {
	return r.Payload
}
