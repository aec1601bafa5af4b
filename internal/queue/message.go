package queue

import (
	"strings"
	"time"
)

const (
	// DefaultContentType is used when the caller does not set one
	DefaultContentType = "text/plain"

	HeaderContentType  = "CONTENT-TYPE"
	HeaderQueueSize    = "QUEUE_SIZE"
	HeaderQueueBytes   = "QUEUE_BYTES"
	HeaderOptionPrefix = "MESSAGE_"
)

// Message is one queue entry.
// Options maps option names to values, carried as MESSAGE_<name> headers.
// Decoded names keep the casing received from the transport, which is not
// always the sent one: net/http delivers MESSAGE_Priority as Message_priority,
// so the option is stored as "priority". Look options up by Option, not by
// indexing Options with the sent name.
// Valid is set by the decoder only, true if the poll response status was 200.
type Message struct {
	Payload     []byte
	ContentType string
	CreatedAt   time.Time
	Options     map[string]string
	Valid       bool
}

// MessageOption sets a field of a new Message
type MessageOption func(*Message)

// WithContentType overrides the default content type
func WithContentType(contentType string) MessageOption {
	return func(m *Message) {
		m.ContentType = contentType
	}
}

// WithCreatedAt overrides the creation time
func WithCreatedAt(createdAt time.Time) MessageOption {
	return func(m *Message) {
		m.CreatedAt = createdAt
	}
}

// WithOption adds a metadata option. Reserved header names are skipped.
func WithOption(name string, value string) MessageOption {
	return func(m *Message) {
		if isReserved(name) {
			return
		}
		m.Options[name] = value
	}
}

func NewMessage(payload []byte, opts ...MessageOption) *Message {
	m := &Message{
		Payload:     payload,
		ContentType: DefaultContentType,
		CreatedAt:   time.Now(),
		Options:     map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Size returns the payload length in bytes
func (m *Message) Size() int {
	return len(m.Payload)
}

// Option looks up an option by case-insensitive name.
// An exact match wins over a case-folded one.
func (m *Message) Option(name string) (string, bool) {
	if value, has := m.Options[name]; has {
		return value, true
	}
	for key, value := range m.Options {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}

	return "", false
}

func isReserved(name string) bool {
	switch strings.ToUpper(name) {
	case HeaderContentType, HeaderQueueSize, HeaderQueueBytes:
		return true
	}

	return false
}
