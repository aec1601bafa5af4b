package middleware

import "strings"

const (
	// MetrAttrErr is the metric attribute for error
	MetrAttrErr       = "error"
	MetrAttrOperation = "operation"
	MetrAttrMethod    = "method"
	MetrAttrStatus    = "status"
	MetrAttrTransport = "transport"
)

// ErrFormatter is a func type to format metric error attribute
type ErrFormatter func(error) string

// FirstErr returns the first part of error text before ':'
func FirstErr(err error) string {
	if err == nil {
		return ""
	}

	return strings.SplitN(err.Error(), ":", 2)[0]
}
