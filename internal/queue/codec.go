package queue

import (
	"net/http"
	"strings"
	"unicode"
)

// EncodeHeaders maps a Message to request headers: one CONTENT-TYPE and
// one MESSAGE_<name> per option. Option names are written as-is,
// so the header map is filled directly instead of by http.Header.Set.
func EncodeHeaders(m *Message) http.Header {
	header := make(http.Header, len(m.Options)+1)
	header.Set(HeaderContentType, m.ContentType)
	for name, value := range m.Options {
		if isReserved(name) {
			continue
		}
		header[HeaderOptionPrefix+name] = []string{value}
	}

	return header
}

// DecodeResponse builds a Message from a response. It never fails:
// missing or unmatched headers are left out.
func DecodeResponse(resp Response) *Message {
	m := NewMessage(resp.Body())
	m.ContentType, _ = resp.Header(HeaderContentType)
	m.Valid = resp.StatusCode() == http.StatusOK
	for _, header := range resp.HeaderNames() {
		name, is := OptionName(header)
		if !is || isReserved(name) {
			continue
		}
		if value, has := resp.Header(header); has {
			m.Options[name] = value
		}
	}

	return m
}

// OptionName returns the option name of a MESSAGE_<ident> header.
// The prefix is matched case-insensitively, ident keeps its casing.
// ident must start with a letter, followed by letters, digits, '_' or '-'.
func OptionName(header string) (string, bool) {
	if len(header) <= len(HeaderOptionPrefix) ||
		strings.ToUpper(header[:len(HeaderOptionPrefix)]) != HeaderOptionPrefix {
		return "", false
	}
	name := header[len(HeaderOptionPrefix):]
	if !isIdent(name) {
		return "", false
	}

	return name, true
}

func isIdent(name string) bool {
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		switch {
		case unicode.IsLetter(r):
		case i == 0:
			return false
		case unicode.IsDigit(r), r == '_', r == '-':
		default:
			return false
		}
	}

	return name != ""
}

// HeaderValue looks up the first value of a header by case-insensitive name.
// Transports may deliver names canonicalized (net/http) or as sent (NATS).
func HeaderValue(header http.Header, name string) (string, bool) {
	if values, has := header[name]; has && len(values) > 0 {
		return values[0], true
	}
	if values, has := header[http.CanonicalHeaderKey(name)]; has && len(values) > 0 {
		return values[0], true
	}
	for key, values := range header {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0], true
		}
	}

	return "", false
}
