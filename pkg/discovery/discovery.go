// Package discovery provides the interface for matching HTTP requests to
// mocked endpoints.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Provider provides endpoint definitions for the Service.
type Provider interface {
	// Name returns the name of the provider.
	Name() string

	// Events returns the events of the endpoint definitions.
	// It returns the name of the provider to update the routing table.
	Events(ctx context.Context) <-chan string

	// State returns the current state of the provider.
	State(ctx context.Context) (*State, error)
}

// State contains the state of the provider.
type State struct {
	// Name is the name of the provider.
	Name string

	// Routes contains the endpoints, keyed by method and path.
	Routes map[Key]*Endpoint
}

// Key identifies a single mocked endpoint.
type Key struct {
	// Method is the HTTP method, uppercase.
	Method string

	// Path is the URL path, slash-separated, with a leading slash.
	Path string
}

// String returns the method and path of the key.
func (k Key) String() string { return k.Method + " " + k.Path }

// Endpoint contains the ordered matching rules of one endpoint and
// the default reply served when no rule matches.
type Endpoint struct {
	// Default is the reply served when no rule matches the request.
	Default Reply

	// Rules contains the matching rules in the order they were declared.
	// The order is the evaluation order.
	Rules []*Rule
}

// Reply contains the details of how the handler should respond
// to the downstream.
type Reply struct {
	// Status is the HTTP status code.
	Status int

	// Body is the JSON value to serve; nil means an empty body.
	Body any
}

// Rule is a single matching rule of an endpoint.
type Rule struct {
	// Name is the name of the rule, derived from the descriptor
	// file and the rule's position in it.
	Name string

	// Match defines the request matcher.
	// Any request that matches the matcher will be handled by the rule.
	Match RequestMatcher

	// Reply defines the response served when the rule matches.
	Reply Reply
}

// String returns the name of the rule.
func (r *Rule) String() string {
	sb := &strings.Builder{}
	_, _ = sb.WriteString("(")
	_, _ = sb.WriteString(r.Name)
	_, _ = sb.WriteString("; ")
	_, _ = sb.WriteString(strconv.Itoa(len(r.Match.Params)))
	_, _ = sb.WriteString(" params")
	if r.Match.Body != nil {
		_, _ = sb.WriteString("; with body")
	}
	_, _ = sb.WriteString(")")
	return sb.String()
}

// RequestMatcher defines parameters to match the request to the rule.
type RequestMatcher struct {
	// Params contains the query parameters that must be present in the
	// request with equal values. Parameters not listed here are ignored.
	Params map[string]string

	// Body contains the expected JSON value of the request body.
	// Nil places no constraint on the body.
	Body any
}

// Matches returns true if the request is matched to the rule.
// The body must be a decoded JSON value in the shape produced
// by encoding/json when unmarshaling into any.
func (m RequestMatcher) Matches(query url.Values, body any) bool {
	for k, want := range m.Params {
		vals, ok := query[k]
		if !ok || len(vals) == 0 || vals[0] != want {
			return false
		}
	}

	if m.Body != nil && !reflect.DeepEqual(m.Body, body) {
		return false
	}

	return true
}

// Resolution is the outcome of matching a request against the routing table.
type Resolution struct {
	// Status is the HTTP status code to serve.
	Status int

	// Body is the JSON value to serve; nil means an empty body.
	Body any
}

// Resolve errors, returned when the routing table has no answer
// for the request.
var (
	// ErrNotFound means no endpoint is registered for the path
	// under any method.
	ErrNotFound = errors.New("no endpoint for path")

	// ErrMethodNotAllowed means the path is registered, but not
	// for the requested method.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Methods contains the recognized HTTP methods, keyed by the lowercase
// token used in descriptor file names.
var Methods = map[string]string{
	"get":     "GET",
	"post":    "POST",
	"put":     "PUT",
	"patch":   "PATCH",
	"delete":  "DELETE",
	"head":    "HEAD",
	"options": "OPTIONS",
}

// ParseMethod maps a lowercase method token to the HTTP method name.
func ParseMethod(tok string) (string, error) {
	m, ok := Methods[tok]
	if !ok {
		return "", fmt.Errorf("unrecognized method %q", tok)
	}
	return m, nil
}
