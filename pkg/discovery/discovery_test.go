package discovery

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRule_String(t *testing.T) {
	got := (&Rule{
		Name: "users/list.get.yaml#2",
		Match: RequestMatcher{
			Params: map[string]string{"page": "1", "limit": "50"},
			Body:   map[string]any{"name": "Bob"},
		},
	}).String()

	assert.Equal(t, "(users/list.get.yaml#2; 2 params; with body)", got)
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "GET /users/list", Key{Method: "GET", Path: "/users/list"}.String())
}

func TestRequestMatcher_Matches(t *testing.T) {
	tests := []struct {
		name  string
		rm    RequestMatcher
		query url.Values
		body  any
		want  bool
	}{
		{
			name:  "no constraints match anything",
			rm:    RequestMatcher{},
			query: url.Values{"page": {"1"}},
			body:  map[string]any{"name": "Bob"},
			want:  true,
		},
		{
			name:  "params are a subset of the query",
			rm:    RequestMatcher{Params: map[string]string{"page": "1"}},
			query: url.Values{"page": {"1"}, "limit": {"50"}},
			want:  true,
		},
		{
			name:  "param value differs",
			rm:    RequestMatcher{Params: map[string]string{"page": "1"}},
			query: url.Values{"page": {"2"}},
			want:  false,
		},
		{
			name:  "param missing",
			rm:    RequestMatcher{Params: map[string]string{"page": "1"}},
			query: url.Values{"limit": {"50"}},
			want:  false,
		},
		{
			name:  "empty param value requires presence",
			rm:    RequestMatcher{Params: map[string]string{"flag": ""}},
			query: url.Values{"flag": {""}},
			want:  true,
		},
		{
			name:  "empty param value against absent param",
			rm:    RequestMatcher{Params: map[string]string{"flag": ""}},
			query: url.Values{},
			want:  false,
		},
		{
			name: "body deeply equal",
			rm:   RequestMatcher{Body: map[string]any{"name": "Bob", "age": float64(42)}},
			body: map[string]any{"age": float64(42), "name": "Bob"},
			want: true,
		},
		{
			name: "body differs in value case",
			rm:   RequestMatcher{Body: map[string]any{"name": "Bob"}},
			body: map[string]any{"name": "bob"},
			want: false,
		},
		{
			name: "array order is significant",
			rm:   RequestMatcher{Body: []any{float64(1), float64(2)}},
			body: []any{float64(2), float64(1)},
			want: false,
		},
		{
			name:  "nil body constraint ignores the body",
			rm:    RequestMatcher{Params: map[string]string{"page": "1"}},
			query: url.Values{"page": {"1"}},
			body:  map[string]any{"whatever": true},
			want:  true,
		},
		{
			name:  "params and body are conjunctive",
			rm:    RequestMatcher{Params: map[string]string{"page": "1"}, Body: map[string]any{"name": "Bob"}},
			query: url.Values{"page": {"1"}},
			body:  map[string]any{"name": "Carl"},
			want:  false,
		},
		{
			name:  "params and body both hold",
			rm:    RequestMatcher{Params: map[string]string{"page": "1"}, Body: map[string]any{"name": "Bob"}},
			query: url.Values{"page": {"1"}},
			body:  map[string]any{"name": "Bob"},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rm.Matches(tt.query, tt.body))
		})
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("get")
	assert.NoError(t, err)
	assert.Equal(t, "GET", m)

	_, err = ParseMethod("frob")
	assert.ErrorContains(t, err, `unrecognized method "frob"`)
}
