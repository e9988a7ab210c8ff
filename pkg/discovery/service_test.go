package discovery

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Resolve(t *testing.T) {
	svc := &Service{}
	svc.publish(context.Background(), map[Key]*Endpoint{
		{Method: "GET", Path: "/users/list"}: {
			Default: Reply{Status: 200, Body: []any{map[string]any{"id": float64(1)}}},
			Rules: []*Rule{
				{
					Name:  "users/list.get.yaml#1",
					Match: RequestMatcher{Params: map[string]string{"page": "1"}},
					Reply: Reply{Status: 200, Body: map[string]any{"page": float64(1)}},
				},
				{
					Name:  "users/list.get.yaml#2",
					Match: RequestMatcher{Params: map[string]string{"page": "2"}},
					Reply: Reply{Status: 200, Body: map[string]any{"total": float64(0)}},
				},
				{
					// matches page=1 as well, but must never win
					Name:  "users/list.get.yaml#3",
					Match: RequestMatcher{},
					Reply: Reply{Status: 418, Body: nil},
				},
			},
		},
		{Method: "POST", Path: "/users/create"}: {
			Default: Reply{Status: 200, Body: map[string]any{"created": false}},
			Rules: []*Rule{
				{
					Name:  "users/create.post.yaml#1",
					Match: RequestMatcher{Body: map[string]any{"name": "Bob"}},
					Reply: Reply{Status: 201, Body: map[string]any{"id": float64(3)}},
				},
			},
		},
	})

	tests := []struct {
		name    string
		method  string
		path    string
		query   url.Values
		body    []byte
		want    Resolution
		wantErr error
	}{
		{
			name:    "unknown path",
			method:  "GET",
			path:    "/nope",
			wantErr: ErrNotFound,
		},
		{
			name:    "known path, wrong method",
			method:  "DELETE",
			path:    "/users/list",
			wantErr: ErrMethodNotAllowed,
		},
		{
			name:   "first rule wins",
			method: "GET",
			path:   "/users/list",
			query:  url.Values{"page": {"1"}, "limit": {"50"}},
			want:   Resolution{Status: 200, Body: map[string]any{"page": float64(1)}},
		},
		{
			name:   "second rule, extra params ignored",
			method: "GET",
			path:   "/users/list",
			query:  url.Values{"page": {"2"}, "extra": {"x"}},
			want:   Resolution{Status: 200, Body: map[string]any{"total": float64(0)}},
		},
		{
			name:   "catch-all rule",
			method: "GET",
			path:   "/users/list",
			query:  url.Values{"page": {"3"}},
			want:   Resolution{Status: 418},
		},
		{
			name:   "body match, key order independent",
			method: "POST",
			path:   "/users/create",
			body:   []byte("{ \"name\" :\n\"Bob\" }"),
			want:   Resolution{Status: 201, Body: map[string]any{"id": float64(3)}},
		},
		{
			name:   "body mismatch falls to default",
			method: "POST",
			path:   "/users/create",
			body:   []byte(`{"name":"Carl"}`),
			want:   Resolution{Status: 200, Body: map[string]any{"created": false}},
		},
		{
			name:   "undecodable body falls to default",
			method: "POST",
			path:   "/users/create",
			body:   []byte(`{"name":`),
			want:   Resolution{Status: 200, Body: map[string]any{"created": false}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Resolve(tt.method, tt.path, tt.query, tt.body)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Resolve_emptyTable(t *testing.T) {
	svc := &Service{}
	_, err := svc.Resolve("GET", "/users/list", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Run(t *testing.T) {
	key := Key{Method: "GET", Path: "/ping"}

	t.Run("merge multiple providers", func(t *testing.T) {
		p1 := &ProviderMock{
			NameFunc: func() string { return "p1" },
			EventsFunc: func(context.Context) <-chan string {
				res := make(chan string, 1)
				res <- "dir:/specs1"
				return res
			},
			StateFunc: func(context.Context) (*State, error) {
				return &State{Name: "p1", Routes: map[Key]*Endpoint{
					key: {Default: Reply{Status: 200}},
				}}, nil
			},
		}
		p2 := &ProviderMock{
			NameFunc: func() string { return "p2" },
			EventsFunc: func(context.Context) <-chan string {
				return make(chan string, 1)
			},
			StateFunc: func(context.Context) (*State, error) {
				return &State{Name: "p2", Routes: map[Key]*Endpoint{
					{Method: "GET", Path: "/pong"}: {Default: Reply{Status: 204}},
				}}, nil
			},
		}

		svc := &Service{Providers: []Provider{p1, p2}}
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		err := svc.Run(ctx)
		require.Error(t, err)
		assert.Equal(t, context.DeadlineExceeded, err)

		res, err := svc.Resolve("GET", "/ping", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, Resolution{Status: 200}, res)

		res, err = svc.Resolve("GET", "/pong", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, Resolution{Status: 204}, res)
	})

	t.Run("keep previous table on failure", func(t *testing.T) {
		calls := 0
		p := &ProviderMock{
			NameFunc: func() string { return "p" },
			EventsFunc: func(context.Context) <-chan string {
				res := make(chan string, 2)
				res <- "dir:/specs"
				res <- "dir:/specs"
				return res
			},
			StateFunc: func(context.Context) (*State, error) {
				if calls++; calls > 1 {
					return nil, errors.New("malformed descriptor")
				}
				return &State{Name: "p", Routes: map[Key]*Endpoint{
					key: {Default: Reply{Status: 200}},
				}}, nil
			},
		}

		svc := &Service{Providers: []Provider{p}}
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		err := svc.Run(ctx)
		require.Error(t, err)
		assert.Equal(t, context.DeadlineExceeded, err)
		assert.Equal(t, 2, calls)

		// the first table keeps serving
		res, err := svc.Resolve("GET", "/ping", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, Resolution{Status: 200}, res)
	})

	t.Run("duplicate endpoint across providers", func(t *testing.T) {
		mkProvider := func(name string, events int) *ProviderMock {
			return &ProviderMock{
				NameFunc: func() string { return name },
				EventsFunc: func(context.Context) <-chan string {
					res := make(chan string, events+1)
					for i := 0; i < events; i++ {
						res <- name
					}
					return res
				},
				StateFunc: func(context.Context) (*State, error) {
					return &State{Name: name, Routes: map[Key]*Endpoint{
						key: {Default: Reply{Status: 200}},
					}}, nil
				},
			}
		}

		svc := &Service{Providers: []Provider{mkProvider("p1", 1), mkProvider("p2", 0)}}
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		err := svc.Run(ctx)
		require.Error(t, err)
		assert.Equal(t, context.DeadlineExceeded, err)

		// the build was rejected as a whole
		_, err = svc.Resolve("GET", "/ping", nil, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("fail on error", func(t *testing.T) {
		failure := errors.New("malformed descriptor")

		p := &ProviderMock{
			NameFunc: func() string { return "p" },
			EventsFunc: func(context.Context) <-chan string {
				res := make(chan string, 1)
				res <- "dir:/specs"
				return res
			},
			StateFunc: func(context.Context) (*State, error) { return nil, failure },
		}

		svc := &Service{Providers: []Provider{p}, StopOnError: true}
		err := svc.Run(context.Background()) // run indefinitely
		assert.ErrorIs(t, err, failure)
	})
}
