package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/cappuccinotm/slogx"
	"github.com/samber/lo"
)

//go:generate moq -out mock_provider.go -fmt goimports . Provider

// Service holds the published routing table and matches requests against it.
// The table is replaced as a whole on provider events; lookups never observe
// a partially built table.
type Service struct {
	Providers []Provider

	// StopOnError makes Run return on the first rebuild failure
	// instead of keeping the previous table.
	StopOnError bool

	routes map[Key]*Endpoint
	paths  map[string]struct{}
	mu     sync.RWMutex
}

// Run starts a blocking loop that rebuilds the routing table
// on the signals, received from providers.
func (s *Service) Run(ctx context.Context) (err error) {
	slog.InfoContext(ctx, "starting discovery service")
	defer slog.WarnContext(ctx, "discovery service stopped", slogx.Error(err))

	chs := make([]<-chan string, 0, len(s.Providers))
	for _, p := range s.Providers {
		chs = append(chs, p.Events(ctx))
	}

	ch := lo.FanIn(0, chs...)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-ch:
			slog.DebugContext(ctx, "new event update received", slog.String("event", ev))

			routes, err := s.build(ctx)
			if err != nil {
				if s.StopOnError {
					return fmt.Errorf("rebuild routing table: %w", err)
				}

				// the previous table, if any, keeps serving
				slog.ErrorContext(ctx, "rejected routing table build", slogx.Error(err))
				continue
			}

			s.publish(ctx, routes)
		}
	}
}

// build assembles a fresh routing table from all providers. It fails as a
// whole if any provider fails or two providers define the same endpoint.
func (s *Service) build(ctx context.Context) (map[Key]*Endpoint, error) {
	routes := map[Key]*Endpoint{}
	for _, p := range s.Providers {
		state, err := p.State(ctx)
		if err != nil {
			return nil, fmt.Errorf("get state of provider %q: %w", p.Name(), err)
		}

		for key, ept := range state.Routes {
			if _, ok := routes[key]; ok {
				return nil, fmt.Errorf("duplicate endpoint %q in provider %q", key, state.Name)
			}
			routes[key] = ept
		}
	}

	return routes, nil
}

func (s *Service) publish(ctx context.Context, routes map[Key]*Endpoint) {
	paths := make(map[string]struct{}, len(routes))
	for key := range routes {
		paths[key.Path] = struct{}{}
	}

	s.mu.Lock()
	s.routes = routes
	s.paths = paths
	s.mu.Unlock()

	slog.InfoContext(ctx, "published routing table", slog.Int("endpoints", len(routes)))
	for key, ept := range routes {
		slog.DebugContext(ctx, "route",
			slog.String("endpoint", key.String()),
			slog.Int("rules", len(ept.Rules)))
	}
}

// Resolve matches the given request to an endpoint and its rules.
// It returns ErrNotFound if no endpoint is registered for the path, and
// ErrMethodNotAllowed if the path is registered under other methods only.
// An endpoint with no matching rule resolves to its default reply.
func (s *Service) Resolve(method, path string, query url.Values, body []byte) (Resolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ept, ok := s.routes[Key{Method: method, Path: path}]
	if !ok {
		if _, exists := s.paths[path]; exists {
			return Resolution{}, ErrMethodNotAllowed
		}
		return Resolution{}, ErrNotFound
	}

	var decoded any
	var decodedOnce bool

	for _, r := range ept.Rules {
		if r.Match.Body != nil && !decodedOnce {
			decoded = decodeBody(body)
			decodedOnce = true
		}

		if r.Match.Matches(query, decoded) {
			return Resolution(r.Reply), nil
		}
	}

	return Resolution(ept.Default), nil
}

// decodeBody parses the request body as JSON; an empty or undecodable
// body counts as absent and matches no body constraint.
func decodeBody(bts []byte) any {
	if len(bts) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(bts, &v); err != nil {
		return nil
	}

	return v
}
