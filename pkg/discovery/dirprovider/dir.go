// Package dirprovider provides a directory-based discovery provider:
// subdirectories map to URL path segments, descriptor files to endpoints.
package dirprovider

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Semior001/mockpath/pkg/discovery"
	"github.com/cappuccinotm/slogx"
	"gopkg.in/yaml.v3"
)

// Dir discovers endpoint definitions from a directory tree.
type Dir struct {
	Root          string
	Watch         bool
	CheckInterval time.Duration
	Delay         time.Duration
}

// Name returns the name of the provider.
func (d *Dir) Name() string {
	return fmt.Sprintf("dir:%s", d.Root)
}

// Events checks whether any descriptor or fixture under the root
// has been changed. With Watch disabled it emits a single event for
// the initial load and never again.
func (d *Dir) Events(ctx context.Context) <-chan string {
	res := make(chan string)

	trySubmit := func(ch chan string) bool {
		select {
		case ch <- d.Name():
			return true
		default:
			return false
		}
	}

	go func() {
		defer close(res)

		last, _, ok := d.scan(ctx)
		if ok { // load for the first time
			select {
			case res <- d.Name():
			case <-ctx.Done():
				return
			}
		}

		if !d.Watch {
			<-ctx.Done()
			return
		}

		ticker := time.NewTicker(d.CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur, newest, ok := d.scan(ctx)
				if !ok || cur == last {
					continue
				}

				// don't react on modification right away
				if time.Since(newest) < d.Delay {
					continue
				}

				slog.DebugContext(ctx, "spec directory changed",
					slog.String("dir", d.Root),
					slog.String("last_modified", newest.Format(time.RFC3339Nano)))

				if trySubmit(res) {
					last = cur
				}
			}
		}
	}()

	return res
}

// scan fingerprints the descriptor and fixture files under the root.
func (d *Dir) scan(ctx context.Context) (fp uint64, newest time.Time, ok bool) {
	h := fnv.New64a()

	err := filepath.WalkDir(d.Root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if e.IsDir() {
			return nil
		}

		if ext := filepath.Ext(path); ext != ".yaml" && ext != ".json" {
			return nil
		}

		fi, err := e.Info()
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(h, "%s:%d:%d\n", path, fi.Size(), fi.ModTime().UnixNano())
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}

		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to scan spec directory",
			slog.String("dir", d.Root),
			slogx.Error(err))
		return 0, time.Time{}, false
	}

	return h.Sum64(), newest, true
}

// State walks the root and builds the full set of endpoints from the
// descriptor files in it. A failure of any single descriptor fails the
// whole build.
func (d *Dir) State(ctx context.Context) (*discovery.State, error) {
	routes := map[discovery.Key]*discovery.Endpoint{}

	err := filepath.WalkDir(d.Root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if e.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}

		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		key, ept, err := loadEndpoint(path, rel)
		if err != nil {
			return fmt.Errorf("load %s: %w", rel, err)
		}

		if _, ok := routes[key]; ok {
			return fmt.Errorf("duplicate endpoint %q in %s", key, rel)
		}
		routes[key] = ept

		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "loaded spec directory",
		slog.String("dir", d.Root),
		slog.Int("endpoints", len(routes)))

	return &discovery.State{Name: d.Name(), Routes: routes}, nil
}

// loadEndpoint derives the endpoint key from the descriptor's location and
// materializes its rules, with all fixture content resolved.
func loadEndpoint(path, rel string) (discovery.Key, *discovery.Endpoint, error) {
	base := filepath.Base(rel)
	parts := strings.Split(base, ".")
	if len(parts) != 3 {
		return discovery.Key{}, nil, fmt.Errorf("file name %q doesn't match \"<name>.<method>.yaml\"", base)
	}
	name, tok := parts[0], parts[1]

	method, err := discovery.ParseMethod(tok)
	if err != nil {
		return discovery.Key{}, nil, fmt.Errorf("derive method: %w", err)
	}

	urlPath := "/" + name
	if relDir := filepath.ToSlash(filepath.Dir(rel)); relDir != "." {
		urlPath = "/" + relDir + "/" + name
	}
	key := discovery.Key{Method: method, Path: urlPath}

	f, err := os.Open(path)
	if err != nil {
		return discovery.Key{}, nil, fmt.Errorf("open descriptor: %w", err)
	}
	defer f.Close()

	var desc Descriptor
	if err = yaml.NewDecoder(f).Decode(&desc); err != nil && !errors.Is(err, io.EOF) {
		return discovery.Key{}, nil, fmt.Errorf("decode descriptor: %w", err)
	}

	dir := filepath.Dir(path)
	prefix := name + "." + tok

	if desc.Response != nil && desc.ResponseFile != "" {
		return discovery.Key{}, nil, fmt.Errorf("can't set both response and response_file")
	}

	defBody, err := resolveContent(
		inline(desc.Response),
		fileRef(refPath(dir, desc.ResponseFile)),
		convention(filepath.Join(dir, prefix+".resp.json")),
	)
	if err != nil {
		return discovery.Key{}, nil, fmt.Errorf("resolve default response: %w", err)
	}

	status := desc.Status
	if status == 0 {
		status = http.StatusOK
	}

	ept := &discovery.Endpoint{Default: discovery.Reply{Status: status, Body: defBody}}

	for idx, m := range desc.Matches {
		rule, err := parseRule(dir, rel, prefix, idx+1, m, ept.Default)
		if err != nil {
			return discovery.Key{}, nil, fmt.Errorf("parse rule #%d: %w", idx+1, err)
		}
		ept.Rules = append(ept.Rules, &rule)
	}

	return key, ept, nil
}

func parseRule(dir, rel, prefix string, ordinal int, m Match, def discovery.Reply) (discovery.Rule, error) {
	if m.Request != nil && m.RequestFile != "" {
		return discovery.Rule{}, fmt.Errorf("can't set both request and request_file")
	}

	if m.Response != nil && m.ResponseFile != "" {
		return discovery.Rule{}, fmt.Errorf("can't set both response and response_file")
	}

	reqBody, err := resolveContent(
		inline(m.Request),
		fileRef(refPath(dir, m.RequestFile)),
		convention(filepath.Join(dir, fmt.Sprintf("%s.req.%d.json", prefix, ordinal))),
	)
	if err != nil {
		return discovery.Rule{}, fmt.Errorf("resolve request matcher: %w", err)
	}

	respBody, err := resolveContent(
		inline(m.Response),
		fileRef(refPath(dir, m.ResponseFile)),
		convention(filepath.Join(dir, fmt.Sprintf("%s.resp.%d.json", prefix, ordinal))),
	)
	if err != nil {
		return discovery.Rule{}, fmt.Errorf("resolve response: %w", err)
	}

	status := m.Status
	if status == 0 {
		status = def.Status
	}

	if respBody == nil {
		respBody = def.Body
	}

	return discovery.Rule{
		Name:  fmt.Sprintf("%s#%d", rel, ordinal),
		Match: discovery.RequestMatcher{Params: m.Params, Body: reqBody},
		Reply: discovery.Reply{Status: status, Body: respBody},
	}, nil
}

func refPath(dir, ref string) string {
	if ref == "" {
		return ""
	}
	return filepath.Join(dir, ref)
}
