package dirprovider

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// tier is a single source of a JSON value. It reports whether it applies
// at all; an applicable tier that fails to produce a value fails the
// whole resolution.
type tier func() (val any, applicable bool, err error)

// resolveContent evaluates tiers in order, the first applicable one wins.
// No applicable tier means the value is absent (nil).
func resolveContent(tiers ...tier) (any, error) {
	for _, t := range tiers {
		val, ok, err := t()
		if err != nil {
			return nil, err
		}

		if ok {
			return val, nil
		}
	}

	return nil, nil
}

// inline serves a value embedded in the descriptor itself. The value is
// round-tripped through JSON to give it the same shape as values parsed
// from fixture files.
func inline(v any) tier {
	return func() (any, bool, error) {
		if v == nil {
			return nil, false, nil
		}

		bts, err := json.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("marshal inline value: %w", err)
		}

		var out any
		if err = json.Unmarshal(bts, &out); err != nil {
			return nil, false, fmt.Errorf("unmarshal inline value: %w", err)
		}

		return out, true, nil
	}
}

// fileRef serves the content of a fixture file explicitly referenced
// by the descriptor; a missing file is an error.
func fileRef(path string) tier {
	return func() (any, bool, error) {
		if path == "" {
			return nil, false, nil
		}

		val, err := parseFixture(path)
		if err != nil {
			return nil, false, err
		}

		return val, true, nil
	}
}

// convention serves the content of a conventionally named fixture file
// next to the descriptor; the tier doesn't apply if no such file exists.
func convention(path string) tier {
	return func() (any, bool, error) {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("stat fixture: %w", err)
		}

		val, err := parseFixture(path)
		if err != nil {
			return nil, false, err
		}

		return val, true, nil
	}
}

func parseFixture(path string) (any, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var val any
	if err = json.Unmarshal(bts, &val); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", filepath.Base(path), err)
	}

	return val, nil
}
