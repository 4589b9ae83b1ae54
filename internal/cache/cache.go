// Package cache provides the TTL key/value stores the metadata client reads
// through: an in-process map, Redis, and a layered combination of the two.
package cache

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Store is a byte-oriented TTL cache. Get reports found=false for missing
// and expired keys alike.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key derives a cache key from a call kind and its parameters. Parameter
// order, value order, letter case and blank values do not affect the result.
func Key(kind string, params url.Values) string {
	names := make([]string, 0, len(params))
	normalized := make(map[string][]string, len(params))
	for name, values := range params {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		clean := make([]string, 0, len(values))
		for _, value := range values {
			value = strings.ToLower(strings.TrimSpace(value))
			if value != "" {
				clean = append(clean, value)
			}
		}
		if len(clean) == 0 {
			continue
		}
		sort.Strings(clean)
		if _, ok := normalized[name]; !ok {
			names = append(names, name)
		}
		normalized[name] = append(normalized[name], clean...)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	parts = append(parts, strings.ToLower(strings.TrimSpace(kind)))
	for _, name := range names {
		values := normalized[name]
		sort.Strings(values)
		parts = append(parts, name+"="+strings.Join(values, ","))
	}
	return strings.Join(parts, "|")
}
