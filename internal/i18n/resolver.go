package i18n

import (
	"context"
	"sync"
)

// Resolver resolves keys of one namespace in one locale. Dynamic translations from
// the API are merged over the static catalog once they arrive.
type Resolver struct {
	client    *Client
	catalog   *Catalog
	namespace string
	lang      string
	fallback  bool

	mu      sync.RWMutex
	dynamic map[string]any
	ready   bool
	loading bool
	err     error
}

type ResolverOption func(*Resolver)

// WithoutFallback serves dynamic translations only, and nothing until they load.
func WithoutFallback() ResolverOption {
	return func(r *Resolver) {
		r.fallback = false
	}
}

// NewResolver starts from whatever the client already has cached, so a resolver
// created after a preload is ready immediately.
func NewResolver(client *Client, catalog *Catalog, namespace, locale string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:    client,
		catalog:   catalog,
		namespace: namespace,
		lang:      BaseLanguage(locale),
		fallback:  true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if client != nil {
		if data, ok := client.Cached(namespace, r.lang); ok {
			r.dynamic = data
			r.ready = true
		}
	}
	return r
}

func (r *Resolver) Namespace() string { return r.namespace }

func (r *Resolver) Language() string { return r.lang }

// Load fetches the namespace, reusing fresh cached data. A failed load keeps the
// previous state and is reported by Err.
func (r *Resolver) Load(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()

	data, err := r.client.Fetch(ctx, r.namespace, r.lang)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
	r.err = err
	if data != nil {
		r.dynamic = data
		r.ready = true
	}
	return err
}

func (r *Resolver) IsLoading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

func (r *Resolver) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

func (r *Resolver) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Merged is the object lookups walk. Dynamic top-level keys replace static ones.
func (r *Resolver) Merged() map[string]any {
	r.mu.RLock()
	dynamic, ready := r.dynamic, r.ready
	r.mu.RUnlock()

	var static map[string]any
	if r.fallback {
		static = r.catalog.Namespace(r.lang, r.namespace)
	}

	if !ready {
		out := make(map[string]any, len(static))
		for k, v := range static {
			out[k] = v
		}
		return out
	}

	out := make(map[string]any, len(static)+len(dynamic))
	for k, v := range static {
		out[k] = v
	}
	for k, v := range dynamic {
		out[k] = v
	}
	return out
}

// T resolves key and interpolates params. A key that does not resolve is tried in
// the static catalog as "namespace:key" and otherwise returned unchanged.
func (r *Resolver) T(key string, params map[string]any) string {
	if s, ok := lookup(r.Merged(), key); ok {
		return Interpolate(s, params)
	}
	if s, ok := r.catalog.Lookup(r.lang, r.namespace+":"+key); ok {
		return Interpolate(s, params)
	}
	return key
}

// has reports whether the merged object has the top-level segment.
func (r *Resolver) has(top string) bool {
	_, ok := r.Merged()[top]
	return ok
}
