package i18n

import "strings"

// Hybrid prefers a ready dynamic resolver that knows the key's top-level segment
// and otherwise answers from the static catalog alone.
type Hybrid struct {
	dynamic *Resolver
	catalog *Catalog
}

func NewHybrid(dynamic *Resolver, catalog *Catalog) *Hybrid {
	return &Hybrid{dynamic: dynamic, catalog: catalog}
}

func (h *Hybrid) T(key string, params map[string]any) string {
	top, _, _ := strings.Cut(key, ".")
	if h.dynamic.Ready() && h.dynamic.has(top) {
		return h.dynamic.T(key, params)
	}
	return h.catalog.T(h.dynamic.Language(), h.dynamic.Namespace()+":"+key, params)
}
