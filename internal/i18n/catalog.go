package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed locales
var bundled embed.FS

// Catalog is the static translation bundle, keyed by language then namespace.
// It is read-only once built.
type Catalog struct {
	data     map[string]map[string]map[string]any
	fallback string
}

func NewCatalog(data map[string]map[string]map[string]any) *Catalog {
	if data == nil {
		data = map[string]map[string]map[string]any{}
	}
	return &Catalog{data: data, fallback: DefaultLanguage}
}

// LoadCatalog reads {lang}/{namespace}.json files from fsys. Files whose name starts
// with an underscore, like the export summary, are skipped.
func LoadCatalog(fsys fs.FS) (*Catalog, error) {
	files, err := fs.Glob(fsys, "*/*.json")
	if err != nil {
		return nil, err
	}
	data := make(map[string]map[string]map[string]any)
	for _, name := range files {
		lang, file := path.Split(name)
		lang = strings.TrimSuffix(lang, "/")
		if strings.HasPrefix(file, "_") {
			continue
		}
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var tree map[string]any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if data[lang] == nil {
			data[lang] = make(map[string]map[string]any)
		}
		data[lang][strings.TrimSuffix(file, ".json")] = tree
	}
	return NewCatalog(data), nil
}

// BundledCatalog is the catalog compiled into the binary.
func BundledCatalog() (*Catalog, error) {
	sub, err := fs.Sub(bundled, "locales")
	if err != nil {
		return nil, err
	}
	return LoadCatalog(sub)
}

func (c *Catalog) Languages() []string {
	if c == nil {
		return nil
	}
	langs := make([]string, 0, len(c.data))
	for lang := range c.data {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Namespace returns the static tree for lang, or nil.
func (c *Catalog) Namespace(lang, namespace string) map[string]any {
	if c == nil {
		return nil
	}
	return c.data[lang][namespace]
}

// Lookup resolves "namespace:key" (or a bare key in the common namespace) in lang,
// then in the fallback language.
func (c *Catalog) Lookup(lang, ref string) (string, bool) {
	if c == nil {
		return "", false
	}
	namespace, key := "common", ref
	if i := strings.Index(ref, ":"); i >= 0 {
		namespace, key = ref[:i], ref[i+1:]
	}
	if s, ok := lookup(c.data[lang][namespace], key); ok {
		return s, true
	}
	if lang != c.fallback {
		return lookup(c.data[c.fallback][namespace], key)
	}
	return "", false
}

// T looks up ref and interpolates params, returning the key itself when nothing matches.
func (c *Catalog) T(lang, ref string, params map[string]any) string {
	if s, ok := c.Lookup(lang, ref); ok {
		return Interpolate(s, params)
	}
	if i := strings.Index(ref, ":"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// Namespaces lists the namespaces lang ships, sorted.
func (c *Catalog) Namespaces(lang string) []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.data[lang]))
	for ns := range c.data[lang] {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Flatten turns a namespace tree back into dot-path keys. Non-string leaves are dropped.
func Flatten(tree map[string]any) map[string]string {
	out := make(map[string]string)
	flatten(out, "", tree)
	return out
}

func flatten(out map[string]string, prefix string, node map[string]any) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]any:
			flatten(out, key, val)
		}
	}
}
