package translation

import (
	"sort"
	"strings"
)

// RelativeKey strips the namespace prefix from key, so "dashboard.title" in the
// dashboard namespace becomes "title". Keys outside the prefix are kept whole.
func RelativeKey(namespace, key string) string {
	if rest, ok := strings.CutPrefix(key, namespace+"."); ok && rest != "" {
		return rest
	}
	return key
}

// BuildNamespace nests flat dot-path keys into the object served for one namespace.
// Keys are applied in sorted order; when a key is both a leaf and a prefix of another
// key, the leaf wins and the deeper key is dropped.
func BuildNamespace(namespace string, flat map[string]string) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, k := range keys {
		insert(root, strings.Split(RelativeKey(namespace, k), "."), flat[k])
	}
	return root
}

func insert(node map[string]any, path []string, value string) {
	for i, seg := range path {
		if i == len(path)-1 {
			if _, taken := node[seg]; !taken {
				node[seg] = value
			}
			return
		}
		next, ok := node[seg]
		if !ok {
			child := make(map[string]any)
			node[seg] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return
		}
		node = child
	}
}

// GroupEntries arranges entries as {language: {namespace: {key: text}}}.
func GroupEntries(entries []Entry) map[string]map[string]map[string]string {
	out := make(map[string]map[string]map[string]string)
	for _, e := range entries {
		byNS, ok := out[e.LanguageCode]
		if !ok {
			byNS = make(map[string]map[string]string)
			out[e.LanguageCode] = byNS
		}
		ns := e.Namespace()
		if byNS[ns] == nil {
			byNS[ns] = make(map[string]string)
		}
		byNS[ns][e.Key] = e.Text
	}
	return out
}
