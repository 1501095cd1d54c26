package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/frahmantamala/school-management/internal/i18n"
	"github.com/frahmantamala/school-management/pkg/logger"
	"github.com/spf13/cobra"
)

var i18nCmd = &cobra.Command{
	Use:   "i18n",
	Short: "Inspect translations the way the frontend resolves them",
}

var (
	lookupBaseURL    string
	lookupLocale     string
	lookupNamespace  string
	lookupCatalogDir string
	lookupNoFallback bool
	lookupHybrid     bool
	lookupParams     []string
	lookupPreload    []string
	lookupTimeout    time.Duration
)

var i18nLookupCmd = &cobra.Command{
	Use:   "lookup [key...]",
	Short: "Resolve keys against a running server with static fallback",
	Long:  "Resolve keys against a running server with static fallback.\nA key may name its namespace as \"namespace:key\"; bare keys use --namespace.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lg := logger.LoggerWrapper()

		catalog, err := loadLookupCatalog()
		if err != nil {
			return err
		}

		client := i18n.NewClient(i18n.ClientConfig{
			BaseURL: lookupBaseURL,
			Timeout: lookupTimeout,
		}, lg)

		refs := make([]lookupRef, 0, len(args))
		for _, arg := range args {
			refs = append(refs, parseLookupRef(arg, lookupNamespace))
		}

		// Every namespace is fetched up front in one round; resolvers then start
		// from the warm cache.
		if namespaces := lookupNamespaces(refs, lookupPreload); len(namespaces) > 1 {
			if err := client.Preload(cmd.Context(), lookupLocale, namespaces...); err != nil {
				fmt.Fprintf(os.Stderr, "warning: preload incomplete: %v\n", err)
			}
		}

		var opts []i18n.ResolverOption
		if lookupNoFallback {
			opts = append(opts, i18n.WithoutFallback())
		}
		resolvers := make(map[string]*i18n.Resolver)
		resolverFor := func(namespace string) *i18n.Resolver {
			if r, ok := resolvers[namespace]; ok {
				return r
			}
			r := i18n.NewResolver(client, catalog, namespace, lookupLocale, opts...)
			if err := r.Load(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "warning: dynamic %s translations unavailable: %v\n", namespace, err)
			}
			resolvers[namespace] = r
			return r
		}

		params := make(map[string]any, len(lookupParams))
		for _, p := range lookupParams {
			k, v, ok := strings.Cut(p, "=")
			if !ok {
				return fmt.Errorf("param %q must look like name=value", p)
			}
			params[k] = v
		}

		for _, ref := range refs {
			resolver := resolverFor(ref.namespace)
			text := resolver.T(ref.key, params)
			if lookupHybrid {
				text = i18n.NewHybrid(resolver, catalog).T(ref.key, params)
			}
			fmt.Printf("%s\t%s\n", ref.raw, text)
		}
		return nil
	},
}

type lookupRef struct {
	raw       string
	namespace string
	key       string
}

func parseLookupRef(arg, defaultNamespace string) lookupRef {
	if ns, key, ok := strings.Cut(arg, ":"); ok && ns != "" {
		return lookupRef{raw: arg, namespace: ns, key: key}
	}
	return lookupRef{raw: arg, namespace: defaultNamespace, key: arg}
}

// lookupNamespaces lists the namespaces referenced by refs plus extra, deduplicated in order.
func lookupNamespaces(refs []lookupRef, extra []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(ns string) {
		if ns != "" && !seen[ns] {
			seen[ns] = true
			out = append(out, ns)
		}
	}
	for _, ref := range refs {
		add(ref.namespace)
	}
	for _, ns := range extra {
		add(ns)
	}
	return out
}

func loadLookupCatalog() (*i18n.Catalog, error) {
	if lookupCatalogDir == "" {
		return i18n.BundledCatalog()
	}
	catalog, err := i18n.LoadCatalog(os.DirFS(lookupCatalogDir))
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", lookupCatalogDir, err)
	}
	return catalog, nil
}

func init() {
	i18nLookupCmd.Flags().StringVar(&lookupBaseURL, "base-url", "http://localhost:8080", "server serving /api/translations")
	i18nLookupCmd.Flags().StringVarP(&lookupLocale, "locale", "l", i18n.DefaultLanguage, "locale, reduced to its base language")
	i18nLookupCmd.Flags().StringVarP(&lookupNamespace, "namespace", "n", "common", "translation namespace")
	i18nLookupCmd.Flags().StringVar(&lookupCatalogDir, "catalog", "", "directory of exported {lang}/{namespace}.json files (defaults to the bundled catalog)")
	i18nLookupCmd.Flags().BoolVar(&lookupNoFallback, "no-fallback", false, "ignore static strings")
	i18nLookupCmd.Flags().BoolVar(&lookupHybrid, "hybrid", false, "prefer dynamic strings per top-level segment, static otherwise")
	i18nLookupCmd.Flags().StringSliceVarP(&lookupParams, "param", "p", nil, "interpolation params as name=value")
	i18nLookupCmd.Flags().StringSliceVar(&lookupPreload, "preload", nil, "extra namespaces to fetch alongside the ones the keys reference")
	i18nLookupCmd.Flags().DurationVar(&lookupTimeout, "timeout", 5*time.Second, "request timeout")

	i18nCmd.AddCommand(i18nLookupCmd)
	rootCmd.AddCommand(i18nCmd)
}
