package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when a locale cannot be parsed.
const DefaultLanguage = "en"

// BaseLanguage reduces a locale such as en-BE or zh-Hant-TW to its language subtag.
func BaseLanguage(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return DefaultLanguage
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		if i := strings.IndexAny(locale, "-_"); i > 0 {
			return strings.ToLower(locale[:i])
		}
		return strings.ToLower(locale)
	}
	base, _ := tag.Base()
	return base.String()
}
