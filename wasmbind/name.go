package wasmbind

import (
	"strings"
	"unicode"
)

// toKebabCase converts camelCase, PascalCase and snake_case names to WIT
// kebab-case. Acronyms stay together: parseHTTPHeader -> parse-http-header.
func toKebabCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	dash := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
			b.WriteByte('-')
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '_' || r == '-' || r == ' ':
			dash()
		case unicode.IsUpper(r):
			end := i + 1
			for end < len(runes) && unicode.IsUpper(runes[end]) {
				end++
			}
			// the last capital of a run starts the next word
			if end > i+1 && end < len(runes) && unicode.IsLower(runes[end]) {
				end--
			}
			dash()
			for _, u := range runes[i:end] {
				b.WriteRune(unicode.ToLower(u))
			}
			i = end - 1
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
