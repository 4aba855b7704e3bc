package pattern

import (
	"regexp"
	"strings"
	"sync"
)

// globCache caches compiled glob translations
var globCache sync.Map

// Glob reports whether a slash-separated relative path matches the
// glob pattern. Supported wildcards: `**` matches any number of path
// segments, `*` matches within a single segment, `?` matches a single
// character other than the separator.
func Glob(pattern, path string) bool {
	re, err := compileGlob(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

// GlobAny reports whether the path matches any pattern in the list.
func GlobAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if Glob(p, path) {
			return true
		}
	}
	return false
}

func compileGlob(pattern string) (*regexp.Regexp, error) {
	if cached, ok := globCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(globToRegexp(pattern))
	if err != nil {
		return nil, err
	}

	globCache.Store(pattern, re)
	return re, nil
}

func globToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("^")

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				// "**/" collapses to "zero or more leading segments";
				// a bare "**" swallows the rest of the path
				if i+2 < len(runes) && runes[i+2] == '/' {
					b.WriteString(`(?:.*/)?`)
					i += 2
				} else {
					b.WriteString(`.*`)
					i++
				}
			} else {
				b.WriteString(`[^/]*`)
			}
		case '?':
			b.WriteString(`[^/]`)
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}

	b.WriteString("$")
	return b.String()
}
