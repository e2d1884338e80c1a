package extract

import (
	"regexp"
	"strings"
)

// MaxContentChars bounds every extracted document before it reaches the prompt.
const MaxContentChars = 8000

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	spaceRe  = regexp.MustCompile(`\s+`)
	titleRe  = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
)

// StripHTML is the crude regex normalizer used by the Q&A and product-launch
// strategies: drop script/style blocks, replace tags with spaces, collapse
// whitespace. It is not an HTML parser and does not decode entities.
func StripHTML(html string) string {
	s := scriptRe.ReplaceAllString(html, "")
	s = styleRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripTags removes tags only, for comment bodies that carry inline markup.
func stripTags(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// pageTitle returns the <title> text with suffix removed.
func pageTitle(html, suffix string) string {
	m := titleRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return strings.TrimSuffix(m[1], suffix)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
