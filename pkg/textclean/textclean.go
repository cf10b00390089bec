// Package textclean normalizes raw post text before it is stored or scored.
//
// Normalize folds text to lowercase ASCII words separated by single spaces.
// URLs, email addresses, handles, digits, currency, punctuation and emoji are
// removed, and retweet markers are dropped. Applying it twice gives the same
// result as applying it once.
package textclean

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern     = regexp.MustCompile(`(?i)https?://\S+|www\.\S+`)
	emailPattern   = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	handlePattern  = regexp.MustCompile(`@\w+`)
	nonWordPattern = regexp.MustCompile(`[^a-z\s]+`)
	retweetPattern = regexp.MustCompile(`\brt\b`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Normalize returns the cleaned form of text.
func Normalize(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = foldASCII(text)
	text = strings.ToLower(text)

	text = urlPattern.ReplaceAllString(text, " ")
	text = emailPattern.ReplaceAllString(text, " ")
	text = handlePattern.ReplaceAllString(text, " ")
	text = nonWordPattern.ReplaceAllString(text, "")
	text = retweetPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// foldASCII strips diacritics and drops whatever still falls outside ASCII.
func foldASCII(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
