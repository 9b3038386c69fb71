package reviews

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultSelector locates the "N results" header of a review search.
const DefaultSelector = "div.feed div.feed_filters h3.feed_search-results"

// ParseResultCount sums the leading integer of every header matching
// selector. Headers whose text does not start with a number add nothing.
// found is false when no header matched at all.
func ParseResultCount(doc *goquery.Document, selector string) (count int, found bool) {
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		found = true
		if n, ok := leadingInt(sel.Text()); ok {
			count += n
		}
	})
	return count, found
}

// leadingInt reads "1,234 results" as 1234.
func leadingInt(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if i := strings.IndexFunc(text, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' }); i >= 0 {
		text = text[:i]
	}
	text = strings.ReplaceAll(text, ",", "")
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
