package reviews

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing html: %v", err)
	}
	return d
}

func header(text string) string {
	return `<div class="feed"><div class="feed_filters"><h3 class="feed_search-results">` + text + `</h3></div></div>`
}

func TestParseResultCount(t *testing.T) {
	tests := []struct {
		name  string
		html  string
		count int
		found bool
	}{
		{"single", header("12 results for fundraise"), 12, true},
		{"thousands", header(" 1,234 results "), 1234, true},
		{"two headers", header("3 results") + header("4 results"), 7, true},
		{"non numeric", header("No results"), 0, true},
		{"missing", `<div class="feed"><h3>5 results</h3></div>`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, found := ParseResultCount(doc(t, "<html><body>"+tt.html+"</body></html>"), DefaultSelector)
			if count != tt.count || found != tt.found {
				t.Errorf("got (%d, %v), want (%d, %v)", count, found, tt.count, tt.found)
			}
		})
	}
}

func TestKeywordURL(t *testing.T) {
	if got := keywordURL("https://www.yelp.com/biz/joes", "non profit"); got != "https://www.yelp.com/biz/joes?q=non+profit" {
		t.Errorf("got %s", got)
	}
	if got := keywordURL("https://h/biz/a?osq=x", "charity"); got != "https://h/biz/a?osq=x&q=charity" {
		t.Errorf("got %s", got)
	}
}
