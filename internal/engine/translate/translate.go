package translate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rendis/yelptap/internal/engine/geo"
)

// DefaultEndpoint is the business search endpoint of the API.
const DefaultEndpoint = "https://api.yelp.com/v3/businesses/search"

// ErrInvalidQuery wraps every translation failure.
var ErrInvalidQuery = errors.New("invalid query")

// renames are applied in order as plain substring replacements over the raw
// query; later entries rely on earlier ones having run.
var renames = []struct{ web, api string }{
	{"find_desc", "term"},
	{"find_loc", "location"},
	{"cflt", "categories"},
	{"sortby", "sort_by"},
	{"attrs", "attributes"},
	{"open_now", "open_at"},
	{"open_time", "open_at"},
}

// droppedFragments carry paging/session state the API has no use for.
var droppedFragments = []string{"&ns=1", "&start=0"}

// droppedParams are deselected attributes; "attrs" has already been
// rewritten inside the name by the time they are looked at.
var droppedParams = []string{"ed_attributes", "ed_attrs"}

// attributeAliases maps web attribute names to their API spelling.
var attributeAliases = map[string]string{
	"OnlineMessageThisBusiness": "request_a_quote",
	"ActiveDeal":                "deals",
}

const priceToken = "RestaurantsPriceRange2."

// Options configures a Translator. Zero values select defaults.
type Options struct {
	Endpoint string
	// Now is the clock used for open_at; defaults to time.Now.
	Now func() time.Time
	// Location fixes the Monday 00:00 week boundary; defaults to UTC.
	Location *time.Location
	// LegacyAttributeJoin glues residual attributes together without
	// separators, the way older consumers of this tool expect.
	LegacyAttributeJoin bool
}

// Translator rewrites web search query strings into API search URLs.
type Translator struct {
	endpoint    string
	now         func() time.Time
	loc         *time.Location
	legacyAttrs bool
}

func New(opts Options) *Translator {
	t := &Translator{
		endpoint:    opts.Endpoint,
		now:         opts.Now,
		loc:         opts.Location,
		legacyAttrs: opts.LegacyAttributeJoin,
	}
	if t.endpoint == "" {
		t.endpoint = DefaultEndpoint
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.loc == nil {
		t.loc = time.UTC
	}
	return t
}

// Translate uses default options.
func Translate(webQuery string) (string, error) {
	return New(Options{}).Translate(webQuery)
}

// Translate returns the API search URL equivalent to webQuery, which may be
// the bare query string or the whole browser URL.
func (t *Translator) Translate(webQuery string) (string, error) {
	p, err := t.Params(webQuery)
	if err != nil {
		return "", err
	}
	out := t.endpoint + "?" + p.Encode()
	return strings.ReplaceAll(out, "&l=", "&location="), nil
}

// Params runs the rewrite pipeline and returns the API parameters.
func (t *Translator) Params(webQuery string) (*Params, error) {
	raw := webQuery
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	}
	for _, r := range renames {
		raw = strings.ReplaceAll(raw, r.web, r.api)
	}
	for _, f := range droppedFragments {
		raw = strings.ReplaceAll(raw, f, "")
	}

	p, err := ParseParams(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	for _, n := range droppedParams {
		p.Del(n)
	}

	if err := convertLocation(p); err != nil {
		return nil, err
	}
	t.convertPrice(p)
	if err := t.convertOpenAt(p); err != nil {
		return nil, err
	}
	return p, nil
}

// convertLocation resolves the "l" parameter, which wins over "location".
// "g:" values are map viewports and become a lat/lng/radius circle; anything
// else is a neighborhood path such as "p:CA:San_Francisco::Mission".
func convertLocation(p *Params) error {
	l, ok := p.Get("l")
	if !ok {
		return nil
	}
	p.Del("location")

	if rest, isGeo := strings.CutPrefix(l, "g:"); isGeo {
		box, err := geo.ParseViewport(rest)
		if err != nil {
			return fmt.Errorf("%w: l: %v", ErrInvalidQuery, err)
		}
		c := box.Circle()
		p.Del("l")
		p.Set("latitude", strconv.FormatFloat(c.Lat, 'f', -1, 64))
		p.Set("longitude", strconv.FormatFloat(c.Lng, 'f', -1, 64))
		p.Set("radius", strconv.Itoa(c.Radius))
		return nil
	}

	p.Set("l", neighborhood(strings.ReplaceAll(l, "p:", "")))
	p.Rename("l", "location")
	return nil
}

// neighborhood reverses a colon path into a comma list, most specific first.
func neighborhood(path string) string {
	parts := strings.Split(path, ":")
	out := make([]string, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			out = append(out, parts[i])
		}
	}
	return strings.Join(out, ",")
}

// convertPrice pulls price tiers out of attributes. price is always set,
// possibly empty.
func (t *Translator) convertPrice(p *Params) {
	var tiers []string
	if attrs, ok := p.Get("attributes"); ok {
		for tier := 1; tier <= 4; tier++ {
			tok := priceToken + strconv.Itoa(tier)
			if strings.Contains(attrs, tok) {
				tiers = append(tiers, strconv.Itoa(tier))
				attrs = strings.ReplaceAll(attrs, tok, "")
			}
		}
		if rest := t.residualAttributes(attrs); rest != "" {
			p.Set("attributes", rest)
		} else {
			p.Del("attributes")
		}
	}
	p.Set("price", strings.Join(tiers, ","))
}

func (t *Translator) residualAttributes(attrs string) string {
	parts := strings.Split(attrs, ",")
	if t.legacyAttrs {
		return strings.Join(parts, "")
	}
	out := make([]string, 0, len(parts))
	for _, a := range parts {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if alias, ok := attributeAliases[a]; ok {
			a = alias
		}
		out = append(out, a)
	}
	return strings.Join(out, ",")
}

// convertOpenAt turns minutes since Monday 00:00 into an absolute Unix time
// in the current week.
func (t *Translator) convertOpenAt(p *Params) error {
	v, ok := p.Get("open_at")
	if !ok {
		return nil
	}
	minutes, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
	if err != nil {
		return fmt.Errorf("%w: open_at %q is not a minute offset", ErrInvalidQuery, v)
	}
	ts := OpenAt(uint32(minutes), t.now(), t.loc)
	p.Set("open_at", strconv.FormatInt(ts, 10))
	return nil
}
