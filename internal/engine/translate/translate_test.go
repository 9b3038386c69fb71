package translate

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

// wednesday is 2024-01-10 15:30 UTC; the week began Monday 2024-01-08.
var wednesday = time.Date(2024, time.January, 10, 15, 30, 0, 0, time.UTC)

const mondayUnix = 1704672000

func fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestTranslator() *Translator {
	return New(Options{Now: fixed(wednesday)})
}

func TestTranslateTermAndLocation(t *testing.T) {
	out, err := newTestTranslator().Translate("find_desc=Food&find_loc=San+Francisco,+CA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, DefaultEndpoint+"?") {
		t.Errorf("missing endpoint prefix: %s", out)
	}
	if !strings.Contains(out, "term=Food&location=San+Francisco,+CA") {
		t.Errorf("output = %s", out)
	}
	for _, bad := range []string{"find_desc", "find_loc", "&l="} {
		if strings.Contains(out, bad) {
			t.Errorf("output contains %q: %s", bad, out)
		}
	}
}

func TestTranslateAcceptsFullURL(t *testing.T) {
	out, err := newTestTranslator().Translate("https://www.yelp.com/search?find_desc=Pizza&find_loc=Boston%2C+MA&ns=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := DefaultEndpoint + "?&term=Pizza&location=Boston,+MA"
	if out != want {
		t.Fatalf("got  %s\nwant %s", out, want)
	}
}

func TestTranslateRenames(t *testing.T) {
	p, err := newTestTranslator().Params("find_desc=bars&cflt=cocktailbars&sortby=rating&find_loc=NYC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{
		"term":       "bars",
		"categories": "cocktailbars",
		"sort_by":    "rating",
		"location":   "NYC",
	}
	for k, v := range want {
		if got, _ := p.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestTranslateDropsSessionMarkers(t *testing.T) {
	out, err := newTestTranslator().Translate("find_desc=tacos&ns=1&start=0&find_loc=Austin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "ns=") || strings.Contains(out, "start=") {
		t.Fatalf("session markers kept: %s", out)
	}
}

func TestTranslateDropsDeselectedAttributes(t *testing.T) {
	out, err := newTestTranslator().Translate("find_desc=tacos&ed_attrs=GoodForKids&find_loc=Austin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "ed_") || strings.Contains(out, "GoodForKids") {
		t.Fatalf("deselected attributes kept: %s", out)
	}
}

func TestTranslateGeoViewport(t *testing.T) {
	p, err := newTestTranslator().Params("find_desc=Food&find_loc=Somewhere&l=g:-122.38,37.80,-122.46,37.74")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Has("l") || p.Has("location") {
		t.Fatalf("l/location kept: %v", p.Names())
	}

	lat := mustFloat(t, p, "latitude")
	lng := mustFloat(t, p, "longitude")
	if abs(lat-37.77) > 1e-9 || abs(lng+122.42) > 1e-9 {
		t.Errorf("center = %v,%v", lat, lng)
	}
	r, _ := p.Get("radius")
	radius, err := strconv.Atoi(r)
	if err != nil {
		t.Fatalf("radius %q: %v", r, err)
	}
	if radius < 4800 || radius > 4900 {
		t.Errorf("radius = %d", radius)
	}
}

func TestTranslateGeoViewportIsCapped(t *testing.T) {
	p, err := newTestTranslator().Params("l=g:-70,45,-80,35")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, _ := p.Get("radius"); r != "40000" {
		t.Fatalf("radius = %s", r)
	}
}

func TestTranslateNeighborhood(t *testing.T) {
	out, err := newTestTranslator().Translate("find_desc=coffee&find_loc=San+Francisco&l=p:CA:San_Francisco::Mission")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "&location=Mission,San_Francisco,CA") {
		t.Fatalf("output = %s", out)
	}
	if strings.Contains(out, "&l=") || strings.Count(out, "location=") != 1 {
		t.Fatalf("output = %s", out)
	}
}

func TestNeighborhood(t *testing.T) {
	tests := map[string]string{
		"City:Neighborhood":      "Neighborhood,City",
		"CA:San_Francisco::Soma": "Soma,San_Francisco,CA",
		"::Oakland:":             "Oakland",
		"":                       "",
	}
	for in, want := range tests {
		if got := neighborhood(in); got != want {
			t.Errorf("neighborhood(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTranslatePrice(t *testing.T) {
	tests := []struct {
		attrs     string
		wantPrice string
	}{
		{"RestaurantsPriceRange2.2,RestaurantsPriceRange2.4", "2,4"},
		{"RestaurantsPriceRange2.1,RestaurantsPriceRange2.3", "1,3"},
		{"RestaurantsPriceRange2.3,RestaurantsPriceRange2.1", "1,3"},
		{"RestaurantsPriceRange2.4,RestaurantsPriceRange2.2,RestaurantsPriceRange2.3,RestaurantsPriceRange2.1", "1,2,3,4"},
	}
	for _, tt := range tests {
		out, err := newTestTranslator().Translate("find_desc=Food&attrs=" + tt.attrs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "price="+tt.wantPrice) {
			t.Errorf("attrs=%s: output = %s", tt.attrs, out)
		}
		if strings.Contains(out, "attributes") {
			t.Errorf("attrs=%s: attributes kept: %s", tt.attrs, out)
		}
	}
}

func TestTranslatePriceAlwaysSet(t *testing.T) {
	p, err := newTestTranslator().Params("find_desc=Food")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := p.Get("price")
	if !ok || v != "" {
		t.Fatalf("price = %q, %v", v, ok)
	}
	if strings.Contains(p.Encode(), "price") {
		t.Fatalf("empty price emitted: %s", p.Encode())
	}
}

func TestTranslateResidualAttributes(t *testing.T) {
	q := "find_desc=Food&attrs=GoodForKids,RestaurantsPriceRange2.2,ActiveDeal"

	p, err := newTestTranslator().Params(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := p.Get("attributes"); got != "GoodForKids,deals" {
		t.Errorf("attributes = %q", got)
	}

	legacy := New(Options{Now: fixed(wednesday), LegacyAttributeJoin: true})
	p, err = legacy.Params(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := p.Get("attributes"); got != "GoodForKidsActiveDeal" {
		t.Errorf("legacy attributes = %q", got)
	}
}

func TestTranslateOpenAt(t *testing.T) {
	for _, name := range []string{"open_now", "open_time"} {
		p, err := newTestTranslator().Params("find_desc=Food&" + name + "=600")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _ := p.Get("open_at")
		if want := strconv.Itoa(mondayUnix + 600*60); got != want {
			t.Errorf("%s: open_at = %s, want %s", name, got, want)
		}
	}
}

func TestTranslateOpenAtIsStable(t *testing.T) {
	tr := newTestTranslator()
	a, err := tr.Translate("open_now=1439")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := tr.Translate("open_now=1439")
	if a != b {
		t.Fatalf("same input, different output:\n%s\n%s", a, b)
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
	}{
		{"monday midnight", time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
		{"wednesday", wednesday},
		{"sunday late", time.Date(2024, 1, 14, 23, 59, 59, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStart(tt.now, time.UTC).Unix(); got != mondayUnix {
				t.Fatalf("WeekStart = %d, want %d", got, mondayUnix)
			}
		})
	}

	// 2024-01-08 02:00 UTC is still Sunday evening in New York.
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	ws := WeekStart(time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC), ny)
	if ws.Weekday() != time.Monday || ws.Day() != 1 {
		t.Fatalf("WeekStart in New York = %v", ws)
	}
}

func TestOpenAtWithinWeek(t *testing.T) {
	for _, minutes := range []uint32{0, 1, 600, 7*24*60 - 1} {
		ts := OpenAt(minutes, wednesday, time.UTC)
		if ts < mondayUnix || ts >= mondayUnix+7*24*3600 {
			t.Errorf("OpenAt(%d) = %d outside week", minutes, ts)
		}
	}
}

func TestTranslateInvalid(t *testing.T) {
	bad := []string{
		"find_desc=%zz",
		"find_desc=Food&l=g:a,b,c,d",
		"l=g:1,2,3",
		"find_desc=Food&open_now=soon",
		"open_time=-5",
		"a;b=c",
	}
	for _, q := range bad {
		_, err := newTestTranslator().Translate(q)
		if !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("Translate(%q) err = %v, want ErrInvalidQuery", q, err)
		}
	}
}

func TestTranslateSuppressesEmptyValues(t *testing.T) {
	out, err := newTestTranslator().Translate("find_desc=&find_loc=NYC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "term=") {
		t.Fatalf("empty term emitted: %s", out)
	}
}

func mustFloat(t *testing.T, p *Params, name string) float64 {
	t.Helper()
	v, ok := p.Get(name)
	if !ok {
		t.Fatalf("%s missing", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		t.Fatalf("%s = %q: %v", name, v, err)
	}
	return f
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
