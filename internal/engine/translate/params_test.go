package translate

import (
	"reflect"
	"testing"
)

func TestParseParamsOrderAndLastWins(t *testing.T) {
	p, err := ParseParams("b=1&a=2&b=3&&c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Names(); !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Fatalf("names = %v", got)
	}
	if v, _ := p.Get("b"); v != "3" {
		t.Fatalf("b = %q", v)
	}
	if v, ok := p.Get("c"); !ok || v != "" {
		t.Fatalf("c = %q, %v", v, ok)
	}
}

func TestParamsRenameKeepsPosition(t *testing.T) {
	p := NewParams()
	p.Set("term", "x")
	p.Set("location", "old")
	p.Set("l", "new")
	p.Set("price", "1")

	p.Rename("l", "location")
	if got := p.Names(); !reflect.DeepEqual(got, []string{"term", "location", "price"}) {
		t.Fatalf("names = %v", got)
	}
	if v, _ := p.Get("location"); v != "new" {
		t.Fatalf("location = %q", v)
	}
}

func TestParamsEncode(t *testing.T) {
	p := NewParams()
	p.Set("term", "Food & Drink")
	p.Set("price", "")
	p.Set("location", "San Francisco, CA")
	p.Set("categories", "bars,pubs")

	want := "&term=Food+%26+Drink&location=San+Francisco,+CA&categories=bars,pubs"
	if got := p.Encode(); got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestParamsCloneIsIndependent(t *testing.T) {
	p := NewParams()
	p.Set("term", "a")
	c := p.Clone()
	c.Set("term", "b")
	c.Set("extra", "1")
	if v, _ := p.Get("term"); v != "a" || p.Has("extra") {
		t.Fatalf("original mutated: %v", p.Names())
	}
	c.Del("term")
	if !p.Has("term") || c.Len() != 1 {
		t.Fatalf("del leaked: %v / %v", p.Names(), c.Names())
	}
}
