package translate

import (
	"fmt"
	"net/url"
	"strings"
)

// Params is an ordered query-parameter set with unique names.
// A name that was never set or was deleted is absent; an empty
// value is present but skipped by Encode.
type Params struct {
	names  []string
	values map[string]string
}

// NewParams returns an empty set.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// ParseParams decodes a raw query string. Names keep the position of their
// first appearance; on repeats the last value wins.
func ParseParams(raw string) (*Params, error) {
	p := NewParams()
	for _, piece := range strings.Split(raw, "&") {
		if piece == "" {
			continue
		}
		k, v, _ := strings.Cut(piece, "=")
		if strings.Contains(k, ";") {
			return nil, fmt.Errorf("invalid semicolon separator in %q", piece)
		}
		name, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("decoding name %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("decoding value of %q: %w", name, err)
		}
		if name == "" {
			continue
		}
		p.Set(name, value)
	}
	return p, nil
}

func (p *Params) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

func (p *Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Set replaces the value of name, appending it if absent.
func (p *Params) Set(name, value string) {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = value
}

func (p *Params) Del(name string) {
	if _, ok := p.values[name]; !ok {
		return
	}
	delete(p.values, name)
	for i, n := range p.names {
		if n == name {
			p.names = append(p.names[:i], p.names[i+1:]...)
			break
		}
	}
}

// Rename moves the value of from to to, keeping from's position.
// An existing to is discarded.
func (p *Params) Rename(from, to string) {
	v, ok := p.values[from]
	if !ok || from == to {
		return
	}
	p.Del(to)
	delete(p.values, from)
	p.values[to] = v
	for i, n := range p.names {
		if n == from {
			p.names[i] = to
			break
		}
	}
}

// Names returns parameter names in emission order.
func (p *Params) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

func (p *Params) Len() int {
	return len(p.names)
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	c := NewParams()
	for _, n := range p.names {
		c.Set(n, p.values[n])
	}
	return c
}

// Encode emits "&name=value" for every parameter with a non-empty value.
func (p *Params) Encode() string {
	var b strings.Builder
	for _, n := range p.names {
		v := p.values[n]
		if v == "" {
			continue
		}
		b.WriteByte('&')
		b.WriteString(escape(n))
		b.WriteByte('=')
		b.WriteString(escape(v))
	}
	return b.String()
}

// escape is query escaping that leaves commas readable; the API splits
// list values on them.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "%2C", ",")
}
