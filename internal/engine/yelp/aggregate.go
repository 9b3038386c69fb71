package yelp

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/rendis/yelptap/internal/engine/translate"
	"github.com/rendis/yelptap/internal/model"
)

// Fetcher returns every business for an API query.
type Fetcher interface {
	FetchAll(ctx context.Context, apiQuery string) ([]model.Business, error)
}

// Variant is one keyword-extended copy of a base query.
type Variant struct {
	Keyword string
	Query   string
}

// Variants builds one query per distinct keyword with term set to
// "term keyword". An empty term falls back to the base query's own term.
// With no keywords the base query is the only variant.
func Variants(baseQuery, term string, keywords []string) ([]Variant, error) {
	base, err := translate.ParseParams(QueryPart(baseQuery))
	if err != nil {
		return nil, fmt.Errorf("parsing base query: %w", err)
	}
	if term == "" {
		term, _ = base.Get("term")
	}

	seen := make(map[string]bool)
	var out []Variant
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true

		p := base.Clone()
		p.Set("term", strings.TrimSpace(term+" "+kw))
		out = append(out, Variant{Keyword: kw, Query: QueryPart(p.Encode())})
	}
	if len(out) == 0 {
		out = append(out, Variant{Query: QueryPart(base.Encode())})
	}
	return out, nil
}

// Aggregator runs variant searches and merges them into one Table.
type Aggregator struct {
	Fetcher Fetcher
	// Concurrency bounds in-flight variants; values below 1 mean serial.
	Concurrency int
	Logger      *log.Logger
	Stats       *Stats
	// OnVariant is called after each variant is merged.
	OnVariant func(v Variant, found int)
}

// SearchVariants counts, for every business, how many keyword variants of
// baseQuery returned it. A business listed twice within one variant still
// counts once for it. The first failing variant cancels the rest and its
// error is returned.
func (a *Aggregator) SearchVariants(ctx context.Context, baseQuery, term string, keywords []string) (*Table, error) {
	variants, err := Variants(baseQuery, term, keywords)
	if err != nil {
		return nil, err
	}
	logger := a.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if a.Stats != nil {
		a.Stats.VariantsTotal.Store(int64(len(variants)))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conc := a.Concurrency
	if conc < 1 {
		conc = 1
	}

	table := NewTable()
	sem := make(chan struct{}, conc)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for _, v := range variants {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(v Variant) {
			defer wg.Done()
			defer func() { <-sem }()

			found, err := a.runVariant(ctx, table, v)
			if err != nil {
				logger.Printf("ERROR variant=%q err=%v", v.Keyword, err)
				errOnce.Do(func() {
					firstErr = fmt.Errorf("variant %q: %w", v.Keyword, err)
					cancel()
				})
				return
			}
			logger.Printf("VARIANT keyword=%q businesses=%d", v.Keyword, found)
			if a.Stats != nil {
				a.Stats.VariantsDone.Add(1)
			}
			if a.OnVariant != nil {
				a.OnVariant(v, found)
			}
		}(v)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func (a *Aggregator) runVariant(ctx context.Context, table *Table, v Variant) (int, error) {
	businesses, err := a.Fetcher.FetchAll(ctx, v.Query)
	if err != nil {
		return 0, err
	}
	seen := make(map[model.Key]bool, len(businesses))
	for _, b := range businesses {
		k := b.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		table.Add(b, 1)
	}
	return len(seen), nil
}
