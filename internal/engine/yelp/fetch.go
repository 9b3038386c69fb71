package yelp

import (
	"context"
	"fmt"

	"github.com/rendis/yelptap/internal/model"
)

// FetchAll walks every page of an API query and returns the businesses in
// page order. apiQuery may be a full API URL or just its parameters.
//
// The first page is always requested; after that paging continues while
// the next offset is below both the reported total and MaxResults.
func (c *Client) FetchAll(ctx context.Context, apiQuery string) ([]model.Business, error) {
	query := QueryPart(apiQuery)

	var all []model.Business
	for offset := 0; ; offset += PageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.SearchPage(ctx, query, offset)
		if err != nil {
			c.stats.addError()
			c.logger.Printf("ERROR offset=%d err=%v", offset, err)
			return nil, fmt.Errorf("fetching offset %d: %w", offset, err)
		}

		c.stats.addPage(len(page.Businesses))
		c.logger.Printf("PAGE offset=%d total=%d got=%d", offset, page.Total, len(page.Businesses))
		all = append(all, page.Businesses...)

		next := offset + PageSize
		if next >= page.Total || next >= MaxResults {
			break
		}
	}
	return all, nil
}

// PageCount is the number of requests FetchAll makes for a given total.
func PageCount(total int) int {
	if total > MaxResults {
		total = MaxResults
	}
	n := (total + PageSize - 1) / PageSize
	if n < 1 {
		n = 1
	}
	return n
}
