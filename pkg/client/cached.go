package client

import (
	"context"
	"sort"

	"github.com/clickwire/clickwire/pkg/cache"
	"github.com/clickwire/clickwire/pkg/metrics"
	"github.com/clickwire/clickwire/pkg/types"
)

// CachedSelect executes the query on first use and stores its full result
// set indexed on the filter's field names; subsequent calls with the same
// query and field set filter locally without a round trip. Entries live
// until the client is discarded or the same key is re-added.
//
// The filter maps field names to predicates: cache.Eq for equality,
// cache.In for set membership (OR across the set), cache.Span for an
// inclusive range over integers or dates. Rows must satisfy every filtered
// field. Filtering on a field outside the original index set fails rather
// than degrading to a scan.
func (c *Client) CachedSelect(ctx context.Context, query string, filter cache.Filter) ([]types.Record, error) {
	fields := make([]string, 0, len(filter))
	for name := range filter {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	key := cache.Key(query, fields)
	if !c.cache.Has(key) {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		rows, err := c.Select(ctx, query)
		if err != nil {
			return nil, err
		}
		c.cache.Put(key, fields, rows)
	} else {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
	}

	return c.cache.Select(key, filter)
}
