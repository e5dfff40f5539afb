package stats

import (
	"sort"

	"github.com/verte-zerg/recall/internal/model"
)

// TopCardsByReviews returns the top N cards by total review count.
func TopCardsByReviews(aggs []model.CardAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	type item struct {
		key   string
		total int
	}
	items := make([]item, 0, len(aggs))
	for _, agg := range aggs {
		items = append(items, item{
			key:   agg.Key,
			total: agg.Correct + agg.Incorrect,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].total == items[j].total {
			return items[i].key < items[j].key
		}
		return items[i].total > items[j].total
	})
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].key)
	}
	return out
}
