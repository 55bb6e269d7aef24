// Package ranking orders feeds. Scores are computed at read time and never
// stored.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ageDivisor converts entity age in seconds into score units.
const ageDivisor = 45000.0

// Score combines the vote differential and age of an entity.
//
// The age term is added, so for an equal differential an older entity
// outranks a newer one.
// TODO: confirm with product whether age should be subtracted; kept as-is
// because existing feeds are ordered this way.
func Score(upvotes, downvotes int, createdAt, now time.Time) float64 {
	net := upvotes - downvotes
	magnitude := math.Log10(math.Max(math.Abs(float64(net)), 1))

	var sign float64
	switch {
	case net > 0:
		sign = 1
	case net < 0:
		sign = -1
	}

	age := now.Sub(createdAt).Seconds()
	if age < 0 {
		age = 0
	}
	return sign*magnitude + age/ageDivisor
}

// Order is a feed sort mode.
type Order string

const (
	OrderHot           Order = "hot"
	OrderTop           Order = "top"
	OrderNew           Order = "new"
	OrderControversial Order = "controversial"
)

// ParseOrder maps a query string value to an Order. Empty means hot.
func ParseOrder(raw string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(raw))); o {
	case "":
		return OrderHot, nil
	case OrderHot, OrderTop, OrderNew, OrderControversial:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", raw)
}

// Item is one rankable row of a feed page.
type Item struct {
	ID        int
	Upvotes   int
	Downvotes int
	CreatedAt time.Time
}

// Sort orders items in place. Ties fall back to the higher id so pages are
// stable between requests.
func Sort(items []Item, order Order, now time.Time) {
	var less func(a, b Item) bool
	switch order {
	case OrderTop:
		less = func(a, b Item) bool {
			return a.Upvotes-a.Downvotes > b.Upvotes-b.Downvotes
		}
	case OrderNew:
		less = func(a, b Item) bool {
			return a.CreatedAt.After(b.CreatedAt)
		}
	case OrderControversial:
		less = func(a, b Item) bool {
			ca, cb := min(a.Upvotes, a.Downvotes), min(b.Upvotes, b.Downvotes)
			if ca != cb {
				return ca > cb
			}
			return a.Upvotes+a.Downvotes > b.Upvotes+b.Downvotes
		}
	default:
		scores := make(map[int]float64, len(items))
		for _, it := range items {
			scores[it.ID] = Score(it.Upvotes, it.Downvotes, it.CreatedAt, now)
		}
		less = func(a, b Item) bool {
			return scores[a.ID] > scores[b.ID]
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.ID > b.ID
	})
}
