// Package ads interleaves synthetic promoted entries into ordered content
// lists following a cyclic numeric pattern. Interleave is pure: fixed
// inputs produce byte-identical output, so a re-render never shuffles ads.
package ads

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"

	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
)

// CountFunc reports whether an item increments the insertion counter.
type CountFunc func(model.FeedItem) bool

// BlockFunc reports whether an item forbids an insertion directly after
// it, regardless of the counter.
type BlockFunc func(model.FeedItem) bool

// CreateFunc produces the synthetic ad for insertion number seq. Returning
// false skips the insertion (the counter still resets so the cadence
// holds once ads become available).
type CreateFunc func(seq int) (model.FeedItem, bool)

// Interleave walks items in order, inserting one ad each time the count
// of counted items reaches the current pattern value. The pattern cycles;
// non-positive pattern values are clamped to 1. No ad is ever placed
// after the final item.
func Interleave(items []model.FeedItem, pattern []int, startPatternIndex int, isCounted CountFunc, isBlockedAfter BlockFunc, createAd CreateFunc) []model.FeedItem {
	if len(items) == 0 || len(pattern) == 0 || createAd == nil {
		return append([]model.FeedItem(nil), items...)
	}

	idx := startPatternIndex % len(pattern)
	if idx < 0 {
		idx += len(pattern)
	}

	out := make([]model.FeedItem, 0, len(items)+len(items)/max(1, pattern[idx]))
	counted := 0
	seq := 0
	for i, item := range items {
		out = append(out, item)
		if isCounted == nil || isCounted(item) {
			counted++
		}
		last := i == len(items)-1
		blocked := isBlockedAfter != nil && isBlockedAfter(item)
		if counted >= clamp(pattern[idx]) && !last && !blocked {
			if ad, ok := createAd(seq); ok {
				out = append(out, ad)
			}
			seq++
			counted = 0
			idx = (idx + 1) % len(pattern)
		}
	}
	return out
}

func clamp(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// RandomStart picks the session's starting pattern index. Called once per
// viewing session, never per render.
func RandomStart(pattern []int) int {
	if len(pattern) == 0 {
		return 0
	}
	return rand.Intn(len(pattern))
}

// PoolFetcher loads the promotable pool for a placement.
type PoolFetcher interface {
	FetchPromotablePool(ctx context.Context, placement string) ([]model.PromotedItem, error)
}

// Pool cycles through promoted items by insertion sequence. An empty pool
// creates nothing, which Interleave treats as "skip the slot".
type Pool struct {
	items []model.PromotedItem
}

// LoadPool fetches the pool for a placement. Fetch failure degrades to an
// empty pool; the feed renders without ads rather than erroring.
func LoadPool(ctx context.Context, fetcher PoolFetcher, placement string) *Pool {
	if fetcher == nil {
		return &Pool{}
	}
	items, err := fetcher.FetchPromotablePool(ctx, placement)
	if err != nil {
		slog.Error("promotable pool fetch failed", "placement", placement, "error", err)
		return &Pool{}
	}
	return &Pool{items: items}
}

func NewPool(items []model.PromotedItem) *Pool {
	return &Pool{items: append([]model.PromotedItem(nil), items...)}
}

func (p *Pool) Empty() bool {
	return len(p.items) == 0
}

// CreateAd selects the pool entry for insertion seq by modulo. The
// insertion sequence is folded into the id so repeated insertions of the
// same creative stay distinguishable without breaking reproducibility.
func (p *Pool) CreateAd(seq int) (model.FeedItem, bool) {
	if len(p.items) == 0 {
		return model.FeedItem{}, false
	}
	creative := p.items[seq%len(p.items)]
	creative.ID = creative.ID + ":" + strconv.Itoa(seq)
	return model.AdItem(creative), true
}
