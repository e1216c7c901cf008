package client

import (
	"context"

	"github.com/akio-byte/navaltutka/internal/cache"
	"github.com/akio-byte/navaltutka/internal/snapshot"
)

type RankItem struct {
	ID   string   `json:"id"`
	T    string   `json:"t"`
	S    string   `json:"s"`
	Tags []string `json:"tags,omitempty"`
}

type Ranking struct {
	IDs []string `json:"ids"`
}

// Cached answers from rc when a successful response for key is still fresh
// and otherwise runs call. Failed responses are returned but never stored.
func Cached[T any](ctx context.Context, rc *cache.Cache[Response[T]], key string, call func(context.Context) Response[T]) Response[T] {
	resp, _ := rc.GetOrCompute(ctx, key, func(ctx context.Context) (Response[T], error) {
		return call(ctx), nil
	})
	return resp
}

// RankCacheKey keys a ranking by query and snapshot generation time, so a new
// snapshot never reuses an old ranking.
func RankCacheKey(query string, data *snapshot.Data) string {
	return "search-" + query + "-" + data.GeneratedAtUTC
}

// MiniItems is the compact descriptor list a ranking request sends.
func MiniItems(data *snapshot.Data) []RankItem {
	out := make([]RankItem, 0, len(data.Items))
	for _, it := range data.Items {
		out = append(out, RankItem{ID: it.ID, T: it.Title, S: it.Summary, Tags: it.Tags})
	}
	return out
}

// Rank ranks the snapshot for query through rc and resolves the returned
// identifiers back to items, preserving the ranked order.
func (c *Client) Rank(ctx context.Context, rc *cache.Cache[Response[Ranking]], query string, data *snapshot.Data) ([]snapshot.Item, Response[Ranking]) {
	resp := Cached(ctx, rc, RankCacheKey(query, data), func(ctx context.Context) Response[Ranking] {
		return Call[Ranking](ctx, c, EndpointRank, map[string]any{
			"query":     query,
			"itemsMini": MiniItems(data),
		})
	})

	byID := make(map[string]snapshot.Item, len(data.Items))
	for _, it := range data.Items {
		byID[it.ID] = it
	}
	items := make([]snapshot.Item, 0, len(resp.Data.IDs))
	for _, id := range resp.Data.IDs {
		if it, ok := byID[id]; ok {
			items = append(items, it)
		}
	}
	return items, resp
}
