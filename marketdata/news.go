package marketdata

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"stock-hub/models"
)

// Standardize fills defaults on provider articles: a stable ID derived
// from the URL (or title) when the provider gave none, source "unknown",
// and the current time for missing publish dates. Articles without both a
// title and URL are assumed dropped upstream. Output is sorted newest
// first.
func Standardize(articles []models.NewsArticle, now time.Time) []models.NewsArticle {
	out := make([]models.NewsArticle, 0, len(articles))
	for _, a := range articles {
		if a.ID == "" {
			a.ID = stableID(a)
		}
		if a.Source == "" {
			a.Source = "unknown"
		}
		if a.PublishedAt.IsZero() {
			a.PublishedAt = now
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}

// MergeNews combines provider results in priority order, dropping
// duplicate URLs so the higher-priority provider's copy wins, capped at
// limit articles. The merged list is sorted newest first.
func MergeNews(limit int, lists ...[]models.NewsArticle) []models.NewsArticle {
	seen := make(map[string]bool)
	merged := make([]models.NewsArticle, 0)

	for _, list := range lists {
		for _, a := range list {
			if a.URL != "" && seen[a.URL] {
				continue
			}
			if a.URL != "" {
				seen[a.URL] = true
			}
			merged = append(merged, a)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// stableID hashes the URL (or, failing that, the title) so the same
// article maps to the same ID across fetches.
func stableID(a models.NewsArticle) string {
	h := fnv.New64a()
	if a.URL != "" {
		h.Write([]byte(a.URL))
	} else {
		h.Write([]byte(a.Title))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
