package snapshot

import "encoding/json"

// compactSource and compactItem are the abbreviated shapes placed in prompts.
type compactSource struct {
	N string `json:"n"`
	U string `json:"u,omitempty"`
	D string `json:"d"`
}

type compactItem struct {
	T       string          `json:"t"`
	C       Category        `json:"c,omitempty"`
	S       string          `json:"s"`
	Sources []compactSource `json:"sources"`
}

// Compact serializes items into minified prompt context. withCategory adds
// the category field.
func Compact(items []Item, withCategory bool) string {
	out := make([]compactItem, 0, len(items))
	for _, it := range items {
		ci := compactItem{T: it.Title, S: it.Summary, Sources: make([]compactSource, 0, len(it.Sources))}
		if withCategory {
			ci.C = it.Category
		}
		for _, src := range it.Sources {
			ci.Sources = append(ci.Sources, compactSource{N: src.Name, U: src.URL, D: src.PublishedAtUTC})
		}
		out = append(out, ci)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "[]"
	}
	return string(data)
}
