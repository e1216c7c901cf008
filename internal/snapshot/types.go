// Package snapshot serves the event dataset shown on the dashboard.
package snapshot

type Category string

const (
	CategoryUSNaval   Category = "US_NAVAL"
	CategoryUSAir     Category = "US_AIR"
	CategoryUSBases   Category = "US_BASES"
	CategoryIsrael    Category = "ISRAEL"
	CategoryIran      Category = "IRAN"
	CategoryProxies   Category = "PROXIES"
	CategoryRegional  Category = "REGIONAL"
	CategoryDiplomacy Category = "DIPLOMACY"
)

type Source struct {
	Name           string `json:"name"`
	URL            string `json:"url,omitempty"`
	PublishedAtUTC string `json:"publishedAtUtc"`
	Reliability    *int   `json:"reliability,omitempty"` // 0-100
}

type Location struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name"`
}

type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// Item is one event record.
type Item struct {
	ID         string     `json:"id"`
	Category   Category   `json:"category"`
	Title      string     `json:"title" validate:"required"`
	Summary    string     `json:"summary"`
	Location   *Location  `json:"location,omitempty"`
	TimeWindow TimeWindow `json:"timeWindow"`
	Observed   bool       `json:"observed"`
	Confidence float64    `json:"confidence"`
	Sources    []Source   `json:"sources"`
	Tags       []string   `json:"tags"`
}

// LocationName returns the location label or "" when unknown.
func (i Item) LocationName() string {
	if i.Location == nil {
		return ""
	}
	return i.Location.Name
}

// Data is the full snapshot document.
type Data struct {
	APIVersion     string `json:"apiVersion"`
	GeneratedAtUTC string `json:"generatedAtUtc"`
	Items          []Item `json:"items" validate:"required"`
}

// Version identifies a snapshot for cache keys and chat context references.
func (d *Data) Version() string {
	return d.APIVersion + "@" + d.GeneratedAtUTC
}
