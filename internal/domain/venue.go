package domain

import (
	"strings"
	"time"
)

// Locatable is the capability the ranking engine needs from a venue:
// a fixed coordinate and the text a search query matches against.
type Locatable interface {
	Location() GeoPoint
	SearchText() string
}

// Categorized is implemented by venues that carry category tags.
type Categorized interface {
	CategoryTags() []string
}

// Mall is a physical shopping center.
type Mall struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	City       string   `json:"city,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	Geo        GeoPoint `json:"geo"`
	Categories []string `json:"categories,omitempty"`
	StoreCount int      `json:"store_count,omitempty"`
}

func (m Mall) Location() GeoPoint { return m.Geo }

// SearchText joins the fields the mall list screen searches over.
func (m Mall) SearchText() string { return m.Name + " " + m.Address }

func (m Mall) CategoryTags() []string { return m.Categories }

// Store is a shop inside a mall. Stores have no coordinate of their own;
// proximity is always the enclosing mall's.
type Store struct {
	ID          string   `json:"id"`
	MallID      string   `json:"mall_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Floor       string   `json:"floor,omitempty"`
	LogoURL     string   `json:"logo_url,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

func (s Store) SearchText() string { return s.Name + " " + s.Description }

func (s Store) CategoryTags() []string { return s.Categories }

// Promotion is a time-bounded offer from a store, flattened with the
// enclosing mall's name and coordinate so it can be ranked like a mall.
type Promotion struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"store_id"`
	MallID      string    `json:"mall_id"`
	MallName    string    `json:"mall_name,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Geo         GeoPoint  `json:"geo"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

func (p Promotion) Location() GeoPoint { return p.Geo }

// SearchText joins the fields the promotions feed searches over.
func (p Promotion) SearchText() string {
	return p.Title + " " + p.Description + " " + p.MallName
}

// Active reports whether the promotion's end date is strictly after now.
func (p Promotion) Active(now time.Time) bool { return p.EndDate.After(now) }

// ActivePromotions keeps promotions whose end date is strictly in the
// future according to the package clock. Already-started is not required;
// upcoming promotions are shown too.
func ActivePromotions(promos []Promotion) []Promotion {
	now := clock.Now()
	out := make([]Promotion, 0, len(promos))
	for _, p := range promos {
		if p.Active(now) {
			out = append(out, p)
		}
	}
	return out
}

// FilterByCategory keeps venues carrying the selected category tag,
// case-insensitively. An empty category keeps everything.
func FilterByCategory[T Categorized](venues []T, category string) []T {
	if category == "" {
		return venues
	}
	out := make([]T, 0, len(venues))
	for _, v := range venues {
		for _, tag := range v.CategoryTags() {
			if strings.EqualFold(tag, category) {
				out = append(out, v)
				break
			}
		}
	}
	return out
}
