// Package models contains data structures for the application's domain models.
package models

// Pin categories form a closed set; records carrying anything else are rejected
// at the service boundary.
const (
	CategoryFoodTrip  = "Food Trip"
	CategoryTambayan  = "Tambayan"
	CategoryPasyalan  = "Pasyalan"
	CategoryAdventure = "Adventure"
	CategoryHiddenGem = "Hidden Gem"
)

// Categories lists every valid pin category.
var Categories = []string{
	CategoryFoodTrip,
	CategoryTambayan,
	CategoryPasyalan,
	CategoryAdventure,
	CategoryHiddenGem,
}

// ValidCategory reports whether c is one of the closed category set.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// MaxPinImages caps the number of image URLs a single pin may carry.
const MaxPinImages = 10

// AuthorSnapshot is the author's identity copied into a pin at creation time.
// It is a snapshot, not a live reference: profile renames do not rewrite
// historical pins.
type AuthorSnapshot struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

// Pin is a user-submitted point of interest stored in the realtime store at
// pins/{id}. Hearts is derived from the sibling counter path pins/{id}/hearts
// and is merged in at the repository boundary (absent counter reads as 0).
type Pin struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Lat         float64        `json:"lat"`
	Lng         float64        `json:"lng"`
	Images      []string       `json:"images"`
	Hearts      int64          `json:"hearts"`
	Author      AuthorSnapshot `json:"author"`
	// CreatedAt is a server-assigned unix timestamp in milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// PinRecord is the shape persisted at pins/{id}. The heart counter lives at
// its own scalar path so counter transactions stay single-path.
type PinRecord struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Lat         float64        `json:"lat"`
	Lng         float64        `json:"lng"`
	Images      []string       `json:"images"`
	Author      AuthorSnapshot `json:"author"`
	CreatedAt   int64          `json:"createdAt"`
}
