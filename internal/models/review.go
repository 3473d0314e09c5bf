package models

// Review is a rating plus optional comment attached to a pin, stored at
// reviews/{pinId}/{reviewId}. Reviews are immutable once written.
type Review struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	UserName    string  `json:"userName,omitempty"`
	UserPhoto   string  `json:"userPhoto,omitempty"`
	Rating      float64 `json:"rating"`
	Description string  `json:"description,omitempty"`
	// CreatedAt is a server-assigned unix timestamp in milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// ReviewRecord is the shape persisted under reviews/{pinId}.
type ReviewRecord struct {
	UserID      string  `json:"userId"`
	UserName    string  `json:"userName,omitempty"`
	UserPhoto   string  `json:"userPhoto,omitempty"`
	Rating      float64 `json:"rating"`
	Description string  `json:"description,omitempty"`
	CreatedAt   int64   `json:"createdAt"`
}

// ValidRating reports whether r is on the 1-5 scale in half-star steps.
func ValidRating(r float64) bool {
	if r < 1 || r > 5 {
		return false
	}
	doubled := r * 2
	return doubled == float64(int64(doubled))
}
