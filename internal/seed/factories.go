// Package seed creates demo data for development and testing: accounts in
// the relational database, pins and reviews in the realtime store.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"lokal/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Metro Manila bounding box, roughly. Seeded pins land inside it so a demo
// map opens onto something.
const (
	baseLat  = 14.40
	baseLng  = 120.93
	spanLat  = 0.35
	spanLng  = 0.25
	maxDays  = 90
	password = "password123"
)

var spotNames = []string{
	"Lomi King", "Tita Fely's Carinderia", "Kapihan sa Kanto", "The Rooftop Deck",
	"Bayside Tambayan", "Silog Republic", "Kwek-Kwek Corner", "Halo-Halo Haven",
	"The Secret Garden", "Bike Trail Lookout", "Old Wall Walk", "Sunset Baywalk",
	"Taho Stop", "Isaw Alley", "Mango Shake Shack", "Hilltop Viewpoint",
	"Riverside Picnic Grove", "The Reading Nook Cafe", "Night Market Row",
	"Plaza Merienda", "Ihaw-Ihaw sa Looban", "Falls Trailhead",
}

var reviewPhrases = []string{
	"Sulit! Worth every peso.",
	"Hidden gem talaga. Crowd-free on weekdays.",
	"Solid spot for merienda with the barkada.",
	"Parking is rough but the food makes up for it.",
	"Go early, lines get long after sunset.",
	"The view alone is worth the trip.",
	"Prices went up a bit but still good value.",
	"Staff were super friendly. Will come back.",
}

// Factory builds randomized domain entities. It does not persist anything;
// the Seeder owns writes.
type Factory struct {
	rng *rand.Rand
}

// NewFactory creates a Factory. A fixed seed gives reproducible demo data;
// pass 0 to randomize.
func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	return &Factory{rng: rand.New(rand.NewSource(seed))}
}

// BuildUser constructs an account with a deterministic username-N handle and
// the shared demo password (hashed by the Seeder).
func (f *Factory) BuildUser(n int) *models.User {
	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	return &models.User{
		Username:    fmt.Sprintf("%s%s%d", first, last, n),
		Email:       fmt.Sprintf("%s.%s.%d@example.com", first, last, n),
		DisplayName: first + " " + last,
		Avatar:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s%d", first, n),
	}
}

// BuildPinRecord constructs a pin authored by user, placed somewhere in the
// seeded map area with a created-at spread over the past weeks.
func (f *Factory) BuildPinRecord(user *models.User) *models.PinRecord {
	name := spotNames[f.rng.Intn(len(spotNames))]
	category := models.Categories[f.rng.Intn(len(models.Categories))]

	rec := &models.PinRecord{
		Title:       name,
		Description: gofakeit.Sentence(12),
		Category:    category,
		Lat:         baseLat + f.rng.Float64()*spanLat,
		Lng:         baseLng + f.rng.Float64()*spanLng,
		Images:      []string{},
		Author:      user.Snapshot(),
		CreatedAt:   f.pastTimestamp(),
	}
	for i := 0; i < f.rng.Intn(3); i++ {
		rec.Images = append(rec.Images,
			fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID()))
	}
	return rec
}

// BuildReviewRecord constructs a review by user with a half-step rating
// biased toward the friendly end of the scale.
func (f *Factory) BuildReviewRecord(user *models.User) *models.ReviewRecord {
	// Half steps from 2.5 to 5.0.
	rating := 2.5 + float64(f.rng.Intn(6))*0.5
	snap := user.Snapshot()
	return &models.ReviewRecord{
		UserID:      snap.UID,
		UserName:    snap.Name,
		UserPhoto:   snap.Photo,
		Rating:      rating,
		Description: reviewPhrases[f.rng.Intn(len(reviewPhrases))],
		CreatedAt:   f.pastTimestamp(),
	}
}

func (f *Factory) pastTimestamp() int64 {
	back := time.Duration(f.rng.Intn(maxDays*24)) * time.Hour
	return time.Now().Add(-back).UnixMilli()
}
