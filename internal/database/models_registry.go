package database

import "lokal/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Pins, reviews, and heart markers live in the realtime store, not here.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Image{},
	}
}
