package seed

import (
	"context"
	"fmt"
	"os"

	"lokal/internal/models"
	"lokal/internal/repository"

	"gopkg.in/yaml.v3"
)

// Preset is a curated set of spots loaded from YAML. Presets complement the
// randomized seeder with recognizable demo content.
type Preset struct {
	Name  string       `yaml:"name"`
	Spots []PresetSpot `yaml:"spots"`
}

// PresetSpot is one curated pin.
type PresetSpot struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Lat         float64  `yaml:"lat"`
	Lng         float64  `yaml:"lng"`
	Images      []string `yaml:"images"`
}

// defaultPresetYAML ships a handful of well-known Metro Manila spots so a
// fresh install has something on the map.
const defaultPresetYAML = `
name: metro-manila-classics
spots:
  - title: Intramuros Walls Walk
    description: Walk the old Spanish-era walls at golden hour.
    category: Pasyalan
    lat: 14.5896
    lng: 120.9750
  - title: Rizal Park Picnic Grounds
    description: Wide lawns, shade trees, and cheap taho carts.
    category: Tambayan
    lat: 14.5832
    lng: 120.9794
  - title: Binondo Food Crawl
    description: Start at Ongpin and eat your way down the estero.
    category: Food Trip
    lat: 14.6000
    lng: 120.9740
  - title: La Mesa Ecopark Trails
    description: Forest trails and a zipline thirty minutes from the city.
    category: Adventure
    lat: 14.7180
    lng: 121.0730
  - title: Marikina Riverbanks Sunset Deck
    description: Quiet stretch of the river park most people miss.
    category: Hidden Gem
    lat: 14.6290
    lng: 121.0860
`

// DefaultPreset parses the built-in spot list.
func DefaultPreset() (*Preset, error) {
	return ParsePreset([]byte(defaultPresetYAML))
}

// LoadPreset reads a preset from a YAML file.
func LoadPreset(path string) (*Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset %s: %w", path, err)
	}
	return ParsePreset(raw)
}

// ParsePreset decodes and validates preset YAML.
func ParsePreset(raw []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	if len(p.Spots) == 0 {
		return nil, fmt.Errorf("preset %q has no spots", p.Name)
	}
	for _, spot := range p.Spots {
		if spot.Title == "" {
			return nil, fmt.Errorf("preset %q: spot with empty title", p.Name)
		}
		if !models.ValidCategory(spot.Category) {
			return nil, fmt.Errorf("preset %q: unknown category %q", p.Name, spot.Category)
		}
		if spot.Lat < -90 || spot.Lat > 90 || spot.Lng < -180 || spot.Lng > 180 {
			return nil, fmt.Errorf("preset %q: %s has out-of-range coordinates", p.Name, spot.Title)
		}
	}
	return &p, nil
}

// ApplyPreset writes the preset's spots as pins authored by author.
func (s *Seeder) ApplyPreset(ctx context.Context, p *Preset, author *models.User) ([]string, error) {
	ids := make([]string, 0, len(p.Spots))
	for _, spot := range p.Spots {
		images := spot.Images
		if images == nil {
			images = []string{}
		}
		rec := &models.PinRecord{
			Title:       spot.Title,
			Description: spot.Description,
			Category:    spot.Category,
			Lat:         spot.Lat,
			Lng:         spot.Lng,
			Images:      images,
			Author:      author.Snapshot(),
			CreatedAt:   s.factory.pastTimestamp(),
		}
		id, err := s.store.Push(ctx, repository.PinsPath, rec)
		if err != nil {
			return nil, fmt.Errorf("apply preset spot %q: %w", spot.Title, err)
		}
		if err := s.store.Set(ctx, repository.HeartsPath(id), 0); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
