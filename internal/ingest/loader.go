package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"wander-system/internal/repo"

	"github.com/rs/zerolog/log"
)

// Loader seeds the place repository from JSON files or generated sample data.
type Loader struct {
	repo repo.Repository
}

func NewLoader(repository repo.Repository) *Loader {
	return &Loader{repo: repository}
}

// placeRecord is the on-disk shape of a place.
type placeRecord struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Rating      float64  `json:"rating"`
	Address     *string  `json:"address,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// LoadFromDirectory loads every JSON file under dirPath.
func (l *Loader) LoadFromDirectory(ctx context.Context, dirPath string) error {
	return filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".json") {
			return nil
		}
		log.Info().Str("path", path).Msg("Loading place file")
		return l.LoadFromFile(ctx, path)
	})
}

// LoadFromFile loads places from a single JSON file holding an array of records.
func (l *Loader) LoadFromFile(ctx context.Context, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	var records []placeRecord
	if err := json.NewDecoder(file).Decode(&records); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filePath, err)
	}

	for _, record := range records {
		if _, err := l.repo.CreatePlace(ctx, repo.CreatePlaceParams{
			ID:          record.ID,
			Name:        record.Name,
			Description: record.Description,
			Category:    record.Category,
			Tags:        record.Tags,
			Rating:      record.Rating,
			Address:     record.Address,
			Latitude:    record.Latitude,
			Longitude:   record.Longitude,
		}); err != nil {
			return fmt.Errorf("failed to create place %q: %w", record.Name, err)
		}
	}

	log.Info().Int("places", len(records)).Str("path", filePath).Msg("Loaded places")
	return nil
}

// GenerateSampleData seeds a handful of places plus synthetic visit events so
// the trending pipeline has something to score in local runs.
func (l *Loader) GenerateSampleData(ctx context.Context) error {
	samples := []repo.CreatePlaceParams{
		{Name: "Harbor Light Cafe", Description: "Quiet espresso bar by the marina.", Category: "cafe", Tags: []string{"coffee", "views"}, Rating: 4.6, Latitude: floatPtr(38.7223), Longitude: floatPtr(-9.1393)},
		{Name: "Ridge Line Trailhead", Description: "Start of the coastal ridge hike.", Category: "outdoors", Tags: []string{"hiking", "views"}, Rating: 4.8, Latitude: floatPtr(38.7800), Longitude: floatPtr(-9.4200)},
		{Name: "Old Mill Gallery", Description: "Contemporary art in a converted mill.", Category: "culture", Tags: []string{"art", "history"}, Rating: 4.3, Latitude: floatPtr(38.7100), Longitude: floatPtr(-9.1500)},
		{Name: "Night Market Lane", Description: "Street food stalls, open late.", Category: "food", Tags: []string{"street food", "nightlife"}, Rating: 4.5, Latitude: floatPtr(38.7150), Longitude: floatPtr(-9.1420)},
		{Name: "Cliffside Lookout", Description: "Sunset viewpoint over the Atlantic.", Category: "outdoors", Tags: []string{"views", "photography"}, Rating: 4.9, Latitude: floatPtr(38.6900), Longitude: floatPtr(-9.4500)},
	}

	var places []repo.Place
	for _, sample := range samples {
		place, err := l.repo.CreatePlace(ctx, sample)
		if err != nil {
			return fmt.Errorf("failed to create sample place: %w", err)
		}
		places = append(places, place)
	}

	eventTypes := []string{"view", "view", "save", "visit"}
	eventCount := 0
	for i := 0; i < 40; i++ {
		place := places[rand.Intn(len(places))]

		var userLat, userLon *float64
		if place.Latitude != nil && place.Longitude != nil {
			lat := *place.Latitude + (rand.Float64()-0.5)*0.05
			lon := *place.Longitude + (rand.Float64()-0.5)*0.05
			userLat, userLon = &lat, &lon
		}

		if _, err := l.repo.CreateVisitEvent(ctx, repo.CreateVisitEventParams{
			PlaceID: place.ID,
			Event:   eventTypes[rand.Intn(len(eventTypes))],
			UserLat: userLat,
			UserLon: userLon,
		}); err != nil {
			log.Warn().Err(err).Str("place_id", place.ID).Msg("Failed to create sample event")
			continue
		}
		eventCount++
	}

	log.Info().Int("places", len(places)).Int("events", eventCount).Msg("Generated sample data")
	return nil
}

func floatPtr(f float64) *float64 {
	return &f
}
