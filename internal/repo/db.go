package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB represents a database connection
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new database connection. The current build ships with the
// in-memory repository, so the pool is only established when a URL is set.
func NewDB(databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return &DB{}, nil
	}
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Repository interface for place and visit-event storage
type Repository interface {
	CreatePlace(ctx context.Context, arg CreatePlaceParams) (Place, error)
	GetPlaceByID(ctx context.Context, id string) (Place, error)
	GetPlacesByCategory(ctx context.Context, arg GetPlacesByCategoryParams) ([]Place, error)
	CreateVisitEvent(ctx context.Context, arg CreateVisitEventParams) (VisitEvent, error)
	GetRecentVisitEvents(ctx context.Context, since time.Time) ([]VisitEventRow, error)
}

// Place represents a point of interest known to the system
type Place struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Rating      float64  `json:"rating"`
	Address     *string  `json:"address,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// VisitEvent represents a user interaction with a place
type VisitEvent struct {
	ID         int64     `json:"id"`
	PlaceID    string    `json:"place_id"`
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
	UserLat    *float64  `json:"user_lat,omitempty"`
	UserLon    *float64  `json:"user_lon,omitempty"`
}

// VisitEventRow is a visit event joined with the place it refers to
type VisitEventRow struct {
	VisitEvent
	Category  string   `json:"category"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type CreatePlaceParams struct {
	ID          string
	Name        string
	Description string
	Category    string
	Tags        []string
	Rating      float64
	Address     *string
	Latitude    *float64
	Longitude   *float64
}

type GetPlacesByCategoryParams struct {
	Category string
	Limit    int
}

type CreateVisitEventParams struct {
	PlaceID string
	Event   string
	UserLat *float64
	UserLon *float64
}

type repository struct {
	db *DB

	mu      sync.RWMutex
	places  map[string]Place
	events  []VisitEvent
	eventID int64
}

// NewRepository creates a Repository backed by in-memory storage
func NewRepository(db *DB) Repository {
	return &repository{
		db:     db,
		places: make(map[string]Place),
	}
}

func (r *repository) CreatePlace(ctx context.Context, arg CreatePlaceParams) (Place, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := arg.ID
	if id == "" {
		id = uuid.NewString()
	}

	place := Place{
		ID:          id,
		Name:        arg.Name,
		Description: arg.Description,
		Category:    arg.Category,
		Tags:        arg.Tags,
		Rating:      arg.Rating,
		Address:     arg.Address,
		Latitude:    arg.Latitude,
		Longitude:   arg.Longitude,
	}
	r.places[id] = place
	return place, nil
}

func (r *repository) GetPlaceByID(ctx context.Context, id string) (Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	place, ok := r.places[id]
	if !ok {
		return Place{}, fmt.Errorf("place %s not found", id)
	}
	return place, nil
}

func (r *repository) GetPlacesByCategory(ctx context.Context, arg GetPlacesByCategoryParams) ([]Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var places []Place
	for _, place := range r.places {
		if arg.Category == "" || place.Category == arg.Category {
			places = append(places, place)
		}
	}

	// Highest rated first, stable across runs
	sort.Slice(places, func(i, j int) bool {
		if places[i].Rating != places[j].Rating {
			return places[i].Rating > places[j].Rating
		}
		return places[i].ID < places[j].ID
	})

	if arg.Limit > 0 && len(places) > arg.Limit {
		places = places[:arg.Limit]
	}
	return places, nil
}

func (r *repository) CreateVisitEvent(ctx context.Context, arg CreateVisitEventParams) (VisitEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.places[arg.PlaceID]; !ok {
		return VisitEvent{}, fmt.Errorf("place %s not found", arg.PlaceID)
	}

	r.eventID++
	event := VisitEvent{
		ID:         r.eventID,
		PlaceID:    arg.PlaceID,
		Event:      arg.Event,
		OccurredAt: time.Now(),
		UserLat:    arg.UserLat,
		UserLon:    arg.UserLon,
	}
	r.events = append(r.events, event)
	return event, nil
}

func (r *repository) GetRecentVisitEvents(ctx context.Context, since time.Time) ([]VisitEventRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []VisitEventRow
	for _, event := range r.events {
		if event.OccurredAt.Before(since) {
			continue
		}
		place, ok := r.places[event.PlaceID]
		if !ok {
			continue
		}
		rows = append(rows, VisitEventRow{
			VisitEvent: event,
			Category:   place.Category,
			Latitude:   place.Latitude,
			Longitude:  place.Longitude,
		})
	}
	return rows, nil
}
