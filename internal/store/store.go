// Package store provides storage backends for TrailScout.
//
// It includes an in-memory store for tests, an SQLite store for single-node
// deployments, and a PostgreSQL store. All backends persist users (with their
// opaque preference document and durable thread reference), trips, gear, and
// trip-gear links.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/TrailPeak/TrailScout/internal/models"
)

// Store is the persistence interface consumed by the orchestrator and tools.
type Store interface {
	CreateUser(u models.User) error
	GetUser(id string) (*models.User, error)
	UpdateUserThread(id, threadID string) error

	GetPreferenceDocument(userID string) ([]byte, error)
	SavePreferenceDocument(userID string, doc []byte) error

	CreateTrip(t models.Trip) error
	GetTrip(id string) (*models.Trip, error)
	UpdateTripWeather(id, summary string) error
	ListTripsByUser(userID string) ([]models.Trip, error)

	AddGearItem(g models.GearItem) error
	GetGearItem(id string) (*models.GearItem, error)
	ListGearByUser(userID string) ([]models.GearItem, error)
	AddGearToTrip(tripID, gearID string) error
	ListTripGear(tripID string) ([]models.GearItem, error)

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string // database connection string (file path for SQLite)
}

// Option defines a configuration option for store construction.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use a URL scheme or key=value form; everything else is treated as an SQLite
// file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a mutex-guarded map-backed Store used in tests and as a
// fallback when no DSN is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	prefDocs map[string][]byte
	trips    map[string]models.Trip
	gear     map[string]models.GearItem
	tripGear map[string][]string // trip id -> gear ids, insertion order
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    make(map[string]models.User),
		prefDocs: make(map[string][]byte),
		trips:    make(map[string]models.Trip),
		gear:     make(map[string]models.GearItem),
		tripGear: make(map[string][]string),
	}
}

func (s *InMemoryStore) CreateUser(u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *InMemoryStore) GetUser(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &u, nil
}

func (s *InMemoryStore) UpdateUserThread(id, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.ThreadID = threadID
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return nil
}

func (s *InMemoryStore) GetPreferenceDocument(userID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[userID]; !ok {
		return nil, models.ErrUserNotFound
	}
	doc := s.prefDocs[userID]
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (s *InMemoryStore) SavePreferenceDocument(userID string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return models.ErrUserNotFound
	}
	stored := make([]byte, len(doc))
	copy(stored, doc)
	s.prefDocs[userID] = stored
	return nil
}

func (s *InMemoryStore) CreateTrip(t models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[t.ID] = t
	return nil
}

func (s *InMemoryStore) GetTrip(id string) (*models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, models.ErrTripNotFound
	}
	return &t, nil
}

func (s *InMemoryStore) UpdateTripWeather(id, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return models.ErrTripNotFound
	}
	t.WeatherSummary = summary
	t.UpdatedAt = time.Now()
	s.trips[id] = t
	return nil
}

func (s *InMemoryStore) ListTripsByUser(userID string) ([]models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var trips []models.Trip
	for _, t := range s.trips {
		if t.UserID == userID {
			trips = append(trips, t)
		}
	}
	return trips, nil
}

func (s *InMemoryStore) AddGearItem(g models.GearItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gear[g.ID] = g
	return nil
}

func (s *InMemoryStore) GetGearItem(id string) (*models.GearItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gear[id]
	if !ok {
		return nil, models.ErrGearNotFound
	}
	return &g, nil
}

func (s *InMemoryStore) ListGearByUser(userID string) ([]models.GearItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.GearItem
	for _, g := range s.gear {
		if g.UserID == userID {
			items = append(items, g)
		}
	}
	return items, nil
}

func (s *InMemoryStore) AddGearToTrip(tripID, gearID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[tripID]; !ok {
		return models.ErrTripNotFound
	}
	if _, ok := s.gear[gearID]; !ok {
		return models.ErrGearNotFound
	}
	for _, id := range s.tripGear[tripID] {
		if id == gearID {
			return nil // already linked
		}
	}
	s.tripGear[tripID] = append(s.tripGear[tripID], gearID)
	return nil
}

func (s *InMemoryStore) ListTripGear(tripID string) ([]models.GearItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.GearItem
	for _, gearID := range s.tripGear[tripID] {
		if g, ok := s.gear[gearID]; ok {
			items = append(items, g)
		}
	}
	return items, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
