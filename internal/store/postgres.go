// Package store provides storage backends for TrailScout.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/TrailPeak/TrailScout/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateUser(u models.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, name, location, latitude, longitude, thread_id, preference_doc, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $8)`,
		u.ID, u.Name, u.Location, u.Latitude, u.Longitude, nilIfEmpty(u.ThreadID), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore CreateUser failed", "error", err, "userID", u.ID)
		return fmt.Errorf("failed to insert user %s: %w", u.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetUser(id string) (*models.User, error) {
	row := s.db.QueryRow(
		`SELECT id, name, location, latitude, longitude, thread_id, created_at, updated_at FROM users WHERE id = $1`, id)
	u, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetUser failed", "error", err, "userID", id)
		return nil, fmt.Errorf("failed to query user %s: %w", id, err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateUserThread(id, threadID string) error {
	res, err := s.db.Exec(
		`UPDATE users SET thread_id = $1, updated_at = NOW() WHERE id = $2`,
		nilIfEmpty(threadID), id,
	)
	if err != nil {
		slog.Error("PostgresStore UpdateUserThread failed", "error", err, "userID", id)
		return fmt.Errorf("failed to update thread for user %s: %w", id, err)
	}
	return requireRowAffected(res, models.ErrUserNotFound)
}

func (s *PostgresStore) GetPreferenceDocument(userID string) ([]byte, error) {
	var doc sql.NullString
	err := s.db.QueryRow(`SELECT preference_doc FROM users WHERE id = $1`, userID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetPreferenceDocument failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query preference document for %s: %w", userID, err)
	}
	if !doc.Valid {
		return nil, nil
	}
	return []byte(doc.String), nil
}

func (s *PostgresStore) SavePreferenceDocument(userID string, doc []byte) error {
	res, err := s.db.Exec(
		`UPDATE users SET preference_doc = $1, updated_at = NOW() WHERE id = $2`,
		string(doc), userID,
	)
	if err != nil {
		slog.Error("PostgresStore SavePreferenceDocument failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to save preference document for %s: %w", userID, err)
	}
	return requireRowAffected(res, models.ErrUserNotFound)
}

func (s *PostgresStore) CreateTrip(t models.Trip) error {
	_, err := s.db.Exec(
		`INSERT INTO trips (id, user_id, name, location, latitude, longitude, start_date, end_date, trip_type, notes, weather_summary, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.UserID, t.Name, t.Location, t.Latitude, t.Longitude,
		t.StartDate, t.EndDate, string(t.TripType), nilIfEmpty(t.Notes), nilIfEmpty(t.WeatherSummary),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore CreateTrip failed", "error", err, "tripID", t.ID)
		return fmt.Errorf("failed to insert trip %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetTrip(id string) (*models.Trip, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, name, location, latitude, longitude, start_date, end_date, trip_type, notes, weather_summary, created_at, updated_at
		 FROM trips WHERE id = $1`, id)
	t, err := scanTripRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrTripNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetTrip failed", "error", err, "tripID", id)
		return nil, fmt.Errorf("failed to query trip %s: %w", id, err)
	}
	return t, nil
}

func (s *PostgresStore) UpdateTripWeather(id, summary string) error {
	res, err := s.db.Exec(
		`UPDATE trips SET weather_summary = $1, updated_at = NOW() WHERE id = $2`,
		summary, id,
	)
	if err != nil {
		slog.Error("PostgresStore UpdateTripWeather failed", "error", err, "tripID", id)
		return fmt.Errorf("failed to update weather for trip %s: %w", id, err)
	}
	return requireRowAffected(res, models.ErrTripNotFound)
}

func (s *PostgresStore) ListTripsByUser(userID string) ([]models.Trip, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, location, latitude, longitude, start_date, end_date, trip_type, notes, weather_summary, created_at, updated_at
		 FROM trips WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips for %s: %w", userID, err)
	}
	defer rows.Close()
	return collectTrips(rows)
}

func (s *PostgresStore) AddGearItem(g models.GearItem) error {
	_, err := s.db.Exec(
		`INSERT INTO gear_items (id, user_id, name, category, weight_grams, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.UserID, g.Name, nilIfEmpty(g.Category), g.WeightGrams, nilIfEmpty(g.Notes), g.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore AddGearItem failed", "error", err, "gearID", g.ID)
		return fmt.Errorf("failed to insert gear item %s: %w", g.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetGearItem(id string) (*models.GearItem, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, name, category, weight_grams, notes, created_at FROM gear_items WHERE id = $1`, id)
	g, err := scanGearRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrGearNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query gear item %s: %w", id, err)
	}
	return g, nil
}

func (s *PostgresStore) ListGearByUser(userID string) ([]models.GearItem, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, category, weight_grams, notes, created_at
		 FROM gear_items WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gear for %s: %w", userID, err)
	}
	defer rows.Close()
	return collectGear(rows)
}

func (s *PostgresStore) AddGearToTrip(tripID, gearID string) error {
	_, err := s.db.Exec(
		`INSERT INTO trip_gear (trip_id, gear_id, added_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (trip_id, gear_id) DO NOTHING`,
		tripID, gearID,
	)
	if err != nil {
		slog.Error("PostgresStore AddGearToTrip failed", "error", err, "tripID", tripID, "gearID", gearID)
		return fmt.Errorf("failed to link gear %s to trip %s: %w", gearID, tripID, err)
	}
	return nil
}

func (s *PostgresStore) ListTripGear(tripID string) ([]models.GearItem, error) {
	rows, err := s.db.Query(
		`SELECT g.id, g.user_id, g.name, g.category, g.weight_grams, g.notes, g.created_at
		 FROM gear_items g JOIN trip_gear tg ON tg.gear_id = g.id
		 WHERE tg.trip_id = $1 ORDER BY tg.added_at, g.created_at`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip gear for %s: %w", tripID, err)
	}
	defer rows.Close()
	return collectGear(rows)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
