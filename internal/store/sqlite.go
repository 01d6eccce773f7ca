// Package store provides storage backends for TrailScout.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/TrailPeak/TrailScout/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a Store backed by a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given options. The DSN
// is a file path; the containing directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateUser(u models.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, name, location, latitude, longitude, thread_id, preference_doc, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		u.ID, u.Name, u.Location, u.Latitude, u.Longitude, nilIfEmpty(u.ThreadID), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore CreateUser failed", "error", err, "userID", u.ID)
		return fmt.Errorf("failed to insert user %s: %w", u.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(id string) (*models.User, error) {
	row := s.db.QueryRow(
		`SELECT id, name, location, latitude, longitude, thread_id, created_at, updated_at FROM users WHERE id = ?`, id)
	u, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetUser failed", "error", err, "userID", id)
		return nil, fmt.Errorf("failed to query user %s: %w", id, err)
	}
	return u, nil
}

func (s *SQLiteStore) UpdateUserThread(id, threadID string) error {
	res, err := s.db.Exec(
		`UPDATE users SET thread_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		nilIfEmpty(threadID), id,
	)
	if err != nil {
		slog.Error("SQLiteStore UpdateUserThread failed", "error", err, "userID", id)
		return fmt.Errorf("failed to update thread for user %s: %w", id, err)
	}
	return requireRowAffected(res, models.ErrUserNotFound)
}

func (s *SQLiteStore) GetPreferenceDocument(userID string) ([]byte, error) {
	var doc sql.NullString
	err := s.db.QueryRow(`SELECT preference_doc FROM users WHERE id = ?`, userID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetPreferenceDocument failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query preference document for %s: %w", userID, err)
	}
	if !doc.Valid {
		return nil, nil
	}
	return []byte(doc.String), nil
}

func (s *SQLiteStore) SavePreferenceDocument(userID string, doc []byte) error {
	res, err := s.db.Exec(
		`UPDATE users SET preference_doc = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(doc), userID,
	)
	if err != nil {
		slog.Error("SQLiteStore SavePreferenceDocument failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to save preference document for %s: %w", userID, err)
	}
	return requireRowAffected(res, models.ErrUserNotFound)
}

func (s *SQLiteStore) CreateTrip(t models.Trip) error {
	_, err := s.db.Exec(
		`INSERT INTO trips (id, user_id, name, location, latitude, longitude, start_date, end_date, trip_type, notes, weather_summary, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.Location, t.Latitude, t.Longitude,
		t.StartDate, t.EndDate, string(t.TripType), nilIfEmpty(t.Notes), nilIfEmpty(t.WeatherSummary),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore CreateTrip failed", "error", err, "tripID", t.ID)
		return fmt.Errorf("failed to insert trip %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetTrip(id string) (*models.Trip, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, name, location, latitude, longitude, start_date, end_date, trip_type, notes, weather_summary, created_at, updated_at
		 FROM trips WHERE id = ?`, id)
	t, err := scanTripRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrTripNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetTrip failed", "error", err, "tripID", id)
		return nil, fmt.Errorf("failed to query trip %s: %w", id, err)
	}
	return t, nil
}

func (s *SQLiteStore) UpdateTripWeather(id, summary string) error {
	res, err := s.db.Exec(
		`UPDATE trips SET weather_summary = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		summary, id,
	)
	if err != nil {
		slog.Error("SQLiteStore UpdateTripWeather failed", "error", err, "tripID", id)
		return fmt.Errorf("failed to update weather for trip %s: %w", id, err)
	}
	return requireRowAffected(res, models.ErrTripNotFound)
}

func (s *SQLiteStore) ListTripsByUser(userID string) ([]models.Trip, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, location, latitude, longitude, start_date, end_date, trip_type, notes, weather_summary, created_at, updated_at
		 FROM trips WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips for %s: %w", userID, err)
	}
	defer rows.Close()
	return collectTrips(rows)
}

func (s *SQLiteStore) AddGearItem(g models.GearItem) error {
	_, err := s.db.Exec(
		`INSERT INTO gear_items (id, user_id, name, category, weight_grams, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, nilIfEmpty(g.Category), g.WeightGrams, nilIfEmpty(g.Notes), g.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore AddGearItem failed", "error", err, "gearID", g.ID)
		return fmt.Errorf("failed to insert gear item %s: %w", g.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetGearItem(id string) (*models.GearItem, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, name, category, weight_grams, notes, created_at FROM gear_items WHERE id = ?`, id)
	g, err := scanGearRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrGearNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query gear item %s: %w", id, err)
	}
	return g, nil
}

func (s *SQLiteStore) ListGearByUser(userID string) ([]models.GearItem, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, category, weight_grams, notes, created_at
		 FROM gear_items WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gear for %s: %w", userID, err)
	}
	defer rows.Close()
	return collectGear(rows)
}

func (s *SQLiteStore) AddGearToTrip(tripID, gearID string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO trip_gear (trip_id, gear_id, added_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		tripID, gearID,
	)
	if err != nil {
		slog.Error("SQLiteStore AddGearToTrip failed", "error", err, "tripID", tripID, "gearID", gearID)
		return fmt.Errorf("failed to link gear %s to trip %s: %w", gearID, tripID, err)
	}
	return nil
}

func (s *SQLiteStore) ListTripGear(tripID string) ([]models.GearItem, error) {
	rows, err := s.db.Query(
		`SELECT g.id, g.user_id, g.name, g.category, g.weight_grams, g.notes, g.created_at
		 FROM gear_items g JOIN trip_gear tg ON tg.gear_id = g.id
		 WHERE tg.trip_id = ? ORDER BY tg.rowid`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip gear for %s: %w", tripID, err)
	}
	defer rows.Close()
	return collectGear(rows)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
