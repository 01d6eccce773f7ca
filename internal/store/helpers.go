package store

import (
	"database/sql"
	"fmt"

	"github.com/TrailPeak/TrailScout/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// requireRowAffected maps a zero-row UPDATE to the given not-found error.
func requireRowAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// scanUserRow scans a User from a single sql.Row.
func scanUserRow(row *sql.Row) (*models.User, error) {
	var u models.User
	var threadID sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Location, &u.Latitude, &u.Longitude, &threadID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.ThreadID = threadID.String
	return &u, nil
}

// scanTripRow scans a Trip from a single sql.Row.
func scanTripRow(row *sql.Row) (*models.Trip, error) {
	var t models.Trip
	var tripType string
	var notes, weather sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Location, &t.Latitude, &t.Longitude,
		&t.StartDate, &t.EndDate, &tripType, &notes, &weather, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.TripType = models.TripType(tripType)
	t.Notes = notes.String
	t.WeatherSummary = weather.String
	return &t, nil
}

// collectTrips drains rows into a Trip slice.
func collectTrips(rows *sql.Rows) ([]models.Trip, error) {
	var trips []models.Trip
	for rows.Next() {
		var t models.Trip
		var tripType string
		var notes, weather sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Location, &t.Latitude, &t.Longitude,
			&t.StartDate, &t.EndDate, &tripType, &notes, &weather, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan trip row failed: %w", err)
		}
		t.TripType = models.TripType(tripType)
		t.Notes = notes.String
		t.WeatherSummary = weather.String
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trip rows failed: %w", err)
	}
	return trips, nil
}

// scanGearRow scans a GearItem from a single sql.Row.
func scanGearRow(row *sql.Row) (*models.GearItem, error) {
	var g models.GearItem
	var category, notes sql.NullString
	var weight sql.NullInt64
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &category, &weight, &notes, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	g.Category = category.String
	g.WeightGrams = int(weight.Int64)
	g.Notes = notes.String
	return &g, nil
}

// collectGear drains rows into a GearItem slice.
func collectGear(rows *sql.Rows) ([]models.GearItem, error) {
	var items []models.GearItem
	for rows.Next() {
		var g models.GearItem
		var category, notes sql.NullString
		var weight sql.NullInt64
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &category, &weight, &notes, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan gear row failed: %w", err)
		}
		g.Category = category.String
		g.WeightGrams = int(weight.Int64)
		g.Notes = notes.String
		items = append(items, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gear rows failed: %w", err)
	}
	return items, nil
}
