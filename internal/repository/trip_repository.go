package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jengzang/trip-features-go/internal/database"
	"github.com/jengzang/trip-features-go/internal/models"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("not found")

const tripColumns = `id, day_of_week, hour, log_haversine, log_trip_duration,
	pickup_longitude, pickup_latitude, dropoff_longitude, dropoff_latitude, created_at`

// TripRepository handles database operations for trips
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// CreateTrips inserts trips in a single transaction
func (r *TripRepository) CreateTrips(ctx context.Context, trips []models.Trip) error {
	query := `INSERT INTO trips (` + tripColumns + `) VALUES (
		:id, :day_of_week, :hour, :log_haversine, :log_trip_duration,
		:pickup_longitude, :pickup_latitude, :dropoff_longitude, :dropoff_latitude, :created_at)`

	return database.Transaction(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare trip insert: %w", err)
		}
		defer stmt.Close()

		for i := range trips {
			if _, err := stmt.ExecContext(ctx, trips[i]); err != nil {
				return fmt.Errorf("failed to insert trip %s: %w", trips[i].ID, err)
			}
		}
		return nil
	})
}

// GetTrips retrieves trips with filtering and pagination
func (r *TripRepository) GetTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, int64, error) {
	filter.Normalize()

	var conditions []string
	var args []interface{}
	if filter.DayOfWeek != nil {
		conditions = append(conditions, "day_of_week = ?")
		args = append(args, *filter.DayOfWeek)
	}
	if filter.Hour != nil {
		conditions = append(conditions, "hour = ?")
		args = append(args, *filter.Hour)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM trips"+where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	query := r.db.Rebind("SELECT " + tripColumns + " FROM trips" + where + " ORDER BY created_at, id LIMIT ? OFFSET ?")
	args = append(args, filter.PageSize, offset)

	trips := []models.Trip{}
	if err := r.db.SelectContext(ctx, &trips, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query trips: %w", err)
	}
	return trips, total, nil
}

// GetTripInputs returns the feature columns of every stored trip
func (r *TripRepository) GetTripInputs(ctx context.Context) ([]models.TripInput, error) {
	query := `SELECT day_of_week, hour, log_haversine, log_trip_duration,
		pickup_longitude, pickup_latitude, dropoff_longitude, dropoff_latitude
		FROM trips ORDER BY created_at, id`

	var inputs []models.TripInput
	if err := r.db.SelectContext(ctx, &inputs, query); err != nil {
		return nil, fmt.Errorf("failed to query trip inputs: %w", err)
	}
	return inputs, nil
}
