package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/trip-features-go/internal/database"
	"github.com/jengzang/trip-features-go/internal/models"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: filepath.Join(t.TempDir(), "test.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrationManager(db, nil).RunMigrations(context.Background()))
	return db
}

func newTrip(day, hour int, speed float64) models.Trip {
	return models.Trip{
		ID: uuid.NewString(),
		TripInput: models.TripInput{
			DayOfWeek:        day,
			Hour:             hour,
			LogHaversine:     speed,
			LogTripDuration:  1,
			PickupLongitude:  -73.99,
			PickupLatitude:   40.72,
			DropoffLongitude: -73.96,
			DropoffLatitude:  40.77,
		},
		CreatedAt: time.Now().UTC(),
	}
}
