package features

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/require"
)

type tripRow struct {
	day, hour            int
	distance, duration   float64
	pickupLng, pickupLat float64
	dropLng, dropLat     float64
}

func newFrame(t *testing.T, rows []tripRow) dataframe.DataFrame {
	t.Helper()

	days := make([]int, len(rows))
	hours := make([]int, len(rows))
	dist := make([]float64, len(rows))
	dur := make([]float64, len(rows))
	plng := make([]float64, len(rows))
	plat := make([]float64, len(rows))
	dlng := make([]float64, len(rows))
	dlat := make([]float64, len(rows))
	for i, r := range rows {
		days[i], hours[i] = r.day, r.hour
		dist[i], dur[i] = r.distance, r.duration
		plng[i], plat[i] = r.pickupLng, r.pickupLat
		dlng[i], dlat[i] = r.dropLng, r.dropLat
	}

	df := dataframe.New(
		series.New(days, series.Int, ColDayOfWeek),
		series.New(hours, series.Int, ColHour),
		series.New(dist, series.Float, ColLogHaversine),
		series.New(dur, series.Float, ColLogTripDuration),
		series.New(plng, series.Float, ColPickupLongitude),
		series.New(plat, series.Float, ColPickupLatitude),
		series.New(dlng, series.Float, ColDropoffLongitude),
		series.New(dlat, series.Float, ColDropoffLatitude),
	)
	require.NoError(t, df.Error())
	return df
}

// speedRows builds one row per bucket with log_trip_duration 1, so the
// bucket median equals the given speed.
func speedRows(buckets []Bucket, speeds []float64) []tripRow {
	rows := make([]tripRow, len(buckets))
	for i, b := range buckets {
		rows[i] = tripRow{day: b.Day, hour: b.Hour, distance: speeds[i], duration: 1}
	}
	return rows
}

func boolColumn(t *testing.T, df dataframe.DataFrame, name string) []bool {
	t.Helper()
	values, err := df.Col(name).Bool()
	require.NoError(t, err)
	return values
}

func intValues(t *testing.T, df dataframe.DataFrame, name string) []int {
	t.Helper()
	values, err := df.Col(name).Int()
	require.NoError(t, err)
	return values
}
