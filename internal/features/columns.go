package features

import (
	"errors"
	"fmt"

	"github.com/go-gota/gota/dataframe"
)

// Input columns
const (
	ColDayOfWeek       = "day_of_week"
	ColHour            = "hour"
	ColLogHaversine    = "log_haversine"
	ColLogTripDuration = "log_trip_duration"

	ColPickupLongitude  = "pickup_longitude"
	ColPickupLatitude   = "pickup_latitude"
	ColDropoffLongitude = "dropoff_longitude"
	ColDropoffLatitude  = "dropoff_latitude"
)

// Output columns. The spelling matches the downstream training code.
const (
	ColTraffic       = "trafic"
	ColNoTraffic     = "no_trafic"
	ColPickupSquare  = "pickup_square"
	ColDropoffSquare = "dropoff_square"
)

// ErrMissingColumn is returned when a required column is absent from the dataset.
var ErrMissingColumn = errors.New("missing column")

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func frameError(df dataframe.DataFrame) error {
	if err := df.Error(); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}
	return nil
}

// floatColumn returns a column as float64 values. NA elements become NaN.
func floatColumn(df dataframe.DataFrame, name string) ([]float64, error) {
	if err := frameError(df); err != nil {
		return nil, err
	}
	if !hasColumn(df, name) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return df.Col(name).Float(), nil
}

// intColumn returns a column as int values; float and string columns are converted.
func intColumn(df dataframe.DataFrame, name string) ([]int, error) {
	if err := frameError(df); err != nil {
		return nil, err
	}
	if !hasColumn(df, name) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	values, err := df.Col(name).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to read column %s as int: %w", name, err)
	}
	return values, nil
}
