package models

import "time"

// TripInput is one feature-engineering input row. The dataframe tags name the
// dataset columns.
type TripInput struct {
	DayOfWeek       int     `json:"day_of_week" db:"day_of_week" dataframe:"day_of_week"`
	Hour            int     `json:"hour" db:"hour" dataframe:"hour"`
	LogHaversine    float64 `json:"log_haversine" db:"log_haversine" dataframe:"log_haversine"`
	LogTripDuration float64 `json:"log_trip_duration" db:"log_trip_duration" dataframe:"log_trip_duration"`

	PickupLongitude  float64 `json:"pickup_longitude" db:"pickup_longitude" dataframe:"pickup_longitude"`
	PickupLatitude   float64 `json:"pickup_latitude" db:"pickup_latitude" dataframe:"pickup_latitude"`
	DropoffLongitude float64 `json:"dropoff_longitude" db:"dropoff_longitude" dataframe:"dropoff_longitude"`
	DropoffLatitude  float64 `json:"dropoff_latitude" db:"dropoff_latitude" dataframe:"dropoff_latitude"`
}

// Trip is a stored training row
type Trip struct {
	ID string `json:"id" db:"id"`
	TripInput
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TripRow is a TripInput as posted by clients. Every field is a pointer so
// that an absent key fails binding instead of decoding as zero.
type TripRow struct {
	DayOfWeek       *int     `json:"day_of_week" binding:"required,min=0,max=6"`
	Hour            *int     `json:"hour" binding:"required,min=0,max=23"`
	LogHaversine    *float64 `json:"log_haversine" binding:"required"`
	LogTripDuration *float64 `json:"log_trip_duration" binding:"required"`

	PickupLongitude  *float64 `json:"pickup_longitude" binding:"required,min=-180,max=180"`
	PickupLatitude   *float64 `json:"pickup_latitude" binding:"required,min=-90,max=90"`
	DropoffLongitude *float64 `json:"dropoff_longitude" binding:"required,min=-180,max=180"`
	DropoffLatitude  *float64 `json:"dropoff_latitude" binding:"required,min=-90,max=90"`
}

// Input dereferences a bound row. Call it only after binding succeeded.
func (r TripRow) Input() TripInput {
	return TripInput{
		DayOfWeek:        *r.DayOfWeek,
		Hour:             *r.Hour,
		LogHaversine:     *r.LogHaversine,
		LogTripDuration:  *r.LogTripDuration,
		PickupLongitude:  *r.PickupLongitude,
		PickupLatitude:   *r.PickupLatitude,
		DropoffLongitude: *r.DropoffLongitude,
		DropoffLatitude:  *r.DropoffLatitude,
	}
}

// TripInputs converts bound rows
func TripInputs(rows []TripRow) []TripInput {
	inputs := make([]TripInput, len(rows))
	for i, r := range rows {
		inputs[i] = r.Input()
	}
	return inputs
}

// ImportTripsRequest is the body of POST /api/v1/trips
type ImportTripsRequest struct {
	Trips []TripRow `json:"trips" binding:"required,min=1,dive"`
}

// ImportTripsResponse lists the ids of the stored rows in request order
type ImportTripsResponse struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

// TripsResponse represents a paginated response of trips
type TripsResponse struct {
	Data       []Trip `json:"data"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}
