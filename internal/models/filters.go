package models

// TripFilter represents filter parameters for querying trips
type TripFilter struct {
	DayOfWeek *int `form:"day_of_week" binding:"omitempty,min=0,max=6"`
	Hour      *int `form:"hour" binding:"omitempty,min=0,max=23"`
	Page      int  `form:"page"`
	PageSize  int  `form:"page_size"`
}

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Normalize clamps paging to sane values
func (f *TripFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// CellFilter selects the grid of a cell listing
type CellFilter struct {
	Kind string `form:"kind" binding:"omitempty,oneof=pickup dropoff"`
}
