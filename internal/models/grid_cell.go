package models

// GridCell is one square of a fitted pickup or dropoff grid
type GridCell struct {
	ID     int `json:"id"`
	Column int `json:"column"`
	Row    int `json:"row"`

	// Bounding box
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// GridCellsResponse lists the cells of one grid
type GridCellsResponse struct {
	ModelID string     `json:"model_id"`
	Kind    string     `json:"kind"`
	Cells   []GridCell `json:"cells"`
}
