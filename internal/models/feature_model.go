package models

import (
	"time"

	"github.com/jengzang/trip-features-go/internal/features"
)

// FeatureModel is a persisted pair of fitted transformers
type FeatureModel struct {
	ID           string    `json:"id" db:"id"`
	HorBins      int       `json:"hor_bins" db:"hor_bins"`
	VerBins      int       `json:"ver_bins" db:"ver_bins"`
	MatchMode    string    `json:"match_mode" db:"match_mode"`
	TrainingRows int       `json:"training_rows" db:"training_rows"`
	StateJSON    string    `json:"-" db:"state_json"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// FeatureState is the JSON document stored in state_json
type FeatureState struct {
	Traffic features.TrafficState `json:"traffic"`
	Grid    features.GridState    `json:"grid"`
}

// FeatureModelDetail is a model with its decoded state
type FeatureModelDetail struct {
	FeatureModel
	State FeatureState `json:"state"`
}

// FitModelRequest is the body of POST /api/v1/models
type FitModelRequest struct {
	HorBins int    `json:"hor_bins" binding:"required,min=1,max=1000"`
	VerBins int    `json:"ver_bins" binding:"required,min=1,max=1000"`
	Match   string `json:"match" binding:"omitempty,oneof=coordinate pair"`
}

// TransformRequest is the body of POST /api/v1/models/:id/transform
type TransformRequest struct {
	Rows []TripRow `json:"rows" binding:"required,min=1,dive"`
}

// TransformResult holds the engineered features of one row
type TransformResult struct {
	Trafic        bool `json:"trafic"`
	NoTrafic      bool `json:"no_trafic"`
	PickupSquare  int  `json:"pickup_square"`
	DropoffSquare int  `json:"dropoff_square"`
}
