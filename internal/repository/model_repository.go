package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jengzang/trip-features-go/internal/models"
)

const modelColumns = `id, hor_bins, ver_bins, match_mode, training_rows, state_json, created_at`

// ModelRepository persists fitted feature models
type ModelRepository struct {
	db *sqlx.DB
}

// NewModelRepository creates a new model repository
func NewModelRepository(db *sqlx.DB) *ModelRepository {
	return &ModelRepository{db: db}
}

// Create inserts a fitted model
func (r *ModelRepository) Create(ctx context.Context, m *models.FeatureModel) error {
	query := `INSERT INTO feature_models (` + modelColumns + `)
		VALUES (:id, :hor_bins, :ver_bins, :match_mode, :training_rows, :state_json, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("failed to insert feature model: %w", err)
	}
	return nil
}

// GetByID retrieves one model. ErrNotFound is returned for unknown ids.
func (r *ModelRepository) GetByID(ctx context.Context, id string) (*models.FeatureModel, error) {
	query := r.db.Rebind("SELECT " + modelColumns + " FROM feature_models WHERE id = ?")

	var m models.FeatureModel
	err := r.db.GetContext(ctx, &m, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feature model %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feature model: %w", err)
	}
	return &m, nil
}

// List returns every model, newest first, without its state
func (r *ModelRepository) List(ctx context.Context) ([]models.FeatureModel, error) {
	query := `SELECT id, hor_bins, ver_bins, match_mode, training_rows, created_at
		FROM feature_models ORDER BY created_at DESC, id`

	list := []models.FeatureModel{}
	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("failed to list feature models: %w", err)
	}
	return list, nil
}
