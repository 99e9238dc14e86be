package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jengzang/trip-features-go/internal/features"
	"github.com/jengzang/trip-features-go/internal/models"
	"github.com/jengzang/trip-features-go/internal/repository"
)

var (
	// ErrModelNotFound is returned for unknown model ids
	ErrModelNotFound = errors.New("feature model not found")
	// ErrNoTrips is returned when fitting with an empty trip table
	ErrNoTrips = errors.New("no trips stored")
)

// fittedModel is a restored model ready to transform. It is shared read-only
// between requests.
type fittedModel struct {
	record   models.FeatureModel
	state    models.FeatureState
	pipeline *features.Pipeline
	grid     *features.GridIndexer
}

// FeatureService fits, stores and applies feature models
type FeatureService struct {
	trips     *repository.TripRepository
	modelRepo *repository.ModelRepository
	cache     gcache.Cache
	workers   int
	log       *zap.Logger
}

// NewFeatureService creates a feature service keeping up to cacheSize
// restored models in memory
func NewFeatureService(
	trips *repository.TripRepository,
	modelRepo *repository.ModelRepository,
	cacheSize int,
	workers int,
	log *zap.Logger,
) *FeatureService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeatureService{
		trips:     trips,
		modelRepo: modelRepo,
		cache:     gcache.New(cacheSize).LRU().Build(),
		workers:   workers,
		log:       log,
	}
}

// Fit fits both transformers on every stored trip and persists the result
func (s *FeatureService) Fit(ctx context.Context, req models.FitModelRequest) (*models.FeatureModelDetail, error) {
	inputs, err := s.trips.GetTripInputs(ctx)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, ErrNoTrips
	}

	traffic, err := features.NewTrafficClassifier(features.TrafficConfig{Match: features.MatchMode(req.Match)}, s.log)
	if err != nil {
		return nil, err
	}
	grid, err := features.NewGridIndexer(features.GridConfig{
		HorBins: req.HorBins,
		VerBins: req.VerBins,
		Workers: s.workers,
	}, s.log)
	if err != nil {
		return nil, err
	}

	df := dataframe.LoadStructs(inputs)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to build training frame: %w", df.Err)
	}

	pipeline := features.NewPipeline(traffic, grid)
	if err := pipeline.Fit(df); err != nil {
		return nil, fmt.Errorf("failed to fit feature model: %w", err)
	}

	state := models.FeatureState{Traffic: traffic.State(), Grid: grid.State()}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode model state: %w", err)
	}

	record := models.FeatureModel{
		ID:           uuid.NewString(),
		HorBins:      req.HorBins,
		VerBins:      req.VerBins,
		MatchMode:    string(traffic.MatchMode()),
		TrainingRows: len(inputs),
		StateJSON:    string(raw),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.modelRepo.Create(ctx, &record); err != nil {
		return nil, err
	}

	s.cache.Set(record.ID, &fittedModel{record: record, state: state, pipeline: pipeline, grid: grid})

	s.log.Info("feature model fitted",
		zap.String("model_id", record.ID),
		zap.Int("training_rows", record.TrainingRows),
		zap.String("match_mode", record.MatchMode),
	)
	return &models.FeatureModelDetail{FeatureModel: record, State: state}, nil
}

// ListModels returns every stored model without state
func (s *FeatureService) ListModels(ctx context.Context) ([]models.FeatureModel, error) {
	return s.modelRepo.List(ctx)
}

// GetModel returns one model with its fitted state
func (s *FeatureService) GetModel(ctx context.Context, id string) (*models.FeatureModelDetail, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.FeatureModelDetail{FeatureModel: m.record, State: m.state}, nil
}

// Transform applies a stored model to rows and returns one result per row
func (s *FeatureService) Transform(ctx context.Context, id string, rows []models.TripInput) ([]models.TransformResult, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.TransformResult{}, nil
	}

	df := dataframe.LoadStructs(rows)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to build input frame: %w", df.Err)
	}

	out, err := m.pipeline.Transform(df)
	if err != nil {
		return nil, fmt.Errorf("failed to transform rows: %w", err)
	}
	return readResults(out)
}

func readResults(df dataframe.DataFrame) ([]models.TransformResult, error) {
	traffic, err := df.Col(features.ColTraffic).Bool()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", features.ColTraffic, err)
	}
	free, err := df.Col(features.ColNoTraffic).Bool()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", features.ColNoTraffic, err)
	}
	pickup, err := df.Col(features.ColPickupSquare).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", features.ColPickupSquare, err)
	}
	dropoff, err := df.Col(features.ColDropoffSquare).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", features.ColDropoffSquare, err)
	}

	results := make([]models.TransformResult, len(traffic))
	for i := range results {
		results[i] = models.TransformResult{
			Trafic:        traffic[i],
			NoTrafic:      free[i],
			PickupSquare:  pickup[i],
			DropoffSquare: dropoff[i],
		}
	}
	return results, nil
}

// Cells lists the pickup or dropoff grid of a stored model
func (s *FeatureService) Cells(ctx context.Context, id string, kind features.PointKind) ([]models.GridCell, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown point kind %q", kind)
	}
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	cells := m.grid.Cells(kind)
	out := make([]models.GridCell, len(cells))
	for i, c := range cells {
		out[i] = models.GridCell{
			ID:     c.ID,
			Column: c.Column,
			Row:    c.Row,
			MinLon: c.Bounds.X.Lo,
			MaxLon: c.Bounds.X.Hi,
			MinLat: c.Bounds.Y.Lo,
			MaxLat: c.Bounds.Y.Hi,
		}
	}
	return out, nil
}

// load returns a cached model or restores it from its stored state
func (s *FeatureService) load(ctx context.Context, id string) (*fittedModel, error) {
	if v, err := s.cache.Get(id); err == nil {
		return v.(*fittedModel), nil
	}

	record, err := s.modelRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var state models.FeatureState
	if err := json.Unmarshal([]byte(record.StateJSON), &state); err != nil {
		return nil, fmt.Errorf("failed to decode model state: %w", err)
	}

	traffic, err := features.RestoreTrafficClassifier(
		features.TrafficConfig{Match: features.MatchMode(record.MatchMode)}, state.Traffic, s.log)
	if err != nil {
		return nil, fmt.Errorf("failed to restore traffic classifier: %w", err)
	}
	grid, err := features.RestoreGridIndexer(state.Grid, s.workers, s.log)
	if err != nil {
		return nil, fmt.Errorf("failed to restore grid indexer: %w", err)
	}

	m := &fittedModel{
		record:   *record,
		state:    state,
		pipeline: features.NewPipeline(traffic, grid),
		grid:     grid,
	}
	s.cache.Set(id, m)
	s.log.Debug("feature model restored", zap.String("model_id", id))
	return m, nil
}
