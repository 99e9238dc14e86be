package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jengzang/trip-features-go/internal/models"
	"github.com/jengzang/trip-features-go/internal/repository"
)

// TripService handles business logic for trips
type TripService struct {
	repo *repository.TripRepository
	log  *zap.Logger
}

// NewTripService creates a new trip service
func NewTripService(repo *repository.TripRepository, log *zap.Logger) *TripService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TripService{repo: repo, log: log}
}

// ImportTrips stores the rows and returns their new ids in input order
func (s *TripService) ImportTrips(ctx context.Context, inputs []models.TripInput) ([]string, error) {
	now := time.Now().UTC()
	trips := make([]models.Trip, len(inputs))
	ids := make([]string, len(inputs))
	for i, in := range inputs {
		ids[i] = uuid.NewString()
		trips[i] = models.Trip{ID: ids[i], TripInput: in, CreatedAt: now}
	}

	if err := s.repo.CreateTrips(ctx, trips); err != nil {
		return nil, err
	}

	s.log.Info("trips imported", zap.Int("count", len(trips)))
	return ids, nil
}

// GetTrips retrieves trips with filtering and pagination
func (s *TripService) GetTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, int64, error) {
	return s.repo.GetTrips(ctx, filter)
}
