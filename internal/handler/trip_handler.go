package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/trip-features-go/internal/models"
	"github.com/jengzang/trip-features-go/internal/service"
	"github.com/jengzang/trip-features-go/pkg/response"
)

// TripHandler handles HTTP requests for trips
type TripHandler struct {
	service *service.TripService
}

// NewTripHandler creates a new trip handler
func NewTripHandler(service *service.TripService) *TripHandler {
	return &TripHandler{service: service}
}

// ImportTrips handles POST /api/v1/trips
func (h *TripHandler) ImportTrips(c *gin.Context) {
	var req models.ImportTripsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ids, err := h.service.ImportTrips(c.Request.Context(), models.TripInputs(req.Trips))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, models.ImportTripsResponse{Count: len(ids), IDs: ids})
}

// GetTrips handles GET /api/v1/trips
func (h *TripHandler) GetTrips(c *gin.Context) {
	var filter models.TripFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}
	filter.Normalize()

	trips, total, err := h.service.GetTrips(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	response.Success(c, models.TripsResponse{
		Data:       trips,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	})
}
