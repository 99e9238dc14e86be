package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/trip-features-go/internal/features"
	"github.com/jengzang/trip-features-go/internal/models"
	"github.com/jengzang/trip-features-go/internal/service"
	"github.com/jengzang/trip-features-go/pkg/response"
)

// FeatureHandler handles HTTP requests for feature models
type FeatureHandler struct {
	service *service.FeatureService
}

// NewFeatureHandler creates a new feature handler
func NewFeatureHandler(service *service.FeatureService) *FeatureHandler {
	return &FeatureHandler{service: service}
}

// FitModel handles POST /api/v1/models
func (h *FeatureHandler) FitModel(c *gin.Context) {
	var req models.FitModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	model, err := h.service.Fit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, model)
}

// ListModels handles GET /api/v1/models
func (h *FeatureHandler) ListModels(c *gin.Context) {
	list, err := h.service.ListModels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, list)
}

// GetModel handles GET /api/v1/models/:id
func (h *FeatureHandler) GetModel(c *gin.Context) {
	model, err := h.service.GetModel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, model)
}

// Transform handles POST /api/v1/models/:id/transform
func (h *FeatureHandler) Transform(c *gin.Context) {
	var req models.TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	results, err := h.service.Transform(c.Request.Context(), c.Param("id"), models.TripInputs(req.Rows))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, results)
}

// GetCells handles GET /api/v1/models/:id/cells
func (h *FeatureHandler) GetCells(c *gin.Context) {
	var filter models.CellFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}
	kind := features.Pickup
	if filter.Kind != "" {
		kind = features.PointKind(filter.Kind)
	}

	cells, err := h.service.Cells(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, models.GridCellsResponse{
		ModelID: c.Param("id"),
		Kind:    string(kind),
		Cells:   cells,
	})
}
