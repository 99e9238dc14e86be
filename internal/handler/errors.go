package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/trip-features-go/internal/service"
	"github.com/jengzang/trip-features-go/pkg/response"
)

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, service.ErrModelNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrNoTrips):
		response.Conflict(c, "no trips stored, import trips before fitting")
	default:
		response.InternalError(c, "internal error")
	}
}
