package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homesync/pkg/api/types"
	"homesync/pkg/device"
)

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, device.ErrValidation), errors.Is(err, device.ErrConfig):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_record",
			Message: err.Error(),
		})
	case errors.Is(err, device.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, types.ErrorResponse{
			Error:   "timeout",
			Message: "Request timed out waiting for the store",
		})
	default:
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "store_error",
			Message: err.Error(),
		})
	}
}
