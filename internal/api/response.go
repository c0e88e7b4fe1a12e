package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"RebarForecast/internal/model"
)

// APIResponse represents standard API response.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// DataResponse writes API response with status and data.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse writes bad request error.
func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// StatusFor maps a forecast error kind to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrEmptySeries):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse writes the response for a forecast error. Internal failures
// are not echoed back to the client.
func ErrorResponse(c echo.Context, err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		return DataResponse(c, status, "Something went wrong")
	}
	return DataResponse(c, status, err.Error())
}
