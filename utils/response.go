package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatwave-api/services"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Data  interface{} `json:"data"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func SendError(c *gin.Context, status int, err string) {
	c.JSON(status, ErrorResponse{
		Error: err,
		Code:  status,
	})
}

// SendEngineError maps the engine error taxonomy onto HTTP statuses. Any
// other error is an internal failure.
func SendEngineError(c *gin.Context, err error) {
	var engineErr *services.Error
	if !errors.As(err, &engineErr) {
		SendError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch engineErr.Kind {
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindForbidden:
		status = http.StatusForbidden
	case services.KindConflict:
		status = http.StatusConflict
	case services.KindInvalidReference:
		status = http.StatusUnprocessableEntity
	case services.KindStoreUnavailable:
		status = http.StatusServiceUnavailable
	case services.KindPartialFailure:
		// The first half committed; the caller can retry the remainder.
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Error:   engineErr.Code,
		Message: engineErr.Message,
		Code:    status,
	})
}

func SendSuccess(c *gin.Context, message string, data interface{}) {
	response := SuccessResponse{
		Message: message,
	}
	if data != nil {
		response.Data = data
	}
	c.JSON(http.StatusOK, response)
}

func SendCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

func SendPaginated(c *gin.Context, data interface{}, page, limit int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:  data,
		Page:  page,
		Limit: limit,
	})
}
