package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rahulp1273/recipe-hub/internal/model"
	"github.com/rahulp1273/recipe-hub/internal/service"
	"go.uber.org/zap"
)

var statusByCode = map[service.ErrorCode]int{
	service.CodeNotFound:           http.StatusNotFound,
	service.CodeAccountNotFound:    http.StatusNotFound,
	service.CodeExpired:            http.StatusGone,
	service.CodeTooManyAttempts:    http.StatusTooManyRequests,
	service.CodeTooManyRequests:    http.StatusTooManyRequests,
	service.CodeInvalidCode:        http.StatusUnauthorized,
	service.CodeInvalidCredentials: http.StatusUnauthorized,
	service.CodeInvalidPurpose:     http.StatusUnprocessableEntity,
	service.CodeInvalidPassword:    http.StatusUnprocessableEntity,
	service.CodeEmailTaken:         http.StatusConflict,
	service.CodeStorageUnavailable: http.StatusServiceUnavailable,
}

// respondError renders business errors as 4xx with their stable code and
// everything else as a logged 500 that hides the cause.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var appErr *service.Error
	if errors.As(err, &appErr) {
		status, ok := statusByCode[appErr.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		c.JSON(status, model.ErrorResponse{Error: appErr.Message, Code: string(appErr.Code)})
		return
	}

	log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Internal server error", Code: "INTERNAL"})
}

func respondInvalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Code: "INVALID_REQUEST", Message: err.Error()})
}
