package handler

import (
	"errors"
	"net/http"

	"garmentflow/internal/apperror"
	"garmentflow/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error kind to its HTTP status
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInactive, apperror.KindConcurrentModification:
		return http.StatusConflict
	case apperror.KindInsufficientQuantity:
		return http.StatusUnprocessableEntity
	case apperror.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError renders a service error. Kinds carry their message and details;
// anything else is an internal failure whose text stays in the logs.
func writeError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
		return
	}

	var details interface{}
	switch {
	case appErr.Kind == apperror.KindInsufficientQuantity:
		details = gin.H{"requested": appErr.Requested, "available": appErr.Available}
	case len(appErr.Fields) > 0:
		details = appErr.Fields
	}

	status := statusFor(appErr.Kind)
	c.JSON(status, response.Failure(status, string(appErr.Kind), appErr.Error(), details))
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Failure(http.StatusBadRequest, string(apperror.KindValidation),
		"Invalid request payload: "+err.Error(), nil))
}
