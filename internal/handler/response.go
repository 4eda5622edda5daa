package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/siberfx/wirechat/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// respondError maps service sentinels onto the HTTP taxonomy:
// 401 unauthenticated, 403 forbidden, 404 not found (or filtered out by
// visibility), 422 validation, 429 rate limited.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing or invalid credentials"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not allowed"))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "resource not found"))
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusUnprocessableEntity, NewErrorResponse("validation_failed", err.Error()))
	case errors.Is(err, service.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, NewErrorResponse("rate_limited", "too many messages, slow down"))
	default:
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "unexpected error"))
	}
}
