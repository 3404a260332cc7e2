// Package httpkit provides shared HTTP response helpers.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"despacho_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error body every endpoint returns.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// OK writes a 200 response.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Created writes a 201 response for newly registered resources.
func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}

// Error writes an error body with an explicit status code, for request
// parsing and validation failures that never reach the domain.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError writes the response for a domain error. Typed apperr values
// map through their Kind, anywhere in the wrap chain; anything untyped
// falls back to 400.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Details: domainErr.Details,
		})
		return
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}
