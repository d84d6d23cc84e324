package server

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Error is the JSON body of a failed request.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

// NewError builds an Error with the given status code.
func NewError(code int, msg string) Error {
	return Error{Code: code, Message: msg}
}

// ValidationError reports rejected request fields.
type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errs map[string]string) ValidationError {
	return ValidationError{Status: fiber.StatusUnprocessableEntity, Errors: errs}
}

func ErrBadRequest() Error {
	return NewError(fiber.StatusBadRequest, "invalid JSON request")
}

func ErrSessionNotFound(id string) Error {
	return NewError(fiber.StatusNotFound, "session not found: "+id)
}

// ErrorHandler renders every error returned by a handler as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Code).JSON(apiErr)
	}

	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}

	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	slog.Default().Warn("request failed", "component", "http-server",
		"method", c.Method(), "path", c.Path(), "code", code, "err", err)
	return c.Status(code).JSON(NewError(code, err.Error()))
}
