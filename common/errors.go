package common

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Error kinds surfaced by the participation and adjudication flows. Each maps
// to its own HTTP status and message; endpoints must not collapse them into a
// generic failure.
var (
	// ErrNotFound record does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidState lifecycle forbids the operation
	ErrInvalidState = errors.New("invalid tournament state")

	// ErrAlreadyRegistered user already in the participant set
	ErrAlreadyRegistered = errors.New("user already registered")

	// ErrNotRegistered user not in the participant set
	ErrNotRegistered = errors.New("user not registered")

	// ErrTournamentFull participant cap reached
	ErrTournamentFull = errors.New("tournament is full")

	// ErrConflict optimistic-concurrency check failed, caller should retry
	ErrConflict = errors.New("concurrent modification, retry with a fresh read")

	// ErrForbidden verified identity lacks the required role
	ErrForbidden = errors.New("insufficient privileges")

	// ErrUnauthenticated missing or invalid token
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrInvalidInput request payload failed validation
	ErrInvalidInput = errors.New("invalid input")
)

// RespondError maps a service error onto the HTTP response. Wrapped errors
// keep their kind via errors.Is; the wrapped text becomes the user-visible
// message so clients get the precise reason (e.g. "winner must be a match
// participant") rather than the bare kind.
func RespondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		status = fiber.StatusConflict
	case errors.Is(err, ErrAlreadyRegistered):
		status = fiber.StatusConflict
	case errors.Is(err, ErrNotRegistered):
		status = fiber.StatusConflict
	case errors.Is(err, ErrTournamentFull):
		status = fiber.StatusForbidden
	case errors.Is(err, ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, ErrUnauthenticated):
		status = fiber.StatusUnauthorized
	case errors.Is(err, ErrInvalidInput):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
