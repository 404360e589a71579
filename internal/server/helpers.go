package server

import (
	"errors"

	"silverlink/internal/models"
	"silverlink/internal/session"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// lookupSession resolves the :id route parameter. On failure it writes a
// 404 JSON response and returns errResponseWritten.
func (s *Server) lookupSession(c *fiber.Ctx) (*session.Session, error) {
	sess, err := s.registry.Get(c.Params("id"))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusNotFound, err)
		return nil, errResponseWritten
	}
	return sess, nil
}

// parseBody decodes the JSON body into dest, writing a 400 on failure.
func parseBody(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// respondError writes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}
