package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/celsus/core/catalog"
)

func (s *Server) respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, catalog.ErrValidation),
		errors.Is(err, catalog.ErrLibraryNotFound),
		errors.Is(err, catalog.ErrUnknownLanguage):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})

	case errors.Is(err, catalog.ErrMissingOwner):
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})

	default:
		if s.logger != nil {
			s.logger.Error("request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err.Error(),
			)
		}

		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"message": message})
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"message": "not found"})
}
