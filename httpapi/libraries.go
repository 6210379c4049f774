package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/celsus/core/catalog"
)

type libraryRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GET /libraries
func (s *Server) listLibraries(c echo.Context) error {
	libraries, err := s.store.ListLibraries(readContext(c), guardOf(c))
	if err != nil {
		return s.respondError(c, err)
	}

	if libraries == nil {
		libraries = []catalog.LibraryWithCount{}
	}

	return c.JSON(http.StatusOK, libraries)
}

// POST /libraries creates a library without id and updates the one with the given id otherwise.
func (s *Server) postLibrary(c echo.Context) error {
	var req libraryRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	in := catalog.LibraryInput{Name: req.Name, Description: req.Description}
	ctx := c.Request().Context()

	if req.ID == "" {
		id, err := s.store.CreateLibrary(ctx, guardOf(c), in)
		if err != nil {
			return s.respondError(c, err)
		}

		return c.JSON(http.StatusCreated, echo.Map{"id": id})
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	in.ID = id

	updated, err := s.store.UpdateLibrary(ctx, guardOf(c), in)
	if err != nil {
		return s.respondError(c, err)
	}

	if !updated {
		return badRequest(c, "library not updated")
	}

	return c.NoContent(http.StatusNoContent)
}

// GET /libraries/:id
func (s *Server) getLibrary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}

	library, err := s.store.GetLibrary(readContext(c), guardOf(c), id)
	if err != nil {
		return s.respondError(c, err)
	}

	if library == nil {
		return notFound(c)
	}

	return c.JSON(http.StatusOK, library)
}

// DELETE /libraries/:id
func (s *Server) deleteLibrary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}

	deleted, err := s.store.DeleteLibrary(c.Request().Context(), guardOf(c), id)
	if err != nil {
		return s.respondError(c, err)
	}

	if !deleted {
		return notFound(c)
	}

	return c.NoContent(http.StatusNoContent)
}

// GET /libraries/:id/books?offset=
func (s *Server) listLibraryBooks(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}

	offset, err := offsetOf(c)
	if err != nil {
		return badRequest(c, "invalid offset")
	}

	page, err := s.store.ListBooksFromLibrary(readContext(c), guardOf(c), id, offset, s.pageSize)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusOK, nonNilBooks(page))
}
