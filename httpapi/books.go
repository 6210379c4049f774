package httpapi

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/celsus/core/catalog"
)

type bookRequest struct {
	ID           string           `json:"id"`
	LibraryID    string           `json:"libraryId"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	ISBN10       string           `json:"isbn10"`
	ISBN13       string           `json:"isbn13"`
	Thumbnail    string           `json:"thumbnail"`
	Authors      []string         `json:"authors"`
	Tags         []string         `json:"tags"`
	Language     catalog.Language `json:"language"`
	BookSet      string           `json:"bookSet"`
	BookSetOrder int              `json:"bookSetOrder"`
}

// bookResponse is a book with its thumbnail image inlined as base64.
type bookResponse struct {
	catalog.Book
	Thumbnail string `json:"thumbnail,omitempty"`
}

// GET /books?offset=&q=
func (s *Server) searchBooks(c echo.Context) error {
	offset, err := offsetOf(c)
	if err != nil {
		return badRequest(c, "invalid offset")
	}

	keywords := strings.Fields(c.QueryParam("q"))

	page, err := s.store.SearchBooks(readContext(c), guardOf(c), offset, keywords, s.pageSize)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusOK, nonNilBooks(page))
}

// GET /books/:id
func (s *Server) getBook(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}

	ctx := readContext(c)

	book, err := s.store.GetBook(ctx, guardOf(c), id)
	if err != nil {
		return s.respondError(c, err)
	}

	if book == nil {
		return notFound(c)
	}

	response := bookResponse{Book: *book}

	if book.ThumbnailRef != "" {
		data, thumbErr := s.store.GetThumbnail(ctx, guardOf(c), *book)
		if thumbErr != nil {
			return s.respondError(c, thumbErr)
		}

		if data != nil {
			response.Thumbnail = base64.StdEncoding.EncodeToString(data)
		}
	}

	return c.JSON(http.StatusOK, response)
}

// POST /books creates a book without id and updates the one with the given id otherwise.
func (s *Server) postBook(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	libraryID, err := uuid.Parse(req.LibraryID)
	if err != nil {
		return badRequest(c, "invalid library id")
	}

	in := catalog.BookInput{
		LibraryID:    libraryID,
		Title:        req.Title,
		Description:  req.Description,
		ISBN10:       req.ISBN10,
		ISBN13:       req.ISBN13,
		Thumbnail:    req.Thumbnail,
		Authors:      req.Authors,
		Tags:         req.Tags,
		Language:     req.Language,
		BookSet:      req.BookSet,
		BookSetOrder: req.BookSetOrder,
	}
	ctx := c.Request().Context()

	if req.ID == "" {
		id, createErr := s.store.CreateBook(ctx, guardOf(c), in)
		if createErr != nil {
			return s.respondError(c, createErr)
		}

		return c.JSON(http.StatusCreated, echo.Map{"id": id})
	}

	if in.ID, err = uuid.Parse(req.ID); err != nil {
		return badRequest(c, "invalid id")
	}

	updated, err := s.store.UpdateBook(ctx, guardOf(c), in)
	if err != nil {
		return s.respondError(c, err)
	}

	if !updated {
		return badRequest(c, "book not updated")
	}

	return c.NoContent(http.StatusNoContent)
}

// DELETE /books/:id
func (s *Server) deleteBook(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}

	deleted, err := s.store.DeleteBook(c.Request().Context(), guardOf(c), id)
	if err != nil {
		return s.respondError(c, err)
	}

	if !deleted {
		return notFound(c)
	}

	return c.NoContent(http.StatusNoContent)
}

func offsetOf(c echo.Context) (int, error) {
	raw := c.QueryParam("offset")
	if raw == "" {
		return 0, nil
	}

	return strconv.Atoi(raw)
}

func nonNilBooks(page catalog.BooksPage) catalog.BooksPage {
	if page.Books == nil {
		page.Books = []catalog.Book{}
	}

	return page
}
