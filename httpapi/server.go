package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/celsus/core/catalog"
)

const (
	// HeaderOwner carries the authenticated owner id.
	HeaderOwner = "X-Celsus-User"

	contextKeyGuard = "guard"
	shutdownTimeout = 10 * time.Second
)

// ErrNilStore is returned when NewServer receives no store.
var ErrNilStore = errors.New("catalog store must not be nil")

// Store is the part of postgresengine.CatalogStore the REST routes use.
type Store interface {
	ListLibraries(ctx context.Context, guard catalog.AuthorizationGuard) ([]catalog.LibraryWithCount, error)
	GetLibrary(ctx context.Context, guard catalog.AuthorizationGuard, id uuid.UUID) (*catalog.LibraryWithCount, error)
	CreateLibrary(ctx context.Context, guard catalog.AuthorizationGuard, in catalog.LibraryInput) (uuid.UUID, error)
	UpdateLibrary(ctx context.Context, guard catalog.AuthorizationGuard, in catalog.LibraryInput) (bool, error)
	DeleteLibrary(ctx context.Context, guard catalog.AuthorizationGuard, id uuid.UUID) (bool, error)

	ListBooksFromLibrary(ctx context.Context, guard catalog.AuthorizationGuard, libraryID uuid.UUID, offset int, pageSize int) (catalog.BooksPage, error)
	SearchBooks(ctx context.Context, guard catalog.AuthorizationGuard, offset int, keywords []string, pageSize int) (catalog.BooksPage, error)
	GetBook(ctx context.Context, guard catalog.AuthorizationGuard, id uuid.UUID) (*catalog.Book, error)
	GetThumbnail(ctx context.Context, guard catalog.AuthorizationGuard, book catalog.Book) ([]byte, error)
	CreateBook(ctx context.Context, guard catalog.AuthorizationGuard, in catalog.BookInput) (uuid.UUID, error)
	UpdateBook(ctx context.Context, guard catalog.AuthorizationGuard, in catalog.BookInput) (bool, error)
	DeleteBook(ctx context.Context, guard catalog.AuthorizationGuard, id uuid.UUID) (bool, error)
}

// Server serves the catalog routes.
type Server struct {
	store    Store
	echo     *echo.Echo
	logger   catalog.Logger
	pageSize int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request and failure logs.
func WithLogger(logger catalog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPageSize sets the number of books per listed page. Values are clamped like catalog.PageSize.
func WithPageSize(pageSize int) Option {
	return func(s *Server) {
		s.pageSize = catalog.PageSize(pageSize)
	}
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(store Store, options ...Option) (*Server, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	s := &Server{
		store:    store,
		echo:     echo.New(),
		pageSize: catalog.DefaultPageSize,
	}

	for _, option := range options {
		option(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.JSONSerializer = jsonSerializer{}

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.echo.Use(s.requestLog())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,

		UnsafeWildcardOriginWithAllowCredentials: true,
	}))

	s.routes()

	return s, nil
}

func (s *Server) routes() {
	owned := s.echo.Group("", s.requireOwner)

	owned.GET("/libraries", s.listLibraries)
	owned.POST("/libraries", s.postLibrary)
	owned.GET("/libraries/:id", s.getLibrary)
	owned.DELETE("/libraries/:id", s.deleteLibrary)
	owned.GET("/libraries/:id/books", s.listLibraryBooks)

	owned.GET("/books", s.searchBooks)
	owned.POST("/books", s.postBook)
	owned.GET("/books/:id", s.getBook)
	owned.DELETE("/books/:id", s.deleteBook)
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run listens on address until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, address string) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.echo.Start(address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) requireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		guard, err := catalog.GuardFor(c.Request().Header.Get(HeaderOwner))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		}

		c.Set(contextKeyGuard, guard)

		return next(c)
	}
}

// readContext lets read-only routes be served by a replica when the store has one.
func readContext(c echo.Context) context.Context {
	return catalog.WithEventualConsistency(c.Request().Context())
}

func guardOf(c echo.Context) catalog.AuthorizationGuard {
	guard, _ := c.Get(contextKeyGuard).(catalog.AuthorizationGuard)
	return guard
}

func (s *Server) requestLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			if s.logger != nil {
				s.logger.Info("http request",
					"method", c.Request().Method,
					"path", c.Path(),
					"status", c.Response().Status,
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				)
			}

			return err
		}
	}
}
