package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/celsus/core/catalog"
)

const listSeparator = "|"

var (
	// ErrMissingTitleColumn is returned when the CSV header has no title column.
	ErrMissingTitleColumn = errors.New("csv header must contain a title column")

	// ErrMalformedRow is returned for a CSV row that cannot be turned into a book.
	ErrMalformedRow = errors.New("malformed csv row")
)

// bookCreator is the part of the catalog store the import needs.
type bookCreator interface {
	CreateBook(ctx context.Context, guard catalog.AuthorizationGuard, in catalog.BookInput) (uuid.UUID, error)
}

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	var (
		ownerID   string
		libraryID string
	)

	cmd := &cobra.Command{
		Use:   "import <books.csv>",
		Short: "Import books from a CSV file into a library",
		Long: `Import books from a CSV file into one library of an owner. The header names the columns:
title, description, authors, tags, isbn10, isbn13, language, bookSet, bookSetOrder.
Only title is required. Authors and tags are separated by "|". Language defaults to gb.

Example:
  celsus import --owner user-1 --library 0190c7d2-... ./books.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guard, err := catalog.GuardFor(ownerID)
			if err != nil {
				return err
			}

			library, err := uuid.Parse(libraryID)
			if err != nil {
				return fmt.Errorf("invalid library id %q: %w", libraryID, err)
			}

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = file.Close() }()

			books, err := parseBooksCSV(file, library)
			if err != nil {
				return err
			}

			rt, err := newRuntime(cmd.Context(), opts, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			return importBooks(cmd.Context(), rt.store, guard, books, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner id the books belong to (required)")
	cmd.Flags().StringVar(&libraryID, "library", "", "id of the owner's library to import into (required)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("library")

	return cmd
}

// importBooks creates the books one by one and stops at the first failure.
func importBooks(
	ctx context.Context,
	store bookCreator,
	guard catalog.AuthorizationGuard,
	books []catalog.BookInput,
	out io.Writer,
) error {
	start := time.Now()

	for i, book := range books {
		if _, err := store.CreateBook(ctx, guard, book); err != nil {
			return fmt.Errorf("book %d (%q): %w", i+1, book.Title, err)
		}
	}

	printLine(out, fmt.Sprintf("imported %d books in %v", len(books), time.Since(start).Round(time.Millisecond)))

	return nil
}

func parseBooksCSV(r io.Reader, libraryID uuid.UUID) ([]catalog.BookInput, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Join(ErrMalformedRow, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	if _, ok := columns["title"]; !ok {
		return nil, ErrMissingTitleColumn
	}

	var books []catalog.BookInput

	for line := 2; ; line++ {
		row, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			return books, nil
		}

		if readErr != nil {
			return nil, errors.Join(ErrMalformedRow, readErr)
		}

		book, rowErr := bookFromRow(row, columns, libraryID)
		if rowErr != nil {
			return nil, fmt.Errorf("line %d: %w", line, rowErr)
		}

		books = append(books, book)
	}
}

func bookFromRow(row []string, columns map[string]int, libraryID uuid.UUID) (catalog.BookInput, error) {
	cell := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}

		return strings.TrimSpace(row[i])
	}

	book := catalog.BookInput{
		LibraryID:   libraryID,
		Title:       cell("title"),
		Description: cell("description"),
		ISBN10:      cell("isbn10"),
		ISBN13:      cell("isbn13"),
		Authors:     splitList(cell("authors")),
		Tags:        splitList(cell("tags")),
		Language:    catalog.Language(cell("language")),
		BookSet:     cell("bookSet"),
	}

	if book.Language == "" {
		book.Language = catalog.LanguageEnglish
	}

	if order := cell("bookSetOrder"); order != "" {
		value, err := strconv.Atoi(order)
		if err != nil {
			return catalog.BookInput{}, errors.Join(ErrMalformedRow, err)
		}

		book.BookSetOrder = value
	}

	return book, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}

	return strings.Split(value, listSeparator)
}
