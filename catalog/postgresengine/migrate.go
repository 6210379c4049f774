package postgresengine

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/celsus/core/catalog"
)

//go:embed schema.sql
var schemaTemplate string

const schemaPlaceholder = "{{schema}}"

// SchemaSQL returns the DDL of the catalog tables for the given schema.
func SchemaSQL(schemaName string) (string, error) {
	if !plainIdentifier.MatchString(schemaName) {
		return "", ErrInvalidSchemaName
	}

	return strings.ReplaceAll(schemaTemplate, schemaPlaceholder, schemaName), nil
}

// Migrate creates the catalog schema, tables, indexes and the search trigger if they do not exist.
// It is safe to run repeatedly.
func (cs *CatalogStore) Migrate(ctx context.Context) (err error) {
	observer, ctx := cs.startOperation(ctx, operationMigrate, catalog.AuthorizationGuard{})
	defer func() { observer.finish(err) }()

	ddl, err := SchemaSQL(cs.schemaName)
	if err != nil {
		return err
	}

	if _, err = cs.exec(ctx, cs.db, operationMigrate, statement{sql: ddl}); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}
