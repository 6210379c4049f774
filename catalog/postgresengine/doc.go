// Package postgresengine stores the book catalog in PostgreSQL.
//
// CatalogStore runs on a pgxpool.Pool, a database/sql DB (lib/pq) or a sqlx.DB, optionally with a
// read replica used for reads when the context carries catalog.EventualConsistency.
// Statements are built with goqu and always scoped to the owner of the catalog.AuthorizationGuard.
//
// Full text search relies on the books_search table, kept in sync with book by a trigger
// created by Migrate.
package postgresengine
