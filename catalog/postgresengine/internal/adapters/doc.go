// Package adapters provides the database adapters used by the PostgreSQL catalog store.
//
// pgxpool.Pool, sql.DB and sqlx.DB are wrapped behind the common DBAdapter interface,
// so that the store builds one set of parameterised queries and runs them on any of them.
// Reads may be routed to a replica when the context asks for eventual consistency;
// writes and transactions always go to the primary.
package adapters
