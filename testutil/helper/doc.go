// Package helper provides shared test fixtures and observability spies for the catalog packages.
//
// The spies capture log records, metric calls and tracing spans so that tests can assert on the
// instrumentation of a component without a real backend.
package helper
