// Package config loads the immutable runtime configuration of celsus and builds the clients
// that depend on it: PostgreSQL pools for each supported driver, the AWS configuration and the
// OpenTelemetry providers.
//
// A configuration is read once at startup from an optional YAML file, then overridden from the
// environment, then validated. Nothing in it changes afterwards.
package config
