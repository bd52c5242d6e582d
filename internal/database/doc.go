// Package database provides the PostgreSQL connection pool used by the
// submission journal.
package database
