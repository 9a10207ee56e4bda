// Package database manages the PostgreSQL connection pool backing the
// notification archive and applies its schema migrations.
package database
