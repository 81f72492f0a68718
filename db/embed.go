// Package db provides the embedded database migrations and the development
// catalog seed.
package db

import "embed"

// Migrations holds the golang-migrate files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that holds the files.
const MigrationsDir = "migrations"

// Seed holds the default development catalog.
//
//go:embed seed/catalog.json
var Seed []byte
