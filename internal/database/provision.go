package database

import (
	"context"
	"fmt"
	"log"
	"regexp"

	"github.com/jackc/pgx/v5"
)

var databaseNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EnsureDatabaseExists creates the catalog database on first boot of a fresh Postgres server.
// It connects through the always-present "postgres" database.
func EnsureDatabaseExists(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := validateDatabaseName(cfg.Database); err != nil {
		return fmt.Errorf("invalid database name: %w", err)
	}

	admin := *cfg
	admin.Database = "postgres"
	conn, err := pgx.Connect(ctx, admin.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, cfg.Database,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		return nil
	}

	// identifiers cannot be bound as parameters
	createSQL := fmt.Sprintf("CREATE DATABASE %s OWNER %s",
		pgx.Identifier{cfg.Database}.Sanitize(), pgx.Identifier{cfg.User}.Sanitize())
	if _, err := conn.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create database %s: %w", cfg.Database, err)
	}

	log.Printf("Created database %s", cfg.Database)
	return nil
}

func validateDatabaseName(name string) error {
	if name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if !databaseNamePattern.MatchString(name) {
		return fmt.Errorf("database name %q must start with a letter or underscore and contain only letters, numbers, and underscores", name)
	}
	return nil
}
