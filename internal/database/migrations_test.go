package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_NilConfig(t *testing.T) {
	err := RunMigrations(nil)
	assert.EqualError(t, err, "database config is nil")
}

func TestRunMigrations_InvalidConfig(t *testing.T) {
	err := RunMigrations(&Config{Host: "localhost"})
	assert.ErrorContains(t, err, "invalid config")
}

func TestMigrations_EveryUpHasDown(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	require.NotEmpty(t, names)

	for name := range names {
		if strings.HasSuffix(name, ".up.sql") {
			down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
			assert.True(t, names[down], "missing %s", down)
		}
	}
}
