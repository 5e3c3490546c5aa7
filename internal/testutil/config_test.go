package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Run("defaults to local test database port 55432", func(t *testing.T) {
		for _, k := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
			t.Setenv(k, "")
		}
		cfg := DefaultTestDBConfig()
		assert.Equal(t, TestDBConfig{
			Host:     "localhost",
			Port:     "55432",
			User:     "gatekeeper",
			Password: "gatekeeper",
			DBName:   "gatekeeper",
		}, cfg)
	})

	t.Run("respects TEST_DB_PORT environment variable", func(t *testing.T) {
		t.Setenv("TEST_DB_PORT", "5432")
		assert.Equal(t, "5432", DefaultTestDBConfig().Port)
	})
}

func TestTestDBConfig_DSN(t *testing.T) {
	t.Setenv("DB_SSL_MODE", "")
	cfg := TestDBConfig{Host: "db", Port: "5432", User: "u", Password: "p@ss", DBName: "gk"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/gk?sslmode=disable", cfg.DSN())
}

func TestGenerateSchemaName(t *testing.T) {
	name := generateSchemaName()
	assert.True(t, strings.HasPrefix(name, "t_"))
	assert.NotEqual(t, name, generateSchemaName())
}

func TestEnvBool(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", "y"} {
		t.Setenv("GK_TEST_FLAG", v)
		assert.True(t, envBool("GK_TEST_FLAG"), v)
	}
	t.Setenv("GK_TEST_FLAG", "no")
	assert.False(t, envBool("GK_TEST_FLAG"))
}
