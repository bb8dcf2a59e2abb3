package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "postgres", cfg.Ledger.Store)
	assert.Equal(t, 3, cfg.Ledger.ConflictRetries)
	assert.Equal(t, 25, cfg.DB.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.DB.LockTimeout)
	assert.False(t, cfg.DB.AutoMigrate)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Empty(t, cfg.Auth.Operators)
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_STORE", "MEMORY")
	t.Setenv("LEDGER_CONFLICT_RETRIES", "5")
	t.Setenv("DB_LOCK_TIMEOUT_MS", "1500")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AUTH_OPERATORS", "ana:admin:$2a$10$abc, luis:custodio:$2a$10$def")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Ledger.Store)
	assert.Equal(t, 5, cfg.Ledger.ConflictRetries)
	assert.Equal(t, 1500*time.Millisecond, cfg.DB.LockTimeout)
	assert.True(t, cfg.DB.AutoMigrate)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Auth.Operators, 2)
	assert.Equal(t, Operator{Username: "luis", Role: "custodio", PasswordHash: "$2a$10$def"}, cfg.Auth.Operators[1])
}

func TestLoad_StoreInvalido(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_STORE", "redis")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EnteroIlegibleUsaDefecto(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_MAX_CONNS", "muchas")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.DB.MaxConns)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "custodia", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/custodia?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}

func TestParseOperators(t *testing.T) {
	_, err := parseOperators("ana:admin")
	assert.Error(t, err)

	_, err = parseOperators("ana:admin:h1,ana:auditor:h2")
	assert.Error(t, err)

	ops, err := parseOperators("")
	require.NoError(t, err)
	assert.Empty(t, ops)
}
