package config

import (
	"os"
	"path/filepath"
	"testing"

	"sensor_data_migrator/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DATABASE_URI", "DATABASE_SCHEMA", "ARCHIVE_BACKEND", "X_AWS_REGION",
		"X_AWS_ACCESS_KEY_ID", "X_AWS_SECRET_ACCESS_KEY", "X_AWS_ENDPOINT",
		"RETENTION_DAYS", "LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database:
  driver: postgres
  schema: depot
  postgres:
    host: localhost
    port: 5432
    user: postgres
    password: secret
    dbname: plants
    sslmode: disable
    timezone: UTC
archive:
  backend: dynamodb
  region: eu-west-1
logging:
  log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "depot", cfg.Database.Schema)
	assert.Equal(t, "eu-west-1", cfg.Archive.Region)
	assert.Equal(t, DefaultRetentionDays, cfg.Archive.RetentionDays)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "result.log", cfg.Logging.LogFile)
	assert.Equal(t, 4, cfg.Database.ConnectionPool.MaxOpenConns)
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=plants sslmode=disable TimeZone=UTC",
		cfg.GetDSN())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URI", "postgresql://archiver:pw@db.internal:5432/plants")
	t.Setenv("X_AWS_REGION", "us-east-2")
	t.Setenv("RETENTION_DAYS", "90")

	path := writeConfig(t, `
database:
  driver: sqlite
  sqlite:
    path: local.db
archive:
  region: eu-west-1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgresql://archiver:pw@db.internal:5432/plants", cfg.GetDSN())
	assert.Equal(t, "us-east-2", cfg.Archive.Region)
	assert.Equal(t, 90, cfg.Archive.RetentionDays)
}

func TestLoadWithoutFileUsesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URI", "sqlite://archive-test.db")
	t.Setenv("ARCHIVE_BACKEND", "sql")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "archive-test.db", cfg.GetDSN())
	assert.Equal(t, "sql", cfg.Archive.Backend)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "no database",
			cfg:     Config{Archive: ArchiveConfig{Backend: "sql"}},
			wantErr: "database driver or DATABASE_URI is required",
		},
		{
			name: "mysql without host",
			cfg: Config{
				Database: DatabaseConfig{Driver: "mysql", MySQL: MySQLConfig{User: "u", DBName: "d"}},
				Archive:  ArchiveConfig{Backend: "sql"},
			},
			wantErr: "mysql host is required",
		},
		{
			name: "dynamodb without region",
			cfg: Config{
				Database: DatabaseConfig{Driver: "sqlite", SQLite: SQLiteConfig{Path: "x.db"}},
				Archive:  ArchiveConfig{Backend: "dynamodb"},
			},
			wantErr: "archive region is required",
		},
		{
			name: "half a credential pair",
			cfg: Config{
				Database: DatabaseConfig{Driver: "sqlite", SQLite: SQLiteConfig{Path: "x.db"}},
				Archive:  ArchiveConfig{Backend: "dynamodb", Region: "eu-west-1", AccessKeyID: "AKIA"},
			},
			wantErr: "must be set together",
		},
		{
			name: "unknown backend",
			cfg: Config{
				Database: DatabaseConfig{Driver: "sqlite", SQLite: SQLiteConfig{Path: "x.db"}},
				Archive:  ArchiveConfig{Backend: "s3"},
			},
			wantErr: "unsupported archive backend",
		},
		{
			name: "unsupported uri scheme",
			cfg: Config{
				Database: DatabaseConfig{URI: "oracle://x", Driver: "oracle"},
				Archive:  ArchiveConfig{Backend: "sql"},
			},
			wantErr: "unsupported database driver",
		},
		{
			name: "valid sqlite",
			cfg: Config{
				Database: DatabaseConfig{Driver: "sqlite", SQLite: SQLiteConfig{Path: "x.db"}},
				Archive:  ArchiveConfig{Backend: "sql"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDriverFromURI(t *testing.T) {
	assert.Equal(t, "postgres", driverFromURI("postgres://a@b/c"))
	assert.Equal(t, "postgres", driverFromURI("postgresql://a@b/c"))
	assert.Equal(t, "mysql", driverFromURI("mysql://u:p@tcp(h:3306)/db"))
	assert.Equal(t, "sqlite", driverFromURI("sqlite://file.db"))
	assert.Equal(t, "", driverFromURI("no-scheme"))
}
