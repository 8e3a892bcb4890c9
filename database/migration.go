package database

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sensor_data_migrator/config"
	"sensor_data_migrator/logger"
	"sensor_data_migrator/models"

	"gorm.io/gorm"
)

// Migration represents a database migration
type Migration struct {
	ID          uint   `gorm:"primaryKey"`
	Version     string `gorm:"unique;not null"`
	Name        string `gorm:"not null"`
	Applied     bool   `gorm:"default:false"`
	AppliedAt   *time.Time
	Description string
}

// MigrationFile represents a migration file
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	FilePath    string
	Applied     bool
}

// MigrationRunner handles database migrations
type MigrationRunner struct {
	db             *gorm.DB
	log            *logger.Logger
	migrationTable string
	migrationDir   string
	schema         string
	archiveTable   bool
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(db *gorm.DB, cfg *config.Config, log *logger.Logger) *MigrationRunner {
	return &MigrationRunner{
		db:             db,
		log:            log,
		migrationTable: cfg.Migration.MigrationTable,
		migrationDir:   cfg.Migration.MigrationDir,
		schema:         cfg.Database.Schema,
		archiveTable:   cfg.Archive.Backend == "sql",
	}
}

// migrations scopes queries to the configured migration table
func (mr *MigrationRunner) migrations() *gorm.DB {
	return mr.db.Table(mr.migrationTable)
}

// InitializeMigrationTable creates the migration table if it doesn't exist
func (mr *MigrationRunner) InitializeMigrationTable() error {
	return mr.migrations().AutoMigrate(&Migration{})
}

// AutoMigrateModels creates or updates the source tables from the models,
// and the SQL archive table when that backend is configured
func (mr *MigrationRunner) AutoMigrateModels() error {
	if mr.schema != "" && mr.db.Dialector.Name() == "postgres" {
		if err := mr.db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", mr.schema)).Error; err != nil {
			return fmt.Errorf("failed to create schema %s: %w", mr.schema, err)
		}
	}

	if err := mr.db.AutoMigrate(models.GetEntityModels()...); err != nil {
		return fmt.Errorf("failed to migrate entity tables: %w", err)
	}
	for _, model := range models.GetDepotModels() {
		db := mr.db
		if mr.schema != "" {
			db = db.Table(mr.schema + "." + tableName(model))
		}
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", tableName(model), err)
		}
	}
	if err := mr.db.AutoMigrate(models.GetScoreModels()...); err != nil {
		return fmt.Errorf("failed to migrate score tables: %w", err)
	}
	if mr.archiveTable {
		if err := NewArchiveTable(mr.db).Migrate(); err != nil {
			return fmt.Errorf("failed to migrate archive table: %w", err)
		}
	}

	mr.log.Println("Model tables are up to date")
	return nil
}

func tableName(model interface{}) string {
	if tabler, ok := model.(interface{ TableName() string }); ok {
		return tabler.TableName()
	}
	return fmt.Sprintf("%T", model)
}

// migrationVersionLayout prefixes every migration file name
const migrationVersionLayout = "20060102_150405"

// parseMigrationFile splits a YYYYMMDD_HHMMSS_description.sql file name
func parseMigrationFile(dir, filename string) (MigrationFile, error) {
	parts := strings.SplitN(strings.TrimSuffix(filename, ".sql"), "_", 3)
	if len(parts) < 3 {
		return MigrationFile{}, fmt.Errorf("invalid migration filename format: %s (expected: YYYYMMDD_HHMMSS_description.sql)", filename)
	}
	version := parts[0] + "_" + parts[1]
	if _, err := time.Parse(migrationVersionLayout, version); err != nil {
		return MigrationFile{}, fmt.Errorf("invalid migration version in %s: %w", filename, err)
	}
	return MigrationFile{
		Version:     version,
		Name:        strings.ReplaceAll(parts[2], "_", " "),
		Description: parts[2],
		FilePath:    filepath.Join(dir, filename),
	}, nil
}

// GetMigrationFiles returns the .sql files in the migration directory,
// oldest version first. A missing directory has no migrations.
func (mr *MigrationRunner) GetMigrationFiles() ([]MigrationFile, error) {
	entries, err := os.ReadDir(mr.migrationDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var files []MigrationFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		file, err := parseMigrationFile(mr.migrationDir, entry.Name())
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// GetAppliedMigrations returns all applied migrations from the database
func (mr *MigrationRunner) GetAppliedMigrations() ([]Migration, error) {
	if err := mr.InitializeMigrationTable(); err != nil {
		return nil, fmt.Errorf("failed to initialize migration table: %w", err)
	}

	var applied []Migration
	if err := mr.migrations().Where("applied = ?", true).Order("version ASC").Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	return applied, nil
}

// GetMigrationStatus returns every migration file marked with whether it
// has been applied
func (mr *MigrationRunner) GetMigrationStatus() ([]MigrationFile, error) {
	files, err := mr.GetMigrationFiles()
	if err != nil {
		return nil, err
	}
	applied, err := mr.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}

	versions := make(map[string]struct{}, len(applied))
	for _, m := range applied {
		versions[m.Version] = struct{}{}
	}
	for i := range files {
		_, files[i].Applied = versions[files[i].Version]
	}
	return files, nil
}

// GetPendingMigrations returns migrations that haven't been applied yet
func (mr *MigrationRunner) GetPendingMigrations() ([]MigrationFile, error) {
	files, err := mr.GetMigrationStatus()
	if err != nil {
		return nil, err
	}
	var pending []MigrationFile
	for _, file := range files {
		if !file.Applied {
			pending = append(pending, file)
		}
	}
	return pending, nil
}

// RunMigrations applies every pending migration in version order, each in
// its own transaction. It stops at the first failure.
func (mr *MigrationRunner) RunMigrations() error {
	pending, err := mr.GetPendingMigrations()
	if err != nil {
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}
	if len(pending) == 0 {
		mr.log.Println("No pending migrations to run")
		return nil
	}

	mr.log.Printf("Running %d pending migration(s)...\n", len(pending))
	for i, file := range pending {
		mr.log.LogProgress(i+1, len(pending), file.Version+" "+file.Name)
		if err := mr.apply(file); err != nil {
			mr.log.LogResult("Migration "+file.Version, false, err.Error())
			return fmt.Errorf("failed to run migration %s: %w", file.Version, err)
		}
	}

	mr.log.Println("All migrations completed successfully")
	return nil
}

// apply executes one migration file and records it
func (mr *MigrationRunner) apply(file MigrationFile) error {
	content, err := os.ReadFile(file.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	return mr.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(string(content)).Error; err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}

		appliedAt := time.Now().UTC()
		record := Migration{
			Version:     file.Version,
			Name:        file.Name,
			Applied:     true,
			AppliedAt:   &appliedAt,
			Description: file.Description,
		}
		if err := tx.Table(mr.migrationTable).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}

// CreateMigration writes an empty, timestamped migration file and returns its path
func (mr *MigrationRunner) CreateMigration(name string) (string, error) {
	if err := os.MkdirAll(mr.migrationDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	now := time.Now()
	slug := strings.Join(strings.Fields(strings.ToLower(name)), "_")
	filePath := filepath.Join(mr.migrationDir, fmt.Sprintf("%s_%s.sql", now.Format(migrationVersionLayout), slug))

	body := fmt.Sprintf(`-- Migration: %s
-- Created: %s

-- Readings and daily summaries live in the configured schema, if any.
-- Example:
-- CREATE INDEX IF NOT EXISTS idx_sensor_readings_sensor_timestamp
--     ON sensor_readings (sensor_id, timestamp);
`, name, now.Format(time.DateTime))

	if err := os.WriteFile(filePath, []byte(body), 0644); err != nil {
		return "", fmt.Errorf("failed to create migration file: %w", err)
	}
	return filePath, nil
}
