package database

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sensor_data_migrator/logger"
	"sensor_data_migrator/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMigrateModelsCreatesTables(t *testing.T) {
	db, _ := openTestDB(t)

	for _, model := range append(append(models.GetEntityModels(), models.GetDepotModels()...), models.GetScoreModels()...) {
		assert.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.True(t, db.Migrator().HasTable(&ArchivedRecord{}))
}

func TestMigrationRunnerLifecycle(t *testing.T) {
	db, cfg := openTestDB(t)
	var out bytes.Buffer
	runner := NewMigrationRunner(db, cfg, logger.New(&out, logger.INFO))

	path, err := runner.CreateMigration("Add reading index")
	require.NoError(t, err)
	assert.Equal(t, cfg.Migration.MigrationDir, filepath.Dir(path))
	require.NoError(t, os.WriteFile(path,
		[]byte("CREATE INDEX IF NOT EXISTS idx_readings_ts ON sensor_readings (timestamp);"), 0o644))

	pending, err := runner.GetPendingMigrations()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "add reading index", pending[0].Name)

	require.NoError(t, runner.RunMigrations())
	assert.Contains(t, out.String(), "All migrations completed successfully")

	status, err := runner.GetMigrationStatus()
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.True(t, status[0].Applied)

	assert.True(t, db.Migrator().HasTable(cfg.Migration.MigrationTable))

	out.Reset()
	require.NoError(t, runner.RunMigrations())
	assert.Contains(t, out.String(), "No pending migrations to run")
}

func TestMigrationRunnerRejectsBadFileName(t *testing.T) {
	db, cfg := openTestDB(t)
	require.NoError(t, os.MkdirAll(cfg.Migration.MigrationDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Migration.MigrationDir, "broken.sql"), []byte("SELECT 1;"), 0o644))

	runner := NewMigrationRunner(db, cfg, logger.New(&bytes.Buffer{}, logger.INFO))
	_, err := runner.GetMigrationFiles()
	assert.Error(t, err)
}

func TestArchiveTableAppend(t *testing.T) {
	db, _ := openTestDB(t)
	archive := NewArchiveTable(db)
	ctx := context.Background()

	require.NoError(t, archive.Append(ctx, models.TableReadings, nil))

	records := []models.ArchiveRecord{
		models.SensorReading{SensorCode: "SN-1", Timestamp: base, Temperature: 0.1 + 0.2}.ArchiveRecord(),
		models.SensorReading{SensorCode: "SN-1", Timestamp: base.Add(15 * time.Minute), Temperature: 21}.ArchiveRecord(),
	}
	require.NoError(t, archive.Append(ctx, models.TableReadings, records))

	count, err := archive.Count(ctx, models.TableReadings)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = archive.Count(ctx, models.TableDailySummaries)
	require.NoError(t, err)
	assert.Zero(t, count)

	stored, err := archive.Records(ctx, models.TableReadings)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "SN-1", stored[0]["sensor"])
	assert.Equal(t, "0.3", stored[0]["temperature"])
	assert.Equal(t, "2024-01-10T12:00:00Z", stored[0]["timestamp"])
	assert.Nil(t, stored[0]["location"])
}
