package archiver_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"sensor_data_migrator/archiver"
	"sensor_data_migrator/config"
	"sensor_data_migrator/database"
	"sensor_data_migrator/logger"
	"sensor_data_migrator/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveAgainstSQLite(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:         "sqlite",
			SQLite:         config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "plants.db")},
			ConnectionPool: config.PoolConfig{MaxIdleConns: 2, MaxOpenConns: 4},
		},
		Archive:   config.ArchiveConfig{Backend: "sql"},
		Migration: config.MigrationConfig{MigrationTable: "migrations", MigrationDir: t.TempDir()},
	}
	var out bytes.Buffer
	log := logger.New(&out, logger.INFO)

	db, err := database.Connect(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.NewMigrationRunner(db, cfg, log).AutoMigrateModels())

	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	plantID := int64(3)
	require.NoError(t, db.Create(&models.Sensor{ID: 1, Code: "A1B2"}).Error)
	require.NoError(t, db.Create(&models.UserPlant{ID: plantID, PersonalName: "Monstera"}).Error)
	require.NoError(t, db.Create(&[]models.SensorReading{
		{SensorID: 1, UserPlantID: &plantID, Timestamp: cutoff.Add(-30 * time.Minute), Temperature: 21.25, Light: 0.1 + 0.2},
		{SensorID: 1, UserPlantID: &plantID, Timestamp: cutoff.Add(-15 * time.Minute), Temperature: 21.5},
		{SensorID: 1, UserPlantID: &plantID, Timestamp: cutoff.Add(15 * time.Minute), Temperature: 22},
	}).Error)
	require.NoError(t, db.Create(&models.TemperatureScoreRow{
		UserPlantID: plantID, Timestamp: cutoff.Add(-time.Hour), TemperatureScore: 0.9, TemperatureScoreUsable: true,
	}).Error)

	archive := database.NewArchiveTable(db)
	a := archiver.New(database.NewFactory(db, ""), archive, log)
	ctx := context.Background()

	require.NoError(t, a.Archive(ctx, archiver.Request{Cutoff: cutoff}))

	readings, err := archive.Records(ctx, models.TableReadings)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "A1B2", readings[0]["sensor"])
	assert.Equal(t, "3", readings[0]["user_plant"])
	assert.Equal(t, "0.3", readings[0]["light"])
	assert.Equal(t, "2024-02-29T23:30:00Z", readings[0]["timestamp"])

	scores, err := archive.Records(ctx, models.TableTemperatureScore)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "0.9", scores[0]["temperature_score"])
	assert.Equal(t, true, scores[0]["temperature_score_usable"])

	var remaining int64
	require.NoError(t, db.Model(&models.SensorReading{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)

	// nothing left to move
	require.NoError(t, a.Archive(ctx, archiver.Request{Cutoff: cutoff}))
	count, err := archive.Count(ctx, models.TableReadings)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.Contains(t, out.String(), "Working on sensor 1 (A1B2) for sensor data")
	assert.Contains(t, out.String(), "Archived 2 readings")
}
