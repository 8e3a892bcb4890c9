package scanner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sensor_data_migrator/config"
	"sensor_data_migrator/database"
	"sensor_data_migrator/logger"
	"sensor_data_migrator/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:         "sqlite",
			SQLite:         config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "import.db")},
			ConnectionPool: config.PoolConfig{MaxIdleConns: 1, MaxOpenConns: 1},
		},
		Migration: config.MigrationConfig{MigrationTable: "migrations", MigrationDir: t.TempDir()},
	}
	log := logger.New(&bytes.Buffer{}, logger.ERROR)
	db, err := database.Connect(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.NewMigrationRunner(db, cfg, log).AutoMigrateModels())
	return db
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParseReading(t *testing.T) {
	reading, code, err := parseReading([]string{
		"2024-04-01T10:15:00Z", "SN-9", "21.5", "48", "0.31", "1200", "1.72", "kitchen",
	})
	require.NoError(t, err)
	assert.Equal(t, "SN-9", code)
	assert.Equal(t, time.Date(2024, 4, 1, 10, 15, 0, 0, time.UTC), reading.Timestamp)
	assert.Equal(t, 21.5, reading.Temperature)
	assert.Equal(t, 1.72, reading.MoistureVoltage)
	require.NotNil(t, reading.Location)
	assert.Equal(t, "kitchen", *reading.Location)

	reading, _, err = parseReading([]string{"2024-04-01 10:15:00", "SN-9", "1", "2", "3", "4", "5"})
	require.NoError(t, err)
	assert.Nil(t, reading.Location)

	_, _, err = parseReading([]string{"2024-04-01T10:15:00Z", "SN-9", "1"})
	assert.ErrorContains(t, err, "insufficient columns")

	_, _, err = parseReading([]string{"2024-04-01T10:15:00Z", "SN-9", "1", "2", "wet", "4", "5"})
	assert.ErrorContains(t, err, "invalid moisture value")

	_, _, err = parseReading([]string{"noon", "SN-9", "1", "2", "3", "4", "5"})
	assert.ErrorContains(t, err, "invalid timestamp")
}

func TestIsHeaderRow(t *testing.T) {
	assert.True(t, isHeaderRow(Columns))
	assert.False(t, isHeaderRow([]string{"2024-04-01T10:15:00Z", "SN-1"}))
}

func TestScanDirectoryImportsReadings(t *testing.T) {
	db := openDB(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "timestamp,sensor_code,temperature,humidity,moisture,light,moisture_voltage,location\n"+
		"2024-04-01T10:00:00Z,SN-1,20,50,0.3,900,1.5,hall\n"+
		"2024-04-01T10:15:00Z,SN-1,21,51,0.3,950,1.5,hall\n"+
		"2024-04-01T10:15:00Z,SN-2,19,60,0.4,100,1.6,\n"+
		"bogus,SN-2,19,60,0.4,100,1.6,\n")
	writeFile(t, dir, "b.csv", "2024-04-01T10:00:00Z,SN-1,20,50,0.3,900,1.5,hall\n")
	writeFile(t, dir, "notes.txt", "ignored")

	var out bytes.Buffer
	cs := NewCSVScanner(db, "", logger.New(&out, logger.INFO))
	cs.SetWorkerCount(1)

	summary, err := cs.ScanDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Files)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 4, summary.Records)
	assert.Equal(t, 1, summary.Errors)

	var sensors []models.Sensor
	require.NoError(t, db.Order("sensor_id").Find(&sensors).Error)
	require.Len(t, sensors, 2)
	assert.Equal(t, "SN-1", sensors[0].Code)

	// the duplicate row in b.csv is skipped
	var count int64
	require.NoError(t, db.Model(&models.SensorReading{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
	assert.Contains(t, out.String(), "IMPORT SUMMARY")
}

func TestScanDirectoryMissing(t *testing.T) {
	cs := NewCSVScanner(nil, "", logger.New(&bytes.Buffer{}, logger.INFO))
	_, err := cs.ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestScanDirectoryEmptyFileFails(t *testing.T) {
	db := openDB(t)
	dir := t.TempDir()
	writeFile(t, dir, "empty.csv", "")

	cs := NewCSVScanner(db, "", logger.New(&bytes.Buffer{}, logger.INFO))
	summary, err := cs.ScanDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
}
