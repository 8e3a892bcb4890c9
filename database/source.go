package database

import (
	"context"
	"fmt"
	"time"

	"sensor_data_migrator/apperr"
	"sensor_data_migrator/archiver"
	"sensor_data_migrator/models"

	"gorm.io/gorm"
)

// Factory hands out repositories pinned to one pooled connection
type Factory struct {
	db     *gorm.DB
	schema string
}

// NewFactory creates a Factory over the pool. Reading and summary tables
// are qualified with schema when it is not empty.
func NewFactory(db *gorm.DB, schema string) *Factory {
	return &Factory{db: db, schema: schema}
}

// WithSource runs fn against a repository bound to a single connection,
// which goes back to the pool when fn returns
func (f *Factory) WithSource(ctx context.Context, fn func(archiver.SourceStore) error) error {
	var fnErr error
	err := f.db.WithContext(ctx).Connection(func(tx *gorm.DB) error {
		fnErr = fn(NewRepository(tx, f.schema))
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return apperr.Store("acquire connection", err)
}

// Repository reads and deletes archivable rows
type Repository struct {
	db     *gorm.DB
	schema string
}

// NewRepository creates a Repository
func NewRepository(db *gorm.DB, schema string) *Repository {
	return &Repository{db: db, schema: schema}
}

// table qualifies a depot table name with the configured schema
func (r *Repository) table(name string) string {
	if r.schema == "" {
		return name
	}
	return r.schema + "." + name
}

// ListSensors returns every sensor ordered by id
func (r *Repository) ListSensors(ctx context.Context) ([]models.Sensor, error) {
	var sensors []models.Sensor
	if err := r.db.WithContext(ctx).Order("id").Find(&sensors).Error; err != nil {
		return nil, apperr.Store("list sensors", err)
	}
	return sensors, nil
}

// ListUserPlants returns every user plant ordered by id
func (r *Repository) ListUserPlants(ctx context.Context) ([]models.UserPlant, error) {
	var plants []models.UserPlant
	if err := r.db.WithContext(ctx).Order("id").Find(&plants).Error; err != nil {
		return nil, apperr.Store("list user plants", err)
	}
	return plants, nil
}

// ReadReadings returns the sensor's readings at or before upto
func (r *Repository) ReadReadings(ctx context.Context, sensor models.Sensor, upto time.Time) ([]models.SensorReading, error) {
	var readings []models.SensorReading
	err := r.readings(ctx, sensor, upto).Order("timestamp").Find(&readings).Error
	if err != nil {
		return nil, apperr.Store("read readings", err)
	}
	for i := range readings {
		readings[i].SensorCode = sensor.Code
	}
	return readings, nil
}

// DeleteReadings deletes the sensor's readings at or before upto
func (r *Repository) DeleteReadings(ctx context.Context, sensor models.Sensor, upto time.Time) (int64, error) {
	result := r.readings(ctx, sensor, upto).Delete(&models.SensorReading{})
	if result.Error != nil {
		return 0, apperr.Store("delete readings", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) readings(ctx context.Context, sensor models.Sensor, upto time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Table(r.table(models.SensorReading{}.TableName())).
		Where("sensor_id = ? AND timestamp <= ?", sensor.ID, upto.UTC())
}

// ReadDailySummaries returns the sensor's summaries dated on or before the
// calendar date of upto
func (r *Repository) ReadDailySummaries(ctx context.Context, sensor models.Sensor, upto time.Time) ([]models.DailySummary, error) {
	var summaries []models.DailySummary
	err := r.dailySummaries(ctx, sensor, upto).Order("date").Find(&summaries).Error
	if err != nil {
		return nil, apperr.Store("read daily summaries", err)
	}
	for i := range summaries {
		summaries[i].SensorCode = sensor.Code
	}
	return summaries, nil
}

// DeleteDailySummaries deletes the sensor's summaries dated on or before
// the calendar date of upto
func (r *Repository) DeleteDailySummaries(ctx context.Context, sensor models.Sensor, upto time.Time) (int64, error) {
	result := r.dailySummaries(ctx, sensor, upto).Delete(&models.DailySummary{})
	if result.Error != nil {
		return 0, apperr.Store("delete daily summaries", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) dailySummaries(ctx context.Context, sensor models.Sensor, upto time.Time) *gorm.DB {
	date := time.Date(upto.Year(), upto.Month(), upto.Day(), 0, 0, 0, 0, time.UTC)
	return r.db.WithContext(ctx).
		Table(r.table(models.DailySummary{}.TableName())).
		Where("sensor_id = ? AND date <= ?", sensor.ID, date)
}

// ReadScores returns the user plant's scores of one kind at or before upto
func (r *Repository) ReadScores(ctx context.Context, plant models.UserPlant, kind models.ScoreKind, upto time.Time) ([]models.ScoreRecord, error) {
	db := r.db.WithContext(ctx)
	var records []models.ScoreRecord
	var err error
	switch kind {
	case models.ScoreOverall:
		records, err = readScores[models.PlantScoreRow](db, plant.ID, upto)
	case models.ScoreTemperature:
		records, err = readScores[models.TemperatureScoreRow](db, plant.ID, upto)
	case models.ScoreHumidity:
		records, err = readScores[models.HumidityScoreRow](db, plant.ID, upto)
	case models.ScoreLight:
		records, err = readScores[models.LightScoreRow](db, plant.ID, upto)
	case models.ScoreMoisture:
		records, err = readScores[models.MoistureScoreRow](db, plant.ID, upto)
	default:
		err = fmt.Errorf("unknown score kind %q", kind)
	}
	if err != nil {
		return nil, apperr.Store(fmt.Sprintf("read %s score", kind), err)
	}
	return records, nil
}

// DeleteScores deletes the user plant's scores of one kind at or before upto
func (r *Repository) DeleteScores(ctx context.Context, plant models.UserPlant, kind models.ScoreKind, upto time.Time) (int64, error) {
	db := r.db.WithContext(ctx)
	var deleted int64
	var err error
	switch kind {
	case models.ScoreOverall:
		deleted, err = deleteScores[models.PlantScoreRow](db, plant.ID, upto)
	case models.ScoreTemperature:
		deleted, err = deleteScores[models.TemperatureScoreRow](db, plant.ID, upto)
	case models.ScoreHumidity:
		deleted, err = deleteScores[models.HumidityScoreRow](db, plant.ID, upto)
	case models.ScoreLight:
		deleted, err = deleteScores[models.LightScoreRow](db, plant.ID, upto)
	case models.ScoreMoisture:
		deleted, err = deleteScores[models.MoistureScoreRow](db, plant.ID, upto)
	default:
		err = fmt.Errorf("unknown score kind %q", kind)
	}
	if err != nil {
		return 0, apperr.Store(fmt.Sprintf("delete %s score", kind), err)
	}
	return deleted, nil
}

func readScores[T models.ScoreRow](db *gorm.DB, userPlantID int64, upto time.Time) ([]models.ScoreRecord, error) {
	var rows []T
	err := db.Where("user_plant_id = ? AND timestamp <= ?", userPlantID, upto.UTC()).
		Order("timestamp").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]models.ScoreRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record())
	}
	return records, nil
}

func deleteScores[T models.ScoreRow](db *gorm.DB, userPlantID int64, upto time.Time) (int64, error) {
	var row T
	result := db.Where("user_plant_id = ? AND timestamp <= ?", userPlantID, upto.UTC()).Delete(&row)
	return result.RowsAffected, result.Error
}

// Stats summarises the archivable tables
type Stats struct {
	Sensors        int64
	UserPlants     int64
	Readings       int64
	DailySummaries int64
	Scores         int64
	OldestReading  *time.Time
}

// Stats counts rows in the entity, depot and score tables
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	db := r.db.WithContext(ctx)
	var stats Stats

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&stats.Sensors, db.Model(&models.Sensor{})},
		{&stats.UserPlants, db.Model(&models.UserPlant{})},
		{&stats.Readings, db.Table(r.table(models.SensorReading{}.TableName()))},
		{&stats.DailySummaries, db.Table(r.table(models.DailySummary{}.TableName()))},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return Stats{}, apperr.Store("count rows", err)
		}
	}
	for _, model := range models.GetScoreModels() {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			return Stats{}, apperr.Store("count scores", err)
		}
		stats.Scores += n
	}

	if stats.Readings > 0 {
		var oldest []models.SensorReading
		err := db.Table(r.table(models.SensorReading{}.TableName())).Order("timestamp").Limit(1).Find(&oldest).Error
		if err != nil {
			return Stats{}, apperr.Store("find oldest reading", err)
		}
		if len(oldest) == 1 {
			stats.OldestReading = &oldest[0].Timestamp
		}
	}
	return stats, nil
}
