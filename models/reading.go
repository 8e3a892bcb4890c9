package models

import (
	"strconv"
	"time"
)

// SensorReading represents one timestamped observation of a sensor
type SensorReading struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SensorID        int64     `gorm:"uniqueIndex:unique-sensor-timestamp-data;not null" json:"sensor_id"`
	UserPlantID     *int64    `json:"user_plant_id"`
	Timestamp       time.Time `gorm:"uniqueIndex:unique-sensor-timestamp-data;not null" json:"timestamp"`
	Temperature     float64   `json:"temperature"`
	Humidity        float64   `json:"humidity"`
	Moisture        float64   `json:"moisture"`
	Light           float64   `json:"light"`
	MoistureVoltage float64   `json:"moisture_voltage"`
	Location        *string   `json:"location"`

	// SensorCode is the external code of the owning sensor, filled in on read
	SensorCode string `gorm:"-" json:"-"`
}

// TableName customizes the table name
func (SensorReading) TableName() string {
	return "sensor_readings"
}

// ArchiveRecord converts the reading into its archive representation
func (r SensorReading) ArchiveRecord() ArchiveRecord {
	return ArchiveRecord{
		"sensor":           r.SensorCode,
		"user_plant":       idString(r.UserPlantID),
		"timestamp":        Timestamp(r.Timestamp),
		"temperature":      Decimal(r.Temperature),
		"humidity":         Decimal(r.Humidity),
		"moisture":         Decimal(r.Moisture),
		"light":            Decimal(r.Light),
		"moisture_voltage": Decimal(r.MoistureVoltage),
		"location":         optionalString(r.Location),
	}
}

// DailySummary is the per-day aggregate of a sensor's readings
type DailySummary struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SensorID    int64     `gorm:"uniqueIndex:single-daily-data-summary-per-sensor;not null" json:"sensor_id"`
	UserPlantID *int64    `json:"user_plant_id"`
	Date        time.Time `gorm:"type:date;uniqueIndex:single-daily-data-summary-per-sensor;not null" json:"date"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Moisture    *float64  `json:"moisture"`
	Light       *float64  `json:"light"`
	Location    *string   `json:"location"`

	SensorCode string `gorm:"-" json:"-"`
}

// TableName customizes the table name
func (DailySummary) TableName() string {
	return "daily_data_summary"
}

// ArchiveRecord converts the summary into its archive representation
func (d DailySummary) ArchiveRecord() ArchiveRecord {
	return ArchiveRecord{
		"sensor":      d.SensorCode,
		"user_plant":  idString(d.UserPlantID),
		"date":        Date(d.Date),
		"temperature": OptionalDecimal(d.Temperature),
		"humidity":    OptionalDecimal(d.Humidity),
		"moisture":    OptionalDecimal(d.Moisture),
		"light":       OptionalDecimal(d.Light),
		"location":    optionalString(d.Location),
	}
}

func idString(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return strconv.FormatInt(*id, 10)
}

func optionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
