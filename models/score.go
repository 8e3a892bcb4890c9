package models

import (
	"fmt"
	"strconv"
	"time"
)

// ScoreKind is one of the score variants computed for a user plant
type ScoreKind string

const (
	ScoreOverall     ScoreKind = "overall"
	ScoreTemperature ScoreKind = "temperature"
	ScoreHumidity    ScoreKind = "humidity"
	ScoreLight       ScoreKind = "light"
	ScoreMoisture    ScoreKind = "moisture"
)

// ScoreKinds returns the score kinds in archiving order
func ScoreKinds() []ScoreKind {
	return []ScoreKind{ScoreOverall, ScoreTemperature, ScoreHumidity, ScoreLight, ScoreMoisture}
}

// TableKind returns the archive table kind the score is written to
func (k ScoreKind) TableKind() TableKind {
	switch k {
	case ScoreOverall:
		return TablePlantScore
	case ScoreTemperature:
		return TableTemperatureScore
	case ScoreHumidity:
		return TableHumidityScore
	case ScoreLight:
		return TableLightScore
	case ScoreMoisture:
		return TableMoistureScore
	default:
		panic(fmt.Sprintf("unknown score kind: %q", string(k)))
	}
}

// fieldPrefix is the column prefix the kind uses in both stores
func (k ScoreKind) fieldPrefix() string {
	if k == ScoreOverall {
		return ""
	}
	return string(k) + "_"
}

// ScoreRecord is the kind-independent form of a score row
type ScoreRecord struct {
	Kind        ScoreKind
	ID          int64
	UserPlantID int64
	Timestamp   time.Time
	Score       float64
	RolledScore *float64
	Usable      bool
}

// ArchiveRecord converts the score into its archive representation. Field
// names keep the kind prefix of the source table.
func (s ScoreRecord) ArchiveRecord() ArchiveRecord {
	prefix := s.Kind.fieldPrefix()
	return ArchiveRecord{
		"user_plant":            strconv.FormatInt(s.UserPlantID, 10),
		"timestamp":             Timestamp(s.Timestamp),
		prefix + "score":        Decimal(s.Score),
		prefix + "rolled_score": OptionalDecimal(s.RolledScore),
		prefix + "score_usable": s.Usable,
	}
}

// ScoreRow is implemented by the per-kind score table models
type ScoreRow interface {
	TableName() string
	Record() ScoreRecord
}

// PlantScoreRow is a row of the overall score table
type PlantScoreRow struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	UserPlantID int64 `gorm:"index"`
	Timestamp   time.Time
	Score       float64
	RolledScore *float64
	ScoreUsable bool
}

// TableName customizes the table name
func (PlantScoreRow) TableName() string { return "score_user_plant_score" }

// Record converts the row to a ScoreRecord
func (r PlantScoreRow) Record() ScoreRecord {
	return ScoreRecord{ScoreOverall, r.ID, r.UserPlantID, r.Timestamp, r.Score, r.RolledScore, r.ScoreUsable}
}

// TemperatureScoreRow is a row of the temperature score table
type TemperatureScoreRow struct {
	ID                     int64 `gorm:"primaryKey;autoIncrement"`
	UserPlantID            int64 `gorm:"index"`
	Timestamp              time.Time
	TemperatureScore       float64
	TemperatureRolledScore *float64
	TemperatureScoreUsable bool
}

// TableName customizes the table name
func (TemperatureScoreRow) TableName() string { return "score_user_plant_temperature_score" }

// Record converts the row to a ScoreRecord
func (r TemperatureScoreRow) Record() ScoreRecord {
	return ScoreRecord{ScoreTemperature, r.ID, r.UserPlantID, r.Timestamp, r.TemperatureScore, r.TemperatureRolledScore, r.TemperatureScoreUsable}
}

// HumidityScoreRow is a row of the humidity score table
type HumidityScoreRow struct {
	ID                  int64 `gorm:"primaryKey;autoIncrement"`
	UserPlantID         int64 `gorm:"index"`
	Timestamp           time.Time
	HumidityScore       float64
	HumidityRolledScore *float64
	HumidityScoreUsable bool
}

// TableName customizes the table name
func (HumidityScoreRow) TableName() string { return "score_user_plant_humidity_score" }

// Record converts the row to a ScoreRecord
func (r HumidityScoreRow) Record() ScoreRecord {
	return ScoreRecord{ScoreHumidity, r.ID, r.UserPlantID, r.Timestamp, r.HumidityScore, r.HumidityRolledScore, r.HumidityScoreUsable}
}

// LightScoreRow is a row of the light score table
type LightScoreRow struct {
	ID               int64 `gorm:"primaryKey;autoIncrement"`
	UserPlantID      int64 `gorm:"index"`
	Timestamp        time.Time
	LightScore       float64
	LightRolledScore *float64
	LightScoreUsable bool
}

// TableName customizes the table name
func (LightScoreRow) TableName() string { return "score_user_plant_light_score" }

// Record converts the row to a ScoreRecord
func (r LightScoreRow) Record() ScoreRecord {
	return ScoreRecord{ScoreLight, r.ID, r.UserPlantID, r.Timestamp, r.LightScore, r.LightRolledScore, r.LightScoreUsable}
}

// MoistureScoreRow is a row of the moisture score table
type MoistureScoreRow struct {
	ID                  int64 `gorm:"primaryKey;autoIncrement"`
	UserPlantID         int64 `gorm:"index"`
	Timestamp           time.Time
	MoistureScore       float64
	MoistureRolledScore *float64
	MoistureScoreUsable bool
}

// TableName customizes the table name
func (MoistureScoreRow) TableName() string { return "score_user_plant_moisture_score" }

// Record converts the row to a ScoreRecord
func (r MoistureScoreRow) Record() ScoreRecord {
	return ScoreRecord{ScoreMoisture, r.ID, r.UserPlantID, r.Timestamp, r.MoistureScore, r.MoistureRolledScore, r.MoistureScoreUsable}
}
