package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DecimalPlaces is the fixed precision floats are rounded to before archiving
const DecimalPlaces = 6

// TableKind identifies one of the archived record kinds
type TableKind string

const (
	TableReadings         TableKind = "readings"
	TableDailySummaries   TableKind = "daily_summaries"
	TablePlantScore       TableKind = "plant_score"
	TableTemperatureScore TableKind = "temperature_score"
	TableHumidityScore    TableKind = "humidity_score"
	TableLightScore       TableKind = "light_score"
	TableMoistureScore    TableKind = "moisture_score"
)

// TableKinds returns every archived record kind
func TableKinds() []TableKind {
	return []TableKind{
		TableReadings,
		TableDailySummaries,
		TablePlantScore,
		TableTemperatureScore,
		TableHumidityScore,
		TableLightScore,
		TableMoistureScore,
	}
}

// ArchiveRecord is a record in its archive-safe form. Values are one of
// string, decimal.Decimal, bool or nil.
type ArchiveRecord map[string]interface{}

// Timestamp formats t as an RFC 3339 string in UTC
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Date formats the calendar date of t as YYYY-MM-DD
func Date(t time.Time) string {
	return t.Format(time.DateOnly)
}

// Decimal encodes f with fixed precision. NaN and infinities have no
// decimal form and encode as nil.
func Decimal(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return decimal.NewFromFloat(f).Round(DecimalPlaces)
}

// OptionalDecimal is Decimal for nullable columns
func OptionalDecimal(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return Decimal(*f)
}
