package models

// GetEntityModels returns the entity tables
func GetEntityModels() []interface{} {
	return []interface{}{
		&Sensor{},
		&UserPlant{},
	}
}

// GetDepotModels returns the time-series tables that live in the depot schema
func GetDepotModels() []interface{} {
	return []interface{}{
		&SensorReading{},
		&DailySummary{},
	}
}

// GetScoreModels returns the per-kind score tables
func GetScoreModels() []interface{} {
	return []interface{}{
		&PlantScoreRow{},
		&TemperatureScoreRow{},
		&HumidityScoreRow{},
		&LightScoreRow{},
		&MoistureScoreRow{},
	}
}
