package models

import "fmt"

// Sensor is a physical sensor device registered in the source store
type Sensor struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Code string `gorm:"column:sensor_id;size:255" json:"sensor_id"`
}

// TableName customizes the table name
func (Sensor) TableName() string {
	return "device_sensor"
}

func (s Sensor) String() string {
	return fmt.Sprintf("sensor %d (%s)", s.ID, s.Code)
}

// UserPlant is a plant owned by a user that scores are computed for
type UserPlant struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	PersonalName string `json:"personal_name"`
}

// TableName customizes the table name
func (UserPlant) TableName() string {
	return "user_plants_userplant"
}

func (p UserPlant) String() string {
	return fmt.Sprintf("user plant %d (%s)", p.ID, p.PersonalName)
}
