// Package event decodes the payload that triggers an archive run
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"sensor_data_migrator/archiver"
	"sensor_data_migrator/config"
)

// cutoffLayouts are tried in order. Layouts without an offset are UTC.
var cutoffLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// Payload is the JSON body of a scheduled or manual invocation
type Payload struct {
	CutoffTimestamp      string  `json:"cutoff_timestamp,omitempty"`
	SelectedSensorIDs    []int64 `json:"selected_sensor_ids,omitempty"`
	SelectedUserPlantIDs []int64 `json:"selected_user_plant_ids,omitempty"`

	// Older scheduler payloads
	TimestampUpto      string  `json:"timestamp_upto,omitempty"`
	SelectedSensors    []int64 `json:"selected_sensors,omitempty"`
	SelectedUserPlants []int64 `json:"selected_user_plants,omitempty"`
}

// Result is returned to the invoker once a run finishes
type Result struct {
	Cutoff string `json:"cutoff_timestamp"`
	Status string `json:"status"`
}

// Decode reads a payload from r. Empty input is an empty payload.
func Decode(r io.Reader) (Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Payload{}, nil
		}
		return Payload{}, fmt.Errorf("invalid event payload: %w", err)
	}
	return p, nil
}

// Request turns the payload into an archive request. Without a cutoff the
// run archives everything older than retentionDays before now.
func (p Payload) Request(now time.Time, retentionDays int) (archiver.Request, error) {
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	raw := first(p.CutoffTimestamp, p.TimestampUpto)
	cutoff := now.UTC().AddDate(0, 0, -retentionDays)
	if raw != "" {
		parsed, err := ParseCutoff(raw)
		if err != nil {
			return archiver.Request{}, err
		}
		cutoff = parsed
	}

	return archiver.Request{
		Cutoff:       cutoff,
		SensorIDs:    firstIDs(p.SelectedSensorIDs, p.SelectedSensors),
		UserPlantIDs: firstIDs(p.SelectedUserPlantIDs, p.SelectedUserPlants),
	}, nil
}

// ParseCutoff parses an ISO-8601 timestamp. Naive timestamps and bare
// dates are taken as UTC; a bare date means midnight at its start.
func ParseCutoff(s string) (time.Time, error) {
	for _, layout := range cutoffLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid cutoff timestamp %q: expected ISO-8601", s)
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstIDs(lists ...[]int64) []int64 {
	for _, ids := range lists {
		if len(ids) > 0 {
			return ids
		}
	}
	return nil
}
