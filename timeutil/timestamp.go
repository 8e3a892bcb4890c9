// Package timeutil holds the 15-minute bucketing and date helpers shared by
// the archiver and the fixture tooling.
package timeutil

import (
	"fmt"
	"time"
	// zone database for hosts without /usr/share/zoneinfo, e.g. Lambda
	_ "time/tzdata"
)

// BucketSize is the width of a reading bucket
const BucketSize = 15 * time.Minute

// RoundToNext15 moves t forward to the next quarter hour. A time already on
// a quarter hour still moves a full bucket forward. Seconds are dropped.
func RoundToNext15(t time.Time) time.Time {
	return BackTo15(t).Add(BucketSize)
}

// BackTo15 rolls t back to the start of its quarter hour
func BackTo15(t time.Time) time.Time {
	minute := t.Minute() - t.Minute()%15
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

// DateOf returns the calendar date of t, in t's own location, as midnight UTC
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ClockInZone converts a UTC time of day to the same instant's time of day
// in the named zone, using the zone's offset on date
func ClockInZone(clock time.Time, date time.Time, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown time zone %q: %w", zone, err)
	}
	year, month, day := date.Date()
	utc := time.Date(year, month, day, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), time.UTC)
	return utc.In(loc), nil
}
