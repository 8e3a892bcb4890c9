// Package twilight answers sunrise, sunset and day/night questions for a
// location without calling out to a web service.
package twilight

import (
	"fmt"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// SunTimes holds sunrise and sunset in UTC
type SunTimes struct {
	Sunrise time.Time
	Sunset  time.Time
}

// Calculator computes and caches sun times per date for one location
type Calculator struct {
	observer astral.Observer
	lock     sync.RWMutex
	cache    map[string]SunTimes
}

// NewCalculator creates a Calculator for the given coordinates
func NewCalculator(latitude, longitude float64) *Calculator {
	return &Calculator{
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
		cache:    make(map[string]SunTimes),
	}
}

// SunTimes returns sunrise and sunset for the calendar date of date. It fails
// on dates where the sun does not rise or set at this latitude.
func (c *Calculator) SunTimes(date time.Time) (SunTimes, error) {
	key := date.Format(time.DateOnly)

	c.lock.RLock()
	times, ok := c.cache[key]
	c.lock.RUnlock()
	if ok {
		return times, nil
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	sunrise, err := astral.Sunrise(c.observer, day)
	if err != nil {
		return SunTimes{}, fmt.Errorf("failed to calculate sunrise for %s: %w", key, err)
	}
	sunset, err := astral.Sunset(c.observer, day)
	if err != nil {
		return SunTimes{}, fmt.Errorf("failed to calculate sunset for %s: %w", key, err)
	}

	times = SunTimes{Sunrise: sunrise.UTC(), Sunset: sunset.UTC()}
	c.lock.Lock()
	c.cache[key] = times
	c.lock.Unlock()
	return times, nil
}

// IsDaylight reports whether t falls between sunrise and sunset on its date
func (c *Calculator) IsDaylight(t time.Time) (bool, error) {
	times, err := c.SunTimes(t.UTC())
	if err != nil {
		return false, err
	}
	return IsDay(t.UTC(), times.Sunrise, times.Sunset), nil
}

// IsDay compares times of day only. When sunrise is later than sunset, as
// happens in UTC far from Greenwich, the day window wraps midnight.
func IsDay(now, sunrise, sunset time.Time) bool {
	n, rise, set := clock(now), clock(sunrise), clock(sunset)
	if rise < set {
		return n >= rise && n <= set
	}
	return n >= rise || n <= set
}

// clock returns the time of day as a duration since midnight
func clock(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}
