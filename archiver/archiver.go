// Package archiver moves aged sensor and score rows from the relational
// source store into the archive store, one entity at a time.
package archiver

import (
	"context"
	"fmt"
	"time"

	"sensor_data_migrator/logger"
	"sensor_data_migrator/models"
	"sensor_data_migrator/timeutil"
)

// SourceStore reads and deletes rows in the relational store. Deletes use
// the same predicate as the matching read.
type SourceStore interface {
	ListSensors(ctx context.Context) ([]models.Sensor, error)
	ListUserPlants(ctx context.Context) ([]models.UserPlant, error)
	ReadReadings(ctx context.Context, sensor models.Sensor, upto time.Time) ([]models.SensorReading, error)
	DeleteReadings(ctx context.Context, sensor models.Sensor, upto time.Time) (int64, error)
	ReadDailySummaries(ctx context.Context, sensor models.Sensor, upto time.Time) ([]models.DailySummary, error)
	DeleteDailySummaries(ctx context.Context, sensor models.Sensor, upto time.Time) (int64, error)
	ReadScores(ctx context.Context, plant models.UserPlant, kind models.ScoreKind, upto time.Time) ([]models.ScoreRecord, error)
	DeleteScores(ctx context.Context, plant models.UserPlant, kind models.ScoreKind, upto time.Time) (int64, error)
}

// SourceFactory scopes a SourceStore to a single connection for the
// duration of fn. The connection is released when fn returns.
type SourceFactory interface {
	WithSource(ctx context.Context, fn func(SourceStore) error) error
}

// ArchiveStore durably appends records. Appends are not idempotent.
type ArchiveStore interface {
	Append(ctx context.Context, kind models.TableKind, records []models.ArchiveRecord) error
}

// Request selects what a run archives
type Request struct {
	// Cutoff is the inclusive upper bound; rows at or before it are archived
	Cutoff time.Time
	// SensorIDs restricts the sensor phase. Empty means every sensor.
	SensorIDs []int64
	// UserPlantIDs restricts the user plant phase. Empty means every user plant.
	UserPlantIDs []int64
}

// Archiver drives the per-entity archive loop
type Archiver struct {
	sources SourceFactory
	archive ArchiveStore
	log     *logger.Logger
}

// New creates an Archiver
func New(sources SourceFactory, archive ArchiveStore, log *logger.Logger) *Archiver {
	if log == nil {
		log = logger.Default()
	}
	return &Archiver{sources: sources, archive: archive, log: log}
}

// phaseStats counts outcomes of one phase for the run summary
type phaseStats struct {
	total    int
	skipped  int
	failed   int
	archived int
	records  int
}

func (s phaseStats) String() string {
	return fmt.Sprintf("%d processed, %d skipped, %d failed, %d records archived",
		s.archived, s.skipped, s.failed, s.records)
}

// Archive moves every qualifying row to the archive store. Failures while
// processing a single entity are logged and the run continues; only a
// failure to load the entity lists, or cancellation of ctx, is returned.
func (a *Archiver) Archive(ctx context.Context, req Request) error {
	cutoff := req.Cutoff.UTC()
	cutoffDate := timeutil.DateOf(req.Cutoff)

	a.log.Printf("Starting archive run: readings and scores up to %s, daily summaries up to %s\n",
		models.Timestamp(cutoff), models.Date(cutoffDate))

	var sensors []models.Sensor
	var plants []models.UserPlant
	err := a.sources.WithSource(ctx, func(src SourceStore) error {
		var err error
		sensors, err = src.ListSensors(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load sensors: %w", err)
	}
	err = a.sources.WithSource(ctx, func(src SourceStore) error {
		var err error
		plants, err = src.ListUserPlants(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load user plants: %w", err)
	}

	sensorStats, err := a.archiveSensors(ctx, sensors, allowList(req.SensorIDs), cutoff, cutoffDate)
	if err != nil {
		return err
	}
	plantStats, err := a.archiveUserPlants(ctx, plants, allowList(req.UserPlantIDs), cutoff)
	if err != nil {
		return err
	}

	a.log.LogDivider()
	a.log.LogResult("Sensor phase", sensorStats.failed == 0, sensorStats.String())
	a.log.LogResult("User plant phase", plantStats.failed == 0, plantStats.String())
	return nil
}

func (a *Archiver) archiveSensors(ctx context.Context, sensors []models.Sensor, selected func(int64) bool,
	cutoff, cutoffDate time.Time) (phaseStats, error) {
	stats := phaseStats{total: len(sensors)}
	for _, sensor := range sensors {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("archive run interrupted before %s: %w", sensor, err)
		}
		if !selected(sensor.ID) {
			a.log.Debugf("Skipping %s\n", sensor)
			stats.skipped++
			continue
		}

		moved, err := isolate(func() (int, error) {
			return a.archiveSensor(ctx, sensor, cutoff, cutoffDate)
		})
		stats.records += moved
		if err != nil {
			a.log.Errorf("Error archiving %s: %v\n", sensor, err)
			stats.failed++
			continue
		}
		stats.archived++
	}
	return stats, nil
}

// archiveSensor moves one sensor's readings, then its daily summaries
func (a *Archiver) archiveSensor(ctx context.Context, sensor models.Sensor, cutoff, cutoffDate time.Time) (int, error) {
	moved := 0
	err := a.sources.WithSource(ctx, func(src SourceStore) error {
		a.log.Printf("Working on %s for sensor data\n", sensor)
		readings, err := src.ReadReadings(ctx, sensor, cutoff)
		if err != nil {
			return fmt.Errorf("read readings: %w", err)
		}
		n, err := a.move(ctx, models.TableReadings, toRecords(readings), func() (int64, error) {
			return src.DeleteReadings(ctx, sensor, cutoff)
		})
		moved += n
		if err != nil {
			return err
		}

		a.log.Printf("Working on %s for daily sensor data\n", sensor)
		summaries, err := src.ReadDailySummaries(ctx, sensor, cutoffDate)
		if err != nil {
			return fmt.Errorf("read daily summaries: %w", err)
		}
		n, err = a.move(ctx, models.TableDailySummaries, toRecords(summaries), func() (int64, error) {
			return src.DeleteDailySummaries(ctx, sensor, cutoffDate)
		})
		moved += n
		return err
	})
	return moved, err
}

func (a *Archiver) archiveUserPlants(ctx context.Context, plants []models.UserPlant, selected func(int64) bool,
	cutoff time.Time) (phaseStats, error) {
	stats := phaseStats{total: len(plants)}
	for _, plant := range plants {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("archive run interrupted before %s: %w", plant, err)
		}
		if !selected(plant.ID) {
			a.log.Debugf("Skipping %s\n", plant)
			stats.skipped++
			continue
		}

		moved, err := isolate(func() (int, error) {
			return a.archiveUserPlant(ctx, plant, cutoff)
		})
		stats.records += moved
		if err != nil {
			a.log.Errorf("Error archiving %s: %v\n", plant, err)
			stats.failed++
			continue
		}
		stats.archived++
	}
	return stats, nil
}

// archiveUserPlant moves every score kind of one user plant, in ScoreKinds order
func (a *Archiver) archiveUserPlant(ctx context.Context, plant models.UserPlant, cutoff time.Time) (int, error) {
	moved := 0
	err := a.sources.WithSource(ctx, func(src SourceStore) error {
		for _, kind := range models.ScoreKinds() {
			a.log.Printf("Working on %s for %s score\n", plant, kind)
			scores, err := src.ReadScores(ctx, plant, kind, cutoff)
			if err != nil {
				return fmt.Errorf("read %s score: %w", kind, err)
			}
			n, err := a.move(ctx, kind.TableKind(), toRecords(scores), func() (int64, error) {
				return src.DeleteScores(ctx, plant, kind, cutoff)
			})
			moved += n
			if err != nil {
				return err
			}
		}
		return nil
	})
	return moved, err
}

// move appends records to the archive and, only once that succeeded, runs
// del. Nothing is written or deleted for an empty batch.
func (a *Archiver) move(ctx context.Context, kind models.TableKind, records []models.ArchiveRecord,
	del func() (int64, error)) (int, error) {
	if len(records) == 0 {
		a.log.Debugf("No %s to archive\n", kind)
		return 0, nil
	}

	if err := a.archive.Append(ctx, kind, records); err != nil {
		return 0, fmt.Errorf("archive %s: %w", kind, err)
	}

	deleted, err := del()
	if err != nil {
		return len(records), fmt.Errorf("delete %s: %w", kind, err)
	}
	if deleted != int64(len(records)) {
		a.log.Warnf("Archived %d %s but deleted %d rows\n", len(records), kind, deleted)
	}
	a.log.Printf("Archived %d %s\n", len(records), kind)
	return len(records), nil
}

// isolate runs fn, turning a panic into an error so one entity cannot
// abort the run
func isolate(fn func() (int, error)) (moved int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// allowList returns a predicate for the given ids. No ids selects everything.
func allowList(ids []int64) func(int64) bool {
	if len(ids) == 0 {
		return func(int64) bool { return true }
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(id int64) bool {
		_, ok := set[id]
		return ok
	}
}

func toRecords[T interface{ ArchiveRecord() models.ArchiveRecord }](rows []T) []models.ArchiveRecord {
	records := make([]models.ArchiveRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.ArchiveRecord())
	}
	return records
}
