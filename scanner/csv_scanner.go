// Package scanner imports sensor reading CSV files into the source store.
package scanner

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"sensor_data_migrator/logger"
	"sensor_data_migrator/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns is the expected header of a reading CSV. location may be omitted.
var Columns = []string{
	"timestamp", "sensor_code", "temperature", "humidity",
	"moisture", "light", "moisture_voltage", "location",
}

const (
	requiredColumns = 7
	insertBatchSize = 1000
)

// CSVScanner loads reading CSV files with a pool of workers
type CSVScanner struct {
	db          *gorm.DB
	table       string
	log         *logger.Logger
	workerCount int

	mu      sync.Mutex
	sensors map[string]int64
}

// FileJob represents a CSV file to be processed
type FileJob struct {
	FilePath string
	FileName string
}

// ProcessResult contains the result of processing a CSV file
type ProcessResult struct {
	FilePath    string
	RecordCount int
	ErrorCount  int
	Duration    time.Duration
	Error       error
}

// Summary totals the results of one directory scan
type Summary struct {
	Files    int
	Failed   int
	Records  int
	Errors   int
	Duration time.Duration
}

// NewCSVScanner creates a scanner writing to the readings table, qualified
// with schema when it is not empty
func NewCSVScanner(db *gorm.DB, schema string, log *logger.Logger) *CSVScanner {
	workerCount := runtime.NumCPU()
	if workerCount > 8 {
		workerCount = 8
	}
	if log == nil {
		log = logger.Default()
	}

	table := models.SensorReading{}.TableName()
	if schema != "" {
		table = schema + "." + table
	}

	return &CSVScanner{
		db:          db,
		table:       table,
		log:         log,
		workerCount: workerCount,
		sensors:     make(map[string]int64),
	}
}

// SetWorkerCount sets the number of parallel workers
func (cs *CSVScanner) SetWorkerCount(count int) {
	if count > 0 {
		cs.workerCount = count
	}
}

// ScanDirectory imports every CSV file directly inside directoryPath.
// Rows already present for the same sensor and timestamp are left alone.
func (cs *CSVScanner) ScanDirectory(ctx context.Context, directoryPath string) (Summary, error) {
	cs.log.Printf("Scanning directory: %s\n", directoryPath)

	info, err := os.Stat(directoryPath)
	if err != nil || !info.IsDir() {
		return Summary{}, fmt.Errorf("directory does not exist: %s", directoryPath)
	}

	csvFiles, err := findCSVFiles(directoryPath)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to find CSV files: %w", err)
	}
	if len(csvFiles) == 0 {
		cs.log.Println("No CSV files found in the directory")
		return Summary{}, nil
	}

	cs.log.Printf("Found %d CSV file(s) to process with %d parallel workers\n", len(csvFiles), cs.workerCount)

	results := cs.processFilesParallel(ctx, csvFiles)
	summary := cs.displaySummary(results)
	return summary, ctx.Err()
}

// findCSVFiles lists the CSV files in a directory (non-recursive)
func findCSVFiles(directoryPath string) ([]FileJob, error) {
	entries, err := os.ReadDir(directoryPath)
	if err != nil {
		return nil, err
	}

	var csvFiles []FileJob
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ".csv" {
			csvFiles = append(csvFiles, FileJob{
				FilePath: filepath.Join(directoryPath, entry.Name()),
				FileName: entry.Name(),
			})
		}
	}
	return csvFiles, nil
}

func (cs *CSVScanner) processFilesParallel(ctx context.Context, files []FileJob) []ProcessResult {
	jobs := make(chan FileJob, len(files))
	results := make(chan ProcessResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < cs.workerCount; i++ {
		wg.Add(1)
		go cs.worker(ctx, jobs, results, &wg)
	}

	for _, file := range files {
		jobs <- file
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var allResults []ProcessResult
	for result := range results {
		allResults = append(allResults, result)
	}
	return allResults
}

func (cs *CSVScanner) worker(ctx context.Context, jobs <-chan FileJob, results chan<- ProcessResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results <- ProcessResult{FilePath: job.FilePath, Error: err}
			continue
		}
		results <- cs.processCSVFile(ctx, job)
	}
}

// processCSVFile parses and inserts a single file
func (cs *CSVScanner) processCSVFile(ctx context.Context, job FileJob) ProcessResult {
	startTime := time.Now()
	result := ProcessResult{FilePath: job.FilePath}
	fail := func(err error) ProcessResult {
		result.Error = err
		result.Duration = time.Since(startTime)
		return result
	}

	cs.log.Printf("Processing file: %s\n", job.FileName)

	file, err := os.Open(job.FilePath)
	if err != nil {
		return fail(fmt.Errorf("failed to open file: %w", err))
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return fail(fmt.Errorf("failed to read CSV: %w", err))
	}
	if len(records) == 0 {
		return fail(errors.New("empty CSV file"))
	}

	rows, errorCount := cs.parseCSVRecords(ctx, records, job.FileName)
	result.RecordCount = len(rows)
	result.ErrorCount = errorCount

	if len(rows) > 0 {
		if err := cs.insertReadings(ctx, rows); err != nil {
			return fail(fmt.Errorf("failed to insert readings: %w", err))
		}
	}

	result.Duration = time.Since(startTime)
	cs.log.Printf("✓ Completed %s: %d records processed, %d errors in %v\n",
		job.FileName, result.RecordCount, result.ErrorCount, result.Duration)
	return result
}

// parseCSVRecords turns CSV rows into readings, counting the rows it rejects
func (cs *CSVScanner) parseCSVRecords(ctx context.Context, records [][]string, fileName string) ([]models.SensorReading, int) {
	var readings []models.SensorReading
	var errorCount int

	startRow := 0
	if isHeaderRow(records[0]) {
		startRow = 1
	}

	for i := startRow; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}

		reading, code, err := parseReading(record)
		if err != nil {
			errorCount++
			cs.log.Warnf("Row %d in %s: %v\n", i+1, fileName, err)
			continue
		}

		sensorID, err := cs.sensorID(ctx, code)
		if err != nil {
			errorCount++
			cs.log.Warnf("Row %d in %s: %v\n", i+1, fileName, err)
			continue
		}
		reading.SensorID = sensorID
		readings = append(readings, reading)
	}

	return readings, errorCount
}

// parseReading parses one data row. It returns the reading without its
// sensor id, and the sensor code the row names.
func parseReading(record []string) (models.SensorReading, string, error) {
	if len(record) < requiredColumns {
		return models.SensorReading{}, "", fmt.Errorf("insufficient columns (expected %d, got %d)", requiredColumns, len(record))
	}

	timestampStr := strings.TrimSpace(record[0])
	timestamp, err := parseTimestamp(timestampStr)
	if err != nil {
		return models.SensorReading{}, "", fmt.Errorf("invalid timestamp format: %s", timestampStr)
	}

	code := strings.TrimSpace(record[1])
	if code == "" {
		return models.SensorReading{}, "", errors.New("empty sensor code")
	}

	var values [5]float64
	for j := range values {
		raw := strings.TrimSpace(record[2+j])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.SensorReading{}, "", fmt.Errorf("invalid %s value: %s", Columns[2+j], raw)
		}
		values[j] = v
	}

	reading := models.SensorReading{
		Timestamp:       timestamp.UTC(),
		Temperature:     values[0],
		Humidity:        values[1],
		Moisture:        values[2],
		Light:           values[3],
		MoistureVoltage: values[4],
	}
	if len(record) > requiredColumns {
		if location := strings.TrimSpace(record[requiredColumns]); location != "" {
			reading.Location = &location
		}
	}
	return reading, code, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// isHeaderRow checks if the first row is likely a header
func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	if strings.Contains(first, "time") || strings.Contains(first, "date") {
		return true
	}
	_, err := parseTimestamp(strings.TrimSpace(row[0]))
	return err != nil
}

// sensorID resolves a sensor code, registering sensors seen for the first time
func (cs *CSVScanner) sensorID(ctx context.Context, code string) (int64, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if id, ok := cs.sensors[code]; ok {
		return id, nil
	}

	var sensor models.Sensor
	err := cs.db.WithContext(ctx).Where(models.Sensor{Code: code}).FirstOrCreate(&sensor).Error
	if err != nil {
		return 0, fmt.Errorf("failed to resolve sensor %s: %w", code, err)
	}
	cs.sensors[code] = sensor.ID
	return sensor.ID, nil
}

// insertReadings writes readings in batches, skipping sensor/timestamp pairs
// that already exist
func (cs *CSVScanner) insertReadings(ctx context.Context, readings []models.SensorReading) error {
	return cs.db.WithContext(ctx).
		Table(cs.table).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(readings, insertBatchSize).Error
}

// displaySummary logs the per-file results and returns their totals
func (cs *CSVScanner) displaySummary(results []ProcessResult) Summary {
	cs.log.Println(strings.Repeat("=", 60))
	cs.log.Println("IMPORT SUMMARY")
	cs.log.Println(strings.Repeat("=", 60))

	summary := Summary{Files: len(results)}
	for _, result := range results {
		if result.Error != nil {
			summary.Failed++
			cs.log.Printf("❌ %s: FAILED - %v\n", filepath.Base(result.FilePath), result.Error)
		} else {
			summary.Records += result.RecordCount
			summary.Errors += result.ErrorCount
			cs.log.Printf("✅ %s: %d records, %d errors (%v)\n",
				filepath.Base(result.FilePath), result.RecordCount, result.ErrorCount, result.Duration)
		}
		summary.Duration += result.Duration
	}

	cs.log.Println(strings.Repeat("-", 60))
	cs.log.Printf("Total files processed: %d\n", summary.Files)
	cs.log.Printf("Failed: %d\n", summary.Failed)
	cs.log.Printf("Total records imported: %d\n", summary.Records)
	cs.log.Printf("Total parsing errors: %d\n", summary.Errors)
	cs.log.Printf("Total processing time: %v\n", summary.Duration)
	cs.log.Println(strings.Repeat("=", 60))
	return summary
}
