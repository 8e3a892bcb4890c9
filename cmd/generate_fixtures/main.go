// Command generate_fixtures writes synthetic sensor reading CSVs that the
// import command can load, for exercising the archiver locally.
package main

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"sensor_data_migrator/scanner"
	"sensor_data_migrator/timeutil"
	"sensor_data_migrator/twilight"
)

const (
	defaultDays = 120
	// Utrecht
	defaultLatitude  = 52.09
	defaultLongitude = 5.12
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/generate_fixtures <output_directory> [days] [latitude longitude]")
		fmt.Println("Example: go run ./cmd/generate_fixtures test_data 90")
		return
	}

	outputDir := os.Args[1]
	days := defaultDays
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n <= 0 {
			fmt.Printf("Invalid number of days: %s\n", os.Args[2])
			os.Exit(1)
		}
		days = n
	}
	lat, lon := defaultLatitude, defaultLongitude
	if len(os.Args) > 4 {
		var err error
		if lat, err = strconv.ParseFloat(os.Args[3], 64); err != nil {
			fmt.Printf("Invalid latitude: %s\n", os.Args[3])
			os.Exit(1)
		}
		if lon, err = strconv.ParseFloat(os.Args[4], 64); err != nil {
			fmt.Printf("Invalid longitude: %s\n", os.Args[4])
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Failed to create directory: %v\n", err)
		os.Exit(1)
	}

	sun := twilight.NewCalculator(lat, lon)
	end := timeutil.BackTo15(time.Now().UTC())
	start := end.AddDate(0, 0, -days)

	var wg sync.WaitGroup
	for i, group := range groups {
		wg.Add(1)
		go func(seed int64, group Group) {
			defer wg.Done()
			gen := &Generator{rng: rand.New(rand.NewSource(seed)), sun: sun}
			readings := gen.Readings(group, start, end)
			path := filepath.Join(outputDir, group.File)
			if err := writeCSV(path, readings); err != nil {
				fmt.Printf("Failed to write %s: %v\n", group.File, err)
				return
			}
			fmt.Printf("Generated %s with %d records\n", group.File, len(readings))
		}(time.Now().UnixNano()+int64(i), group)
	}
	wg.Wait()
	fmt.Println("All fixture data generated.")
}

// Group is a set of sensors written to one file
type Group struct {
	File     string
	Location string
	Sensors  []string
	// Exposure scales daylight; indoor sensors see a fraction of it
	Exposure float64
}

var groups = []Group{
	{File: "greenhouse.csv", Location: "greenhouse", Sensors: []string{"GH-01", "GH-02", "GH-03"}, Exposure: 0.9},
	{File: "living_room.csv", Location: "living room", Sensors: []string{"LR-01", "LR-02"}, Exposure: 0.3},
	{File: "balcony.csv", Location: "balcony", Sensors: []string{"BA-01"}, Exposure: 1},
}

// Reading is one generated CSV row
type Reading struct {
	Timestamp       time.Time
	SensorCode      string
	Temperature     float64
	Humidity        float64
	Moisture        float64
	Light           float64
	MoistureVoltage float64
	Location        string
}

// Generator produces readings on the 15-minute grid
type Generator struct {
	rng *rand.Rand
	sun *twilight.Calculator
}

// Readings returns one reading per sensor per quarter hour in [start, end)
func (g *Generator) Readings(group Group, start, end time.Time) []Reading {
	var readings []Reading
	moisture := make([]float64, len(group.Sensors))
	for j := range moisture {
		moisture[j] = 0.6
	}

	for ts := timeutil.BackTo15(start); ts.Before(end); ts = timeutil.RoundToNext15(ts) {
		light := g.light(ts) * group.Exposure
		hourAngle := float64(ts.Hour()) * math.Pi / 12

		for j, sensor := range group.Sensors {
			// soil dries slowly and gets watered when it runs low
			moisture[j] -= 0.0008 + g.rng.Float64()*0.0004
			if moisture[j] < 0.15 {
				moisture[j] = 0.65 + g.rng.Float64()*0.1
			}

			temperature := 19.0 + 5.0*math.Sin(hourAngle-math.Pi/2) + float64(j)*0.4 + g.rng.Float64() - 0.5
			humidity := math.Max(25, math.Min(95, 60-(temperature-19)*2+g.rng.Float64()*4-2))

			readings = append(readings, Reading{
				Timestamp:       ts,
				SensorCode:      sensor,
				Temperature:     temperature,
				Humidity:        humidity,
				Moisture:        moisture[j],
				Light:           math.Max(0, light+g.rng.Float64()*20-10),
				MoistureVoltage: 3.3 * (1 - moisture[j]),
				Location:        group.Location,
			})
		}
	}
	return readings
}

// light follows a sine arc between sunrise and sunset, with a dim floor at night
func (g *Generator) light(ts time.Time) float64 {
	times, err := g.sun.SunTimes(ts)
	if err != nil || !twilight.IsDay(ts, times.Sunrise, times.Sunset) {
		return g.rng.Float64() * 10
	}
	length := times.Sunset.Sub(times.Sunrise)
	if length <= 0 {
		length += 24 * time.Hour
	}
	elapsed := ts.Sub(times.Sunrise)
	if elapsed < 0 {
		elapsed += 24 * time.Hour
	}
	return 20000 * math.Sin(math.Pi*float64(elapsed)/float64(length)) * (0.8 + g.rng.Float64()*0.4)
}

func writeCSV(filename string, readings []Reading) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := w.WriteString(strings.Join(scanner.Columns, ",") + "\n"); err != nil {
		return err
	}
	for _, r := range readings {
		line := fmt.Sprintf("%s,%s,%.2f,%.2f,%.4f,%.1f,%.3f,%s\n",
			r.Timestamp.Format(time.RFC3339),
			r.SensorCode,
			r.Temperature,
			r.Humidity,
			r.Moisture,
			r.Light,
			r.MoistureVoltage,
			r.Location)
		if _, err := w.WriteString(line); err != nil {
			return err
		}
	}
	return w.Flush()
}
