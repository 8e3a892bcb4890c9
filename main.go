package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sensor_data_migrator/archiver"
	"sensor_data_migrator/config"
	"sensor_data_migrator/database"
	"sensor_data_migrator/dynamo"
	"sensor_data_migrator/event"
	"sensor_data_migrator/logger"
	"sensor_data_migrator/models"
	"sensor_data_migrator/scanner"

	"github.com/aws/aws-lambda-go/lambda"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	command := os.Args[1]

	// Initialize logging only for commands that need it
	if needsLogging(command) {
		cfg := loadConfig()
		if err := logger.Init(cfg); err != nil {
			log.Fatalf("Failed to initialize logging: %v", err)
		}
		defer func() {
			if err := logger.Close(); err != nil {
				log.Fatalf("Failed to close logging: %v", err)
			}
		}()
		logger.LogCommand(os.Args[0], os.Args)
	}

	switch command {
	case "archive":
		source := ""
		if len(os.Args) > 2 {
			source = os.Args[2]
		}
		archiveCommand(source)
	case "lambda":
		lambdaCommand()
	case "connect":
		connectCommand()
	case "migrate":
		migrateCommand()
	case "migrate:create":
		if len(os.Args) < 3 {
			fmt.Println("Error: migration name required")
			fmt.Println("Usage: go run main.go migrate:create <migration_name>")
			return
		}
		createMigrationCommand(os.Args[2])
	case "migrate:status":
		migrationStatusCommand()
	case "db:info":
		dbInfoCommand()
	case "import":
		if len(os.Args) < 3 {
			fmt.Println("Error: directory path required")
			fmt.Println("Usage: go run main.go import <directory_path>")
			return
		}
		importCommand(os.Args[2])
	case "help":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showHelp()
	}
}

// needsLogging determines which commands need a log file. The lambda command
// logs to stdout, which the runtime forwards to CloudWatch.
func needsLogging(command string) bool {
	loggingCommands := map[string]bool{
		"archive":        true,
		"connect":        true,
		"migrate":        true,
		"migrate:create": true,
		"migrate:status": true,
		"import":         true,
	}
	return loggingCommands[command]
}

func showHelp() {
	fmt.Println("Sensor Data Migrator - moves aged sensor data and plant scores to the archive")
	fmt.Println("")
	fmt.Println("Usage: go run main.go <command> [arguments]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  archive [event.json|-] Run the archive job, optionally with an event payload")
	fmt.Println("  lambda                Start the AWS Lambda handler")
	fmt.Println("  connect               Test database connection")
	fmt.Println("  migrate               Create model tables and run pending migrations")
	fmt.Println("  migrate:create <name> Create a new migration file")
	fmt.Println("  migrate:status        Show migration status")
	fmt.Println("  db:info               Show database information")
	fmt.Println("  import <directory>    Import sensor reading CSV files (non-recursive)")
	fmt.Println("  help                  Show this help message")
	fmt.Println("")
	fmt.Println("Configuration:")
	fmt.Println("  config.yaml, .env, or environment variables (DATABASE_URI, X_AWS_REGION,")
	fmt.Println("  X_AWS_ACCESS_KEY_ID, X_AWS_SECRET_ACCESS_KEY, X_AWS_ENDPOINT)")
	fmt.Println("")
	fmt.Println("Event payload:")
	fmt.Println(`  {"cutoff_timestamp": "2024-03-01T00:00:00Z", "selected_sensor_ids": [1], "selected_user_plant_ids": [2]}`)
	fmt.Println("  Without a cutoff, rows older than archive.retention_days are archived.")
	fmt.Println("")
	fmt.Println("CSV File Format:")
	fmt.Printf("  Expected columns: %s\n", strings.Join(scanner.Columns, ","))
	fmt.Println("  Timestamp format: ISO8601 (e.g., 2025-09-05T12:30:45Z)")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func connectDatabase() (*config.Config, *gorm.DB) {
	cfg := loadConfig()

	db, err := database.Connect(cfg, logger.Default())
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	return cfg, db
}

// newArchiveStore builds the configured archive backend
func newArchiveStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (archiver.ArchiveStore, error) {
	if cfg.Archive.Backend == "sql" {
		table := database.NewArchiveTable(db)
		if err := table.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to prepare archive table: %w", err)
		}
		return table, nil
	}
	return dynamo.NewFromConfig(ctx, cfg.Archive)
}

// runArchive performs one archive run for payload
func runArchive(ctx context.Context, cfg *config.Config, payload event.Payload, log *logger.Logger) (event.Result, error) {
	req, err := payload.Request(time.Now(), cfg.Archive.RetentionDays)
	if err != nil {
		return event.Result{}, err
	}
	result := event.Result{Cutoff: models.Timestamp(req.Cutoff)}

	db, err := database.Connect(cfg, log)
	if err != nil {
		return result, err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warnf("Failed to close database: %v\n", err)
		}
	}()

	if cfg.Migration.AutoMigrate {
		if err := database.NewMigrationRunner(db, cfg, log).AutoMigrateModels(); err != nil {
			return result, err
		}
	}

	archive, err := newArchiveStore(ctx, cfg, db)
	if err != nil {
		return result, err
	}

	a := archiver.New(database.NewFactory(db, cfg.Database.Schema), archive, log)
	if err := a.Archive(ctx, req); err != nil {
		return result, err
	}
	result.Status = "completed"
	return result, nil
}

func readPayload(source string) (event.Payload, error) {
	var r io.Reader
	switch source {
	case "":
		return event.Payload{}, nil
	case "-":
		r = os.Stdin
	default:
		f, err := os.Open(source)
		if err != nil {
			return event.Payload{}, fmt.Errorf("failed to open event file: %w", err)
		}
		defer f.Close()
		r = f
	}
	return event.Decode(r)
}

func archiveCommand(source string) {
	cfg := loadConfig()

	payload, err := readPayload(source)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := runArchive(ctx, cfg, payload, logger.Default())
	if err != nil {
		logger.Fatalf("Archive run failed: %v", err)
	}
	logger.Printf("✓ Archived everything up to %s in %v\n", result.Cutoff, time.Since(start))
}

func lambdaCommand() {
	cfg := loadConfig()
	log := logger.New(os.Stdout, cfg.Logging.LogLevel)
	logger.SetDefault(log)

	lambda.Start(func(ctx context.Context, payload event.Payload) (event.Result, error) {
		return runArchive(ctx, cfg, payload, log)
	})
}

func connectCommand() {
	logger.Println("Testing database connection...")

	cfg, db := connectDatabase()
	defer database.Close(db)

	ctx := context.Background()
	if err := database.Ping(ctx, db); err != nil {
		logger.Fatalf("Connection failed: %v", err)
	}

	logger.Printf("✓ Successfully connected to %s database\n", cfg.Database.Driver)

	info := database.GetDatabaseInfo(ctx, db, cfg)
	infoJSON, _ := json.MarshalIndent(info, "", "  ")
	logger.Printf("Connection info: %s\n", infoJSON)
}

func migrateCommand() {
	logger.Println("Running database migrations...")

	cfg, db := connectDatabase()
	defer database.Close(db)

	runner := database.NewMigrationRunner(db, cfg, logger.Default())
	if err := runner.AutoMigrateModels(); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}
	if err := runner.RunMigrations(); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}
}

func createMigrationCommand(name string) {
	logger.Printf("Creating migration: %s\n", name)

	cfg := loadConfig()
	runner := database.NewMigrationRunner(nil, cfg, logger.Default()) // Don't need DB connection to create files

	filePath, err := runner.CreateMigration(name)
	if err != nil {
		logger.Fatalf("Failed to create migration: %v", err)
	}

	logger.Printf("✓ Migration created: %s\n", filePath)
}

func migrationStatusCommand() {
	logger.Println("Checking migration status...")

	cfg, db := connectDatabase()
	defer database.Close(db)

	runner := database.NewMigrationRunner(db, cfg, logger.Default())
	migrations, err := runner.GetMigrationStatus()
	if err != nil {
		logger.Fatalf("Failed to get migration status: %v", err)
	}

	if len(migrations) == 0 {
		logger.Println("No migrations found")
		return
	}

	logger.Printf("%-20s %-40s %s\n", "Version", "Name", "Status")
	logger.Println("-------------------------------------------------------------------")

	for _, migration := range migrations {
		status := "Pending"
		if migration.Applied {
			status = "Applied"
		}
		logger.Printf("%-20s %-40s %s\n", migration.Version, migration.Name, status)
	}
}

func dbInfoCommand() {
	fmt.Println("Database Information:")
	fmt.Println(strings.Repeat("=", 50))

	cfg := loadConfig()
	db, err := database.Connect(cfg, logger.New(io.Discard, logger.ERROR))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	ctx := context.Background()
	info := database.GetDatabaseInfo(ctx, db, cfg)

	fmt.Printf("Database Type:     %v\n", info["driver"])
	fmt.Printf("Connection Status: %v\n", getConnectionStatusText(info["connected"]))
	if cfg.Database.Schema != "" {
		fmt.Printf("Schema:            %v\n", cfg.Database.Schema)
	}

	switch cfg.Database.Driver {
	case "mysql", "postgres":
		if uri, ok := info["uri"]; ok {
			fmt.Printf("Connection:        %v\n", uri)
			break
		}
		fmt.Printf("Host:              %v\n", info["host"])
		fmt.Printf("Port:              %v\n", info["port"])
		fmt.Printf("Database:          %v\n", info["database"])
	case "sqlite":
		fmt.Printf("File Path:         %v\n", info["path"])
	}

	if info["connected"] != true {
		fmt.Println("\nConnection failed - unable to retrieve detailed information")
		fmt.Println(strings.Repeat("=", 50))
		return
	}

	fmt.Println("\nConnection Pool:")
	fmt.Printf("  Max Connections: %v\n", info["max_open_connections"])
	fmt.Printf("  Open Connections:%v\n", info["open_connections"])
	fmt.Printf("  In Use:          %v\n", info["in_use"])
	fmt.Printf("  Idle:            %v\n", info["idle"])

	repo := database.NewRepository(db, cfg.Database.Schema)
	stats, err := repo.Stats(ctx)
	if err != nil {
		fmt.Printf("\nFailed to read table statistics: %v\n", err)
	} else {
		fmt.Println("\nData Information:")
		fmt.Printf("  Sensors:         %d\n", stats.Sensors)
		fmt.Printf("  User Plants:     %d\n", stats.UserPlants)
		fmt.Printf("  Readings:        %d\n", stats.Readings)
		fmt.Printf("  Daily Summaries: %d\n", stats.DailySummaries)
		fmt.Printf("  Scores:          %d\n", stats.Scores)
		if stats.OldestReading != nil {
			fmt.Printf("  Oldest Reading:  %s\n", stats.OldestReading.Format("2006-01-02 15:04:05"))
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}

func getConnectionStatusText(connected interface{}) string {
	if conn, ok := connected.(bool); ok && conn {
		return "✓ Connected"
	}
	return "✗ Disconnected"
}

func importCommand(directoryPath string) {
	logger.Printf("Importing readings from: %s\n", directoryPath)

	cfg, db := connectDatabase()
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	csvScanner := scanner.NewCSVScanner(db, cfg.Database.Schema, logger.Default())
	if cfg.Database.Driver == "sqlite" {
		csvScanner.SetWorkerCount(1)
	}

	if _, err := csvScanner.ScanDirectory(ctx, directoryPath); err != nil {
		logger.Fatalf("Import failed: %v", err)
	}

	logger.Println("✓ Directory import completed successfully")
}
