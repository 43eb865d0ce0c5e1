package main

import (
	"flag"
	"fmt"
	"log"

	"gorm.io/gorm"

	"wa-groupguard/internal/config"
	"wa-groupguard/internal/models"
	"wa-groupguard/internal/storage"
)

var tables = []interface{}{
	&models.MemberRecord{},
	&models.GroupPolicy{},
	&models.BlacklistEntry{},
	&models.WhitelistEntry{},
	&models.AuditLogEntry{},
}

func main() {
	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	action := flag.String("action", "migrate", "Action to perform (migrate, reset, status)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := storage.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	db := storage.GetDB()
	if db == nil {
		log.Fatalf("Failed to get database connection")
	}

	// Perform requested action
	switch *action {
	case "migrate":
		if err := migrateDatabase(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration completed successfully")
	case "reset":
		if err := resetDatabase(db); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Println("Database reset completed successfully")
	case "status":
		if err := checkStatus(db); err != nil {
			log.Fatalf("Status check failed: %v", err)
		}
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

// migrateDatabase performs database migration
func migrateDatabase(db *gorm.DB) error {
	fmt.Println("Migrating database...")

	for _, table := range tables {
		if err := db.AutoMigrate(table); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", table, err)
		}
	}

	return nil
}

// resetDatabase drops tables and recreates them
func resetDatabase(db *gorm.DB) error {
	fmt.Println("Resetting database...")

	// Confirm reset operation
	fmt.Print("WARNING: This will delete all data! Are you sure? (y/N): ")
	var confirmation string
	fmt.Scanln(&confirmation)

	if confirmation != "y" && confirmation != "Y" {
		return fmt.Errorf("operation cancelled by user")
	}

	for i := len(tables) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(tables[i]); err != nil {
			return fmt.Errorf("failed to drop %T table: %w", tables[i], err)
		}
	}

	// Recreate tables
	return migrateDatabase(db)
}

// checkStatus checks the database status
func checkStatus(db *gorm.DB) error {
	fmt.Println("Checking database status...")

	for _, table := range tables {
		if db.Migrator().HasTable(table) {
			var count int64
			db.Model(table).Count(&count)
			fmt.Printf("%T: exists, %d records\n", table, count)
		} else {
			fmt.Printf("%T: table does not exist\n", table)
		}
	}

	return nil
}
