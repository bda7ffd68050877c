package migration

import (
	"fmt"
	"log"

	"ReceiptRadar-Backend/entities"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entities.User{}); err != nil {
		log.Fatalf("Error migrating user database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Merchant{}); err != nil {
		log.Fatalf("Error migrating merchant database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Receipt{}); err != nil {
		log.Fatalf("Error migrating receipt database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.ReceiptItem{}); err != nil {
		log.Fatalf("Error migrating receipt item database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.PriceObservation{}); err != nil {
		log.Fatalf("Error migrating price observation database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.ReceiptScan{}); err != nil {
		log.Fatalf("Error migrating receipt scan database: %v", err)
		return err
	}

	// Merchants are deduplicated case-insensitively; a concurrent first-time
	// insert must surface as a unique violation, not a duplicate row.
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_merchants_name_lower ON merchants (LOWER(name));")

	fmt.Println("Database migration complete")
	return nil
}
