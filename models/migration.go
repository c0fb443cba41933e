package models

import (
	"log"

	"github.com/mmdatafocus/gem_ledger/config"
)

// AllModels is the migration order; logs come after what they reference.
func AllModels() []interface{} {
	return []interface{}{
		&Profile{},
		&InventoryItem{},
		&CapitalInvestment{},
		&Transaction{},
		&CurrencyRate{},
		&ActivityLog{},
	}
}

func Migrate() error {
	db := config.GetDB()
	return db.AutoMigrate(AllModels()...)
}

func MigrateTable() {
	if err := Migrate(); err != nil {
		log.Fatal(err)
	}
}
