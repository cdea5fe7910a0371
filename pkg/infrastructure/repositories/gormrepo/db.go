package gormrepo

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres and returns a gorm handle.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every planner table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ProductModel{},
		&BOMLineModel{},
		&InventoryLevelModel{},
		&PlannedOrderModel{},
		&ProductionOrderModel{},
		&ReservationModel{},
		&LotConsumptionModel{},
		&TraceabilityProfileModel{},
		&GlobalLotRuleModel{},
		&SequenceModel{},
	)
}
