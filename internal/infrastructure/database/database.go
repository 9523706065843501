package database

import (
	"houseform-api/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from a Postgres DSN.
// PreferSimpleProtocol disables prepared statement caching, which breaks behind poolers such as PgBouncer.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate creates the snapshot and relayed-transaction tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.ProjectSnapshot{}, &domain.TransactionRecord{})
}
