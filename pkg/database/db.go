package database

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/acolitus/roster-api-go/pkg/models"
)

// APIKey authorizes callers of the job-management API. Only a hash of the
// key is stored.
type APIKey struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	KeyHash   string `gorm:"unique;not null" json:"-"`
	Name      string `gorm:"not null" json:"name"`
	CreatedAt int64  `gorm:"autoCreateTime" json:"created_at"`
}

// MasterUser is an admin account for the key-management interface.
type MasterUser struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"unique;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
	CreatedAt    int64  `gorm:"autoCreateTime" json:"created_at"`
}

// InitDB opens the database connection and migrates the schema. DATABASE_URL
// selects Postgres; otherwise a SQLite file (DATA_PATH) is used, which is
// also how the test suite runs.
func InitDB() *gorm.DB {
	var db *gorm.DB
	var err error

	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		dbPath := os.Getenv("DATA_PATH")
		if dbPath == "" {
			dbPath = "roster.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}

	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

// OpenTest opens an isolated in-memory SQLite database with the full schema.
// Each call gets its own database so tests do not share state.
func OpenTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates all tables plus the partial unique index guaranteeing at
// most one active assignment per slot.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Parish{},
		&models.Community{},
		&models.FamilyGroup{},
		&models.Acolyte{},
		&models.AcolyteIntent{},
		&models.AvailabilityRule{},
		&models.FunctionType{},
		&models.PositionType{},
		&models.PositionTypeFunction{},
		&models.Qualification{},
		&models.Preference{},
		&models.RequirementProfile{},
		&models.RequirementPosition{},
		&models.MassTemplate{},
		&models.EventSeries{},
		&models.EventInterest{},
		&models.MassInstance{},
		&models.Slot{},
		&models.Assignment{},
		&models.AcolyteStats{},
		&models.ScheduleJob{},
		&models.AuditEvent{},
		&models.Notification{},
		&APIKey{},
		&MasterUser{},
	)
	if err != nil {
		return err
	}

	// Partial unique index: both SQLite and Postgres support the WHERE form.
	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_one_active_per_slot " +
			"ON assignments(slot_id) WHERE is_active",
	).Error
}

// SupportsRowLocking reports whether the dialect understands
// SELECT ... FOR UPDATE. SQLite serializes writers on its own.
func SupportsRowLocking(db *gorm.DB) bool {
	return db.Dialector.Name() != "sqlite"
}
