package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when the requested user or favorite does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")

	// ErrInvalid is returned when input is rejected before touching the database.
	ErrInvalid = errors.New("invalid input")

	// ErrStorage wraps any other database failure.
	ErrStorage = errors.New("storage failure")
)

// userRecord is the persistence mapping of the users table.
type userRecord struct {
	ID       uint   `gorm:"primaryKey"`
	Username string `gorm:"size:255;not null;uniqueIndex"`
	Password string `gorm:"not null"`
}

func (userRecord) TableName() string {
	return "users"
}

// favoriteLocationRecord is the persistence mapping of the favorite_locations table.
type favoriteLocationRecord struct {
	ID           uint       `gorm:"primaryKey"`
	UserID       uint       `gorm:"not null;uniqueIndex:user_location_uc"`
	LocationName string     `gorm:"size:100;not null;uniqueIndex:user_location_uc"`
	User         userRecord `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (favoriteLocationRecord) TableName() string {
	return "favorite_locations"
}

// gormLogger keeps gorm quiet; the stores log their own failures.
var gormLogger = logger.New(log.Default(), logger.Config{
	LogLevel:                  logger.Silent,
	IgnoreRecordNotFoundError: true,
	Colorful:                  false,
})

// DB is the shared handle to the relational store.
type DB struct {
	gorm *gorm.DB
}

// Open connects to the SQLite database at path and migrates the schema.
// Foreign keys are enforced on every connection.
func Open(path string) (*DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=on&_busy_timeout=5000"
	} else {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := gdb.AutoMigrate(&userRecord{}, &favoriteLocationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Printf("INFO: database ready at %s", path)
	return &DB{gorm: gdb}, nil
}

// Check verifies the connection is alive and that both tables exist.
func (d *DB) Check(ctx context.Context) error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return fmt.Errorf("database connection unavailable: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	m := d.gorm.WithContext(ctx).Migrator()
	for _, table := range []string{"users", "favorite_locations"} {
		if !m.HasTable(table) {
			return fmt.Errorf("table %s does not exist", table)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
