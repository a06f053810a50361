// Package store persists users, their saved cities and search history.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDuplicateUser      = errors.New("username or email already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

type User struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Username      string          `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email         string          `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash  string          `gorm:"size:128;not null" json:"-"`
	CreatedAt     time.Time       `json:"createdAt"`
	SavedCities   []SavedCity     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	SearchHistory []SearchHistory `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type SavedCity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_saved_cities_user_city" json:"-"`
	CityName  string    `gorm:"size:100;not null;uniqueIndex:idx_saved_cities_user_city" json:"cityName"`
	CreatedAt time.Time `json:"createdAt"`
}

func (SavedCity) TableName() string { return "saved_cities" }

type SearchHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"-"`
	CityName   string    `gorm:"size:100;not null" json:"cityName"`
	SearchedAt time.Time `gorm:"index" json:"searchedAt"`
}

func (SearchHistory) TableName() string { return "search_history" }

// Open connects to driver ("sqlite" or "postgres") and verifies the connection.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL is empty")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if driver == "sqlite" {
		// One connection keeps an in-memory database alive and serializes writers.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		sqlDB.SetConnMaxIdleTime(1 * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the users, saved_cities and search_history tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &SavedCity{}, &SearchHistory{})
}

// Ping reports whether the database answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
