package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/b4nter/banter-backend/internal/config"
	"github.com/b4nter/banter-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Unique violations must surface as gorm.ErrDuplicatedKey: the
		// first-message race and badge idempotence depend on it.
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// Migrate runs AutoMigrate for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserBadge{},
		&models.RefreshToken{},
		&models.Confession{},
		&models.Reaction{},
		&models.Comment{},
		&models.Notification{},
		&models.FriendRequest{},
		&models.Friendship{},
		&models.DMRoom{},
		&models.DMMessage{},
		&models.ChatMessage{},
		&models.DailyAward{},
		&models.OutboxEvent{},
		&models.PointLog{},
		&models.Prompt{},
		&models.Report{},
		&models.Block{},
		&models.SystemLog{},
	)
}

// Locked adds SELECT ... FOR UPDATE on dialects that support it. SQLite
// serializes writers on its own and rejects the clause.
func Locked(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
