package database

import (
	"Storefront/internal/api/config"
	"Storefront/internal/model"
	"Storefront/internal/pkg/logger"
	"fmt"
	log "log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// NewGormDB 初始化并返回 *gorm.DB 实例，处理连接池配置
func NewGormDB(cfg *config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	var dialect string

	switch cfg.Driver {
	case DriverPostgres:
		// pgx 驱动
		dialector = postgres.Open(cfg.DSN)
		dialect = "PostgreSQL"
	case DriverMySQL, "":
		dialector = mysql.Open(cfg.DSN)
		dialect = "MySQL"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(dialect),
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection check failed: %w", err)
	}

	log.Info("Database connection established successfully.", "driver", dialect)
	return db, nil
}

// Models 全部需要迁移的表
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Product{},
		&model.ProductImage{},
		&model.Review{},
		&model.Conversation{},
		&model.ConversationDeletion{},
		&model.Message{},
	}
}

// AutoMigrate 建表及索引
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
