package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jiqing426/video-ai/internal/config"
	"github.com/jiqing426/video-ai/internal/logger"
)

type Database struct {
	DB *gorm.DB
}

// New подключается к PostgreSQL и проверяет соединение.
func New(cfg *config.Cfg, log *logger.Zap) (*Database, error) {
	db, err := Open(postgres.Open(cfg.Database.DSN()))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}

	log.Info("Подключение к БД установлено",
		zap.String("host", cfg.Database.Host),
		zap.String("db", cfg.Database.Name))
	return db, nil
}

// Open открывает базу через произвольный диалект GORM.
func Open(dialector gorm.Dialector) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	return &Database{DB: db}, nil
}

// AutoMigrate создаёт таблицы по моделям. Используется, когда SQL-миграции
// отключены.
func (d *Database) AutoMigrate() error {
	return d.DB.AutoMigrate(&Recording{}, &RecordingStep{}, &LlmLog{})
}

func (d *Database) Close(log *logger.Zap) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		log.Warn("Ошибка получения соединения при закрытии БД", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("Ошибка закрытия БД", zap.Error(err))
	}
}
