// Package migrations применяет SQL-миграции схемы истории записей.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/config"
	"github.com/jiqing426/video-ai/internal/logger"
)

//go:embed sql/*.sql
var files embed.FS

// Files возвращает встроенные файлы миграций.
func Files() fs.FS {
	sub, err := fs.Sub(files, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Run применяет все новые миграции. Без настроенной БД или при выключенных
// миграциях ничего не делает.
func Run(cfg *config.Cfg, log *logger.Zap) error {
	if !cfg.Database.Enabled() || !cfg.Migrations.Enabled {
		log.Info("Миграции пропущены",
			zap.Bool("db_enabled", cfg.Database.Enabled()),
			zap.Bool("migrations_enabled", cfg.Migrations.Enabled))
		return nil
	}

	src, err := iofs.New(files, "sql")
	if err != nil {
		return fmt.Errorf("ошибка чтения миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warn("Ошибка закрытия мигратора", zap.NamedError("source", srcErr), zap.NamedError("db", dbErr))
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("ошибка чтения версии схемы: %w", err)
	}

	log.Info("Миграции применены", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
