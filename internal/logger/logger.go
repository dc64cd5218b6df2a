// Package logger собирает zap-логгер приложения: консоль плюс опциональный
// JSON-файл с ротацией через lumberjack.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Zap struct {
	*zap.Logger
}

type fileOptions struct {
	path       string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

type Option func(*fileOptions)

// WithFile дублирует логи в файл с ротацией. Пустой путь отключает файл.
func WithFile(path string, maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(o *fileOptions) {
		o.path = path
		o.maxSizeMB = maxSizeMB
		o.maxBackups = maxBackups
		o.maxAgeDays = maxAgeDays
	}
}

func New(env, level string, opts ...Option) (*Zap, error) {
	var fo fileOptions
	for _, opt := range opts {
		opt(&fo)
	}

	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("неизвестный уровень логирования %q: %w", level, err)
	}

	var consoleEncoder zapcore.Encoder
	if env == "dev" || env == "development" {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), lvl),
	}

	if fo.path != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   fo.path,
			MaxSize:    fo.maxSizeMB,
			MaxBackups: fo.maxBackups,
			MaxAge:     fo.maxAgeDays,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), fileWriter, lvl))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	return &Zap{Logger: log}, nil
}

// Sync игнорирует ошибку синхронизации stderr, которую zap возвращает на части платформ.
func (z *Zap) Sync() {
	_ = z.Logger.Sync()
}
