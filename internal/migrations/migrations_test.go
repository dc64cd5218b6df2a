package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/config"
	"github.com/jiqing426/video-ai/internal/logger"
)

func TestEveryUpHasDown(t *testing.T) {
	entries, err := fs.ReadDir(Files(), ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	for name := range names {
		if strings.HasSuffix(name, ".up.sql") {
			assert.True(t, names[strings.TrimSuffix(name, ".up.sql")+".down.sql"], name)
		}
	}
}

func TestSourceReadsVersions(t *testing.T) {
	src, err := iofs.New(files, "sql")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)
}

func TestRunSkipsWithoutDatabase(t *testing.T) {
	cfg := &config.Cfg{Migrations: config.Migrations{Enabled: true}}
	assert.NoError(t, Run(cfg, &logger.Zap{Logger: zap.NewNop()}))

	cfg = &config.Cfg{Database: config.Database{Host: "localhost", Name: "video"}}
	assert.NoError(t, Run(cfg, &logger.Zap{Logger: zap.NewNop()}))
}
