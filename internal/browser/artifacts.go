package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ArtifactCollector writes screenshots into one session directory and keeps
// their paths in capture order.
type ArtifactCollector struct {
	dir string
	log *zap.Logger

	mu    sync.Mutex
	next  int
	shots []string
}

func NewArtifactCollector(dir string, log *zap.Logger) *ArtifactCollector {
	if log == nil {
		log = zap.NewNop()
	}
	return &ArtifactCollector{dir: dir, log: log}
}

func (a *ArtifactCollector) Dir() string { return a.dir }

// Capture saves a full page screenshot as screenshot-<n>.png.
func (a *ArtifactCollector) Capture(ctx context.Context, page Page, label string) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("не удалось создать каталог артефактов: %w", err)
	}

	a.mu.Lock()
	a.next++
	path := filepath.Join(a.dir, fmt.Sprintf("screenshot-%d.png", a.next))
	a.mu.Unlock()

	if err := page.Screenshot(ctx, path, true); err != nil {
		return "", fmt.Errorf("не удалось сделать скриншот: %w", err)
	}

	a.mu.Lock()
	a.shots = append(a.shots, path)
	a.mu.Unlock()

	a.log.Debug("Скриншот сохранён", zap.String("path", path), zap.String("label", label))
	return path, nil
}

// Screenshots returns a copy of the captured paths.
func (a *ArtifactCollector) Screenshots() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.shots...)
}
