package agent

import (
	"context"
	"time"

	"github.com/jiqing426/video-ai/internal/browser"
)

const maxOpenBudget = 15 * time.Second

// budget splits one recording's wall clock. Teardown and hand-off always
// keep their share, whatever the earlier phases used.
type budget struct {
	open     time.Duration
	work     time.Duration
	teardown time.Duration
}

func splitBudget(total time.Duration) budget {
	open := min(maxOpenBudget, total*4/10)
	teardown := total / 10
	return budget{
		open:     open,
		work:     total - open - teardown,
		teardown: teardown,
	}
}

// budgetedLauncher caps the time spent opening a session.
type budgetedLauncher struct {
	browser.Launcher
	timeout time.Duration
}

func (l budgetedLauncher) Open(ctx context.Context, cfg browser.SessionConfig) (*browser.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.Launcher.Open(ctx, cfg)
}
