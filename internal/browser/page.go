package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

type LoadState int

const (
	LoadNetworkIdle LoadState = iota
	LoadDOMContentLoaded
	LoadLoad
)

func (s LoadState) String() string {
	switch s {
	case LoadDOMContentLoaded:
		return "domcontentloaded"
	case LoadLoad:
		return "load"
	default:
		return "networkidle"
	}
}

func (s LoadState) waitUntil() *playwright.WaitUntilState {
	switch s {
	case LoadDOMContentLoaded:
		return playwright.WaitUntilStateDomcontentloaded
	case LoadLoad:
		return playwright.WaitUntilStateLoad
	default:
		return playwright.WaitUntilStateNetworkidle
	}
}

// Page is the subset of a browser tab the recorder drives.
type Page interface {
	URL() string
	IsClosed() bool
	Goto(ctx context.Context, url string, state LoadState, timeout time.Duration) error
	Evaluate(ctx context.Context, expression string, arg any) (any, error)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error
	Hover(ctx context.Context, selector string, timeout time.Duration) error
	SelectOption(ctx context.Context, selector, value string, timeout time.Duration) error
	ScrollIntoView(ctx context.Context, selector string, timeout time.Duration) error
	ScrollBy(ctx context.Context, dx, dy int) error
	Screenshot(ctx context.Context, path string, fullPage bool) error
	VideoPath() (string, error)
	Close() error
}

type pwPage struct {
	page playwright.Page
}

// WrapPage adapts a playwright page to Page.
func WrapPage(page playwright.Page) Page {
	return &pwPage{page: page}
}

func (p *pwPage) URL() string    { return p.page.URL() }
func (p *pwPage) IsClosed() bool { return p.page.IsClosed() }

func (p *pwPage) Goto(ctx context.Context, url string, state LoadState, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		_, err := p.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: state.waitUntil(),
			Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		})
		errChan <- err
	}()

	select {
	case <-navCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("таймаут навигации после %v: %w", timeout, playwright.ErrTimeout)
	case err := <-errChan:
		return err
	}
}

func (p *pwPage) Evaluate(ctx context.Context, expression string, arg any) (any, error) {
	var result any
	err := await(ctx, func() error {
		var err error
		if arg == nil {
			result, err = p.page.Evaluate(expression)
		} else {
			result, err = p.page.Evaluate(expression, arg)
		}
		return err
	})
	return result, err
}

func (p *pwPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	ms := bound(ctx, timeout)
	return await(ctx, func() error {
		return p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: ms,
		})
	})
}

func (p *pwPage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	ms := bound(ctx, timeout)
	return await(ctx, func() error {
		return p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{Timeout: ms})
	})
}

func (p *pwPage) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	ms := bound(ctx, timeout)
	return await(ctx, func() error {
		return p.page.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{Timeout: ms})
	})
}

func (p *pwPage) Hover(ctx context.Context, selector string, timeout time.Duration) error {
	ms := bound(ctx, timeout)
	return await(ctx, func() error {
		return p.page.Locator(selector).First().Hover(playwright.LocatorHoverOptions{Timeout: ms})
	})
}

// SelectOption matches by option value first, then by visible label.
func (p *pwPage) SelectOption(ctx context.Context, selector, value string, timeout time.Duration) error {
	ms := bound(ctx, timeout)
	return await(ctx, func() error {
		loc := p.page.Locator(selector).First()
		opts := playwright.LocatorSelectOptionOptions{Timeout: ms}

		_, err := loc.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}}, opts)
		if err == nil {
			return nil
		}
		if _, labelErr := loc.SelectOption(playwright.SelectOptionValues{Labels: &[]string{value}}, opts); labelErr != nil {
			return err
		}
		return nil
	})
}

func (p *pwPage) ScrollIntoView(ctx context.Context, selector string, timeout time.Duration) error {
	ms := bound(ctx, timeout)
	return await(ctx, func() error {
		return p.page.Locator(selector).First().ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: ms})
	})
}

func (p *pwPage) ScrollBy(ctx context.Context, dx, dy int) error {
	_, err := p.Evaluate(ctx, fmt.Sprintf("window.scrollBy(%d, %d)", dx, dy), nil)
	return err
}

func (p *pwPage) Screenshot(ctx context.Context, path string, fullPage bool) error {
	return await(ctx, func() error {
		_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
			Path:     playwright.String(path),
			FullPage: playwright.Bool(fullPage),
		})
		return err
	})
}

// VideoPath is only meaningful when the context records video.
func (p *pwPage) VideoPath() (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			path, err = "", fmt.Errorf("видео недоступно: %v", r)
		}
	}()

	video := p.page.Video()
	if video == nil {
		return "", nil
	}
	return video.Path()
}

func (p *pwPage) Close() error {
	if p.page.IsClosed() {
		return nil
	}
	return p.page.Close()
}

// await runs a blocking driver call and stops waiting once ctx is done. The
// call itself is bounded by its own playwright timeout.
func await(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() { errChan <- fn() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// bound caps timeout by the ctx deadline and converts it to playwright
// milliseconds.
func bound(ctx context.Context, timeout time.Duration) *float64 {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout < time.Millisecond {
		timeout = time.Millisecond
	}
	return playwright.Float(float64(timeout.Milliseconds()))
}
