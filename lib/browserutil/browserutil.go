// Package browserutil manages headless chrome sessions for the scrapers
// that need rendered pages instead of raw html. every session is built
// fresh and torn down by the returned cancel funcs, nothing browser
// related outlives a call.
package browserutil

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// FindChromeBinary locates a usable chrome or chromium binary. the
// CHROME_BIN env var wins, then PATH, then the usual install locations.
// empty means chromedp should use its own discovery.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// Allocator builds a headless chrome allocator context. cancel it to
// shut the browser down.
func Allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1280, 900),
		chromedp.UserAgent(userAgent),
	)
	if bin := FindChromeBinary(); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

// NewTab opens a tab on the allocator with chromedp's log noise
// silenced.
func NewTab(allocCtx context.Context) (context.Context, context.CancelFunc) {
	return chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
}

// PageText renders url in a throwaway browser session and returns the
// page's visible text. the whole render is bounded by timeout.
func PageText(ctx context.Context, url string, timeout time.Duration) (string, error) {
	allocCtx, cancelAlloc := Allocator(ctx)
	defer cancelAlloc()
	tabCtx, cancelTab := NewTab(allocCtx)
	defer cancelTab()
	runCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	var text string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(`document.body.innerText`, &text),
	)
	if err != nil {
		return "", err
	}
	return text, nil
}
