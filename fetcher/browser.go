package fetcher

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher renders JavaScript-heavy storefronts in headless Chromium
// and hands the settled HTML to the extraction engine. Shopee and parts of
// Magazine Luiza ship empty shells without it.
type BrowserFetcher struct {
	browser *rod.Browser
}

// NewBrowserFetcher launches a headless browser. In containers the system
// Chromium is used when present so rod does not download its own binary.
func NewBrowserFetcher() (*BrowserFetcher, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false)

	if _, err := os.Stat("/usr/bin/chromium-browser"); err == nil {
		l = l.Bin("/usr/bin/chromium-browser")
		log.Printf("Using system Chromium")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %v", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %v", err)
	}

	return &BrowserFetcher{browser: browser}, nil
}

// Fetch opens the page, waits for it to settle, and returns the rendered
// HTML.
func (b *BrowserFetcher) Fetch(pageURL string) (string, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %v", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed to load page: %v", err)
	}
	if err := page.WaitStable(time.Second); err != nil {
		log.Printf("Page %s did not settle: %v", pageURL, err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read rendered HTML: %v", err)
	}
	return html, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			log.Printf("Failed to close browser: %v", err)
		}
	}
}
