package fetcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// maxBodySize caps how much of a product page is read into memory.
const maxBodySize = 10 << 20

// shortLinkHosts are affiliate short-link domains that hide the real
// storefront URL behind a redirect chain.
var shortLinkHosts = []string{"amzn.to", "amzn.eu", "bit.ly"}

// Fetcher retrieves product pages over plain HTTP with browser-like headers.
// Safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	headers  map[string]string
	detector *BotDetector
}

// New builds a Fetcher with the given request headers and timeout.
func New(headers map[string]string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		headers:  headers,
		detector: NewBotDetector(),
	}
}

// Fetch downloads a page and returns its body together with the final URL
// after short-link expansion and redirects. Blocked responses (bot walls,
// CAPTCHA pages) are reported as errors, not returned as content.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, string, error) {
	finalURL := f.ExpandShortURL(ctx, pageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %v", err)
	}
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch page: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("failed to fetch page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read page body: %v", err)
	}

	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if blocked, reason, score := f.detector.DetectBotWall(string(body), ""); blocked {
		log.Printf("Bot wall detected on %s (score %.2f): %s", finalURL, score, reason)
		return nil, "", fmt.Errorf("page blocked by bot protection: %s", f.detector.GetBlockType(string(body), ""))
	}

	return body, finalURL, nil
}

// ExpandShortURL resolves known short-link hosts to their destination by
// following redirects with a HEAD request. Any failure lets the original
// URL pass through unchanged.
func (f *Fetcher) ExpandShortURL(ctx context.Context, pageURL string) string {
	if !IsShortLink(pageURL) {
		return pageURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, pageURL, nil)
	if err != nil {
		return pageURL
	}
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return pageURL
	}
	resp.Body.Close()

	if resp.Request != nil && resp.Request.URL != nil {
		if final := resp.Request.URL.String(); final != "" && final != pageURL {
			log.Printf("Expanded short URL %s -> %s", pageURL, final)
			return final
		}
	}
	return pageURL
}

// IsShortLink reports whether the URL belongs to a known short-link host.
func IsShortLink(pageURL string) bool {
	lower := strings.ToLower(pageURL)
	for _, host := range shortLinkHosts {
		if strings.Contains(lower, host+"/") {
			return true
		}
	}
	return false
}
