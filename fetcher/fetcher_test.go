package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetcher() *Fetcher {
	return New(map[string]string{"User-Agent": "test-agent"}, 5*time.Second)
}

func TestFetchFollowsRedirects(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/go":
			http.Redirect(w, r, "/product", http.StatusFound)
		case "/product":
			gotAgent = r.Header.Get("User-Agent")
			w.Write([]byte(`<html><body><h1>Product page with a reasonable amount of content</h1></body></html>`))
		}
	}))
	defer server.Close()

	body, finalURL, err := testFetcher().Fetch(context.Background(), server.URL+"/go")

	require.NoError(t, err)
	assert.Contains(t, string(body), "Product page")
	assert.Equal(t, server.URL+"/product", finalURL)
	assert.Equal(t, "test-agent", gotAgent)
}

func TestFetchReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, _, err := testFetcher().Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchRejectsBotWall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>Robot Check: type the characters you see in this captcha image</body></html>`))
	}))
	defer server.Close()

	_, _, err := testFetcher().Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot protection")
}

func TestIsShortLink(t *testing.T) {
	assert.True(t, IsShortLink("https://amzn.to/3xYzAbC"))
	assert.True(t, IsShortLink("https://bit.ly/deal"))
	assert.False(t, IsShortLink("https://www.amazon.com.br/dp/B0ABCD1234"))
	assert.False(t, IsShortLink("https://shop.example.com/p/1"))
}

func TestExpandShortURLPassThrough(t *testing.T) {
	// non short-link URLs are returned untouched, no request made
	url := "https://www.amazon.com.br/dp/B0ABCD1234"
	assert.Equal(t, url, testFetcher().ExpandShortURL(context.Background(), url))
}

func TestDetectBotWall(t *testing.T) {
	detector := NewBotDetector()

	t.Run("captcha page", func(t *testing.T) {
		blocked, reason, score := detector.DetectBotWall("please solve this CAPTCHA to continue", "Robot Check")
		assert.True(t, blocked)
		assert.NotEmpty(t, reason)
		assert.Greater(t, score, 0.3)
	})

	t.Run("portuguese challenge", func(t *testing.T) {
		blocked, _, _ := detector.DetectBotWall("Acesso negado. Confirme que você não é um robô.", "")
		assert.True(t, blocked)
	})

	t.Run("regular product page", func(t *testing.T) {
		blocked, _, score := detector.DetectBotWall("Echo Dot 5ª geração por R$ 299,00 com frete grátis", "Echo Dot")
		assert.False(t, blocked)
		assert.Equal(t, 0.0, score)
	})
}

func TestGetBlockType(t *testing.T) {
	detector := NewBotDetector()
	assert.Equal(t, "captcha", detector.GetBlockType("solve the recaptcha below", ""))
	assert.Equal(t, "http_error", detector.GetBlockType("403 Forbidden", ""))
	assert.Equal(t, "bot_wall", detector.GetBlockType("unusual traffic from your network", ""))
}
