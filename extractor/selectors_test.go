package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := ParseDocumentString(html)
	require.NoError(t, err)
	return doc
}

func TestChainText(t *testing.T) {
	doc := mustParse(t, `
		<div class="empty-title"></div>
		<h1 class="main-title">  Wireless   Mouse
			2.4GHz </h1>
		<h2 class="sub-title">ignored</h2>`)

	t.Run("first selector with non-empty text wins", func(t *testing.T) {
		got := chainText(doc, []string{".missing", ".empty-title", ".main-title", ".sub-title"})
		assert.Equal(t, "Wireless Mouse 2.4GHz", got)
	})

	t.Run("empty match does not stop the chain", func(t *testing.T) {
		got := chainText(doc, []string{".empty-title", ".sub-title"})
		assert.Equal(t, "ignored", got)
	})

	t.Run("no match yields empty string", func(t *testing.T) {
		assert.Equal(t, "", chainText(doc, []string{".missing", ".also-missing"}))
	})
}

func TestCollectImages(t *testing.T) {
	doc := mustParse(t, `
		<div class="gallery">
			<img data-src="https://cdn.example.com/p1.jpg" src="https://cdn.example.com/placeholder.jpg">
			<img src="https://cdn.example.com/p2.jpg">
			<img src="https://cdn.example.com/p2.jpg">
			<img src="https://cdn.example.com/logo.png">
			<img src="https://cdn.example.com/p3.jpg">
			<img src="https://cdn.example.com/p4.jpg">
			<img src="https://cdn.example.com/p5.jpg">
		</div>`)

	got := collectImages(doc, []imageRule{
		{".gallery img", []string{"data-src", "src"}},
	}, 4)

	// lazy-load attribute preferred, duplicate and logo dropped, capped at 4
	assert.Equal(t, []string{
		"https://cdn.example.com/p1.jpg",
		"https://cdn.example.com/p2.jpg",
		"https://cdn.example.com/p3.jpg",
		"https://cdn.example.com/p4.jpg",
	}, got)
}

func TestCollectImagesExtraFilter(t *testing.T) {
	doc := mustParse(t, `
		<div class="product">
			<img src="https://cdn.example.com/photo.webp">
			<img src="https://cdn.example.com/player-embed">
		</div>`)

	got := collectImages(doc, []imageRule{
		{".product img", []string{"src"}},
	}, 4, looksLikeImage)

	assert.Equal(t, []string{"https://cdn.example.com/photo.webp"}, got)
}

func TestRelevantImage(t *testing.T) {
	assert.False(t, relevantImage(""))
	assert.False(t, relevantImage("https://cdn.example.com/site-logo.png"))
	assert.False(t, relevantImage("https://tracking.example.com/1x1.gif"))
	assert.False(t, relevantImage("https://facebook.com/share.png"))
	assert.True(t, relevantImage("https://cdn.example.com/product-main.jpg"))
}
