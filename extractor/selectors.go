package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxImages caps how many gallery images one product record carries.
const maxImages = 4

// chainText walks an ordered selector list and returns the first non-empty
// whitespace-collapsed text it finds. A selector that matches an element
// with empty text does not stop the chain. Empty string means not found.
func chainText(doc *Document, selectors []string) string {
	for _, sel := range selectors {
		node := doc.First(sel)
		if node.Length() == 0 {
			continue
		}
		if text := collapseWhitespace(node.Text()); text != "" {
			return text
		}
	}
	return ""
}

// collapseWhitespace trims and folds internal whitespace runs to one space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// imageSkipTokens mark URLs that are page furniture rather than product
// photography: logos, tracking pixels, social widgets.
var imageSkipTokens = []string{
	"logo", "icon", "sprite", "pixel", "1x1", "tracking",
	"analytics", "facebook", "twitter", "instagram",
}

func relevantImage(url string) bool {
	if url == "" {
		return false
	}
	lower := strings.ToLower(url)
	for _, token := range imageSkipTokens {
		if strings.Contains(lower, token) {
			return false
		}
	}
	return true
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// looksLikeImage requires an image extension or an "image" path segment.
// Used by the generic strategy, whose selectors are broad enough to match
// arbitrary embeds.
func looksLikeImage(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return strings.Contains(lower, "image")
}

// imageRule pairs an element selector with the source attributes to probe,
// lazy-load attributes before the plain src.
type imageRule struct {
	selector string
	attrs    []string
}

// collectImages gathers image URLs rule by rule, keeping first-seen order,
// dropping exact duplicates and irrelevant URLs, and capping at limit. Any
// extra filters are ANDed with the relevance check.
func collectImages(doc *Document, rules []imageRule, limit int, filters ...func(string) bool) []string {
	if limit <= 0 {
		limit = maxImages
	}
	images := []string{}
	seen := map[string]bool{}

	for _, rule := range rules {
		doc.Find(rule.selector).Each(func(_ int, el *goquery.Selection) {
			src := firstAttr(el, rule.attrs)
			if src == "" || seen[src] || !relevantImage(src) {
				return
			}
			for _, filter := range filters {
				if !filter(src) {
					return
				}
			}
			seen[src] = true
			images = append(images, src)
		})
	}

	if len(images) > limit {
		images = images[:limit]
	}
	return images
}

// firstAttr returns the first non-empty attribute value in preference order.
func firstAttr(el *goquery.Selection, attrs []string) string {
	for _, attr := range attrs {
		if v, ok := el.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
