package extractor

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/findsforliving-lab/finds4livingbot/models"
)

// amazonStrategy covers amazon.com and amazon.com.br product pages. Amazon
// renders prices through several generations of markup at once, so the price
// path collects candidates from a cascade of discovery stages and reduces
// them with a filter pipeline instead of trusting any single selector.
type amazonStrategy struct{}

var amazonTitleSelectors = []string{
	"#productTitle",
	"h1#title span",
	"h1.a-size-large",
	"h1.a-size-base",
	".product-title",
	"h1",
	"span#productTitle",
}

func (s *amazonStrategy) Title(doc *Document) string {
	if title := chainText(doc, amazonTitleSelectors); title != "" {
		return title
	}
	return jsonLDName(doc)
}

func (s *amazonStrategy) Price(doc *Document) models.PricePair {
	return resolveAmazonCandidates(amazonPriceCandidates(doc))
}

func (s *amazonStrategy) Images(doc *Document) []string {
	images := []string{}
	seen := map[string]bool{}
	add := func(src string) {
		src = strings.TrimSpace(src)
		if src == "" || seen[src] || !relevantImage(src) {
			return
		}
		seen[src] = true
		images = append(images, src)
	}

	if main := doc.First("#landingImage"); main.Length() > 0 {
		add(firstAttr(main, []string{"data-old-hires", "src"}))
	}

	doc.Find(".a-button-thumbnail img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			// gallery thumbnails carry a size token; swap in the large variant
			add(strings.ReplaceAll(src, "._SS40_", "._SL1500_"))
		}
	})

	for _, src := range jsonLDImages(doc) {
		add(src)
	}

	if len(images) > maxImages {
		images = images[:maxImages]
	}
	return images
}

func (s *amazonStrategy) Description(doc *Document) string {
	return chainText(doc, []string{
		"#feature-bullets ul",
		"#productDescription",
		".a-unordered-list.a-vertical",
		"#productDescription_feature_div",
	})
}

// --- price candidate discovery ---

var amazonPriceBlocks = []string{
	"#corePriceDisplay_desktop_feature_div",
	"#corePrice_feature_div",
	"#apex_desktop",
}

const amazonPriceSpans = `span.a-price, span.a-price-whole, .a-price .a-offscreen, span[data-a-color="price"], .a-price-range`

var amazonPrioritySelectors = []string{
	"span.priceToPay span.a-offscreen",
	"#priceblock_dealprice",
	"#priceblock_saleprice",
	"#priceblock_ourprice",
	".a-price-whole",
	`[data-a-color="price"] .a-offscreen`,
	".a-price .a-offscreen",
}

// perUnitPhrases flag price contexts like "$0.37 per oz" that describe unit
// economics, not the product price. variantPhrases flag prices rendered in
// size/color pickers.
var perUnitPhrases = []string{
	"per unit", "per count", "per oz", "per lb", "per pack", "/unit", "/count",
}

var variantPhrases = []string{"variation", "size", "color", "option"}

var scriptPricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)["']displayPrice["']\s*:\s*["']?\$?\s*(\d+\.?\d*)`),
	regexp.MustCompile(`(?i)["']buyingPrice["']\s*:\s*["']?\$?\s*(\d+\.?\d*)`),
	regexp.MustCompile(`(?i)["']price["']\s*:\s*["']?\$?\s*(\d+\.?\d*)`),
	regexp.MustCompile(`(?i)["']amount["']\s*:\s*["']?\$?\s*(\d+\.?\d*)`),
}

var amazonDataPriceAttrs = []string{"data-price", "data-a-price", "data-asin-price"}

var amazonLegacySelectorGroups = [][]string{
	{"span.priceToPay span.a-offscreen"},
	{"#priceblock_dealprice", "#priceblock_saleprice", "#priceblock_ourprice"},
	{".a-price-whole"},
	{`span[class*="price"]`},
}

var rawCurrencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s*(\d{1,3}(?:[.,]\d{3})*[.,]\d{2})`),
	regexp.MustCompile(`\$\s*(\d+\.\d{2})`),
	regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})*[.,]\d{2})\s*USD`),
}

// amazonPriceCandidates runs the discovery cascade. Stages 1 and 2 are the
// broad sweeps and feed the pool only while it is empty; stages 3 to 5 always
// run so the real buy-box price enters the pool even when a noisier stage
// produced values first; stage 6 is the last-resort legacy scan.
func amazonPriceCandidates(doc *Document) []float64 {
	var candidates []float64

	// Stage 1: structured price blocks. The first block that yields any
	// value wins; later blocks repeat the same prices in older markup.
	for _, block := range amazonPriceBlocks {
		if values := pricesFromBlock(doc, block); len(values) > 0 {
			candidates = append(candidates, values...)
			break
		}
	}

	// Stage 2: price-styled spans anywhere on the page, skipping per-unit
	// and variant-picker contexts.
	if len(candidates) == 0 {
		doc.Find(amazonPriceSpans).Each(func(_ int, span *goquery.Selection) {
			parentText := strings.ToLower(span.Parent().Text())
			if containsAny(parentText, perUnitPhrases) || containsAny(parentText, variantPhrases) {
				return
			}
			text := span.Text()
			if off := span.Find(".a-offscreen").First(); off.Length() > 0 {
				text = off.Text()
			}
			if v, ok := ParsePrice(text); ok && v > 0 {
				candidates = append(candidates, v)
			}
		})
	}

	// Stage 3: high-confidence selectors.
	for _, sel := range amazonPrioritySelectors {
		node := doc.First(sel)
		if node.Length() == 0 {
			continue
		}
		if v, ok := ParsePrice(node.Text()); ok && v > 0 {
			candidates = append(candidates, v)
		}
	}

	// Stage 4: price-named fields inside inline scripts.
	doc.Find("script").Each(func(_ int, script *goquery.Selection) {
		text := script.Text()
		if text == "" {
			return
		}
		for _, pattern := range scriptPricePatterns {
			for _, match := range pattern.FindAllStringSubmatch(text, -1) {
				if v, err := strconv.ParseFloat(match[1], 64); err == nil && v > 0 && v < 10000 {
					candidates = append(candidates, v)
				}
			}
		}
	})

	// Stage 5: machine-readable data attributes.
	doc.Find("[data-price], [data-a-price], [data-asin-price]").Each(func(_ int, el *goquery.Selection) {
		for _, attr := range amazonDataPriceAttrs {
			if raw, ok := el.Attr(attr); ok {
				if v, ok := ParsePrice(raw); ok && v > 0 {
					candidates = append(candidates, v)
				}
			}
		}
	})

	// Stage 6: legacy selectors, then raw currency patterns over the whole
	// page text. Only reached when every structured stage came up empty.
	if len(candidates) == 0 {
		for _, group := range amazonLegacySelectorGroups {
			if text := chainText(doc, group); text != "" {
				if v, ok := ParsePrice(text); ok && v > 0 {
					candidates = append(candidates, v)
				}
			}
		}
	}
	if len(candidates) == 0 {
		fullText := doc.FullText()
		for _, pattern := range rawCurrencyPatterns {
			for _, match := range pattern.FindAllStringSubmatch(fullText, -1) {
				if v, ok := ParsePrice(match[1]); ok && v > 0 && v < 10000 {
					candidates = append(candidates, v)
				}
			}
		}
	}

	return candidates
}

// pricesFromBlock reads the prices inside one structured price container,
// preferring the screen-reader .a-offscreen copies over visual whole and
// fraction fragments.
func pricesFromBlock(doc *Document, blockSelector string) []float64 {
	block := doc.Find(blockSelector)
	if block.Length() == 0 {
		return nil
	}

	var values []float64
	block.Find(".a-offscreen").Each(func(_ int, el *goquery.Selection) {
		if v, ok := ParsePrice(el.Text()); ok && v > 0 {
			values = append(values, v)
		}
	})
	if len(values) > 0 {
		return values
	}

	block.Find(".a-price-whole").Each(func(_ int, el *goquery.Selection) {
		whole := strings.TrimRight(collapseWhitespace(el.Text()), ".")
		text := whole
		if fraction := collapseWhitespace(el.Parent().Find(".a-price-fraction").First().Text()); fraction != "" {
			text = whole + "." + fraction
		}
		if v, ok := ParsePrice(text); ok && v > 0 {
			values = append(values, v)
		}
	})
	return values
}

// --- candidate filtering ---

// resolveAmazonCandidates reduces the candidate pool to a current/original
// pair. The spread filters are skipped when they would leave fewer than two
// candidates: a lone survivor says nothing about which price is real, and the
// implausible-gap guard at the end still collapses contaminated pairs.
func resolveAmazonCandidates(candidates []float64) models.PricePair {
	if len(candidates) == 0 {
		return models.PricePair{}
	}

	// exact-value dedup, first-seen order
	seen := map[float64]bool{}
	var pool []float64
	for _, v := range candidates {
		if !seen[v] {
			seen[v] = true
			pool = append(pool, v)
		}
	}

	// sub-dollar values are review counts, badge numbers, percentages
	pool = filterPrices(pool, func(v float64) bool { return v >= 1.00 })
	if len(pool) == 0 {
		return models.PricePair{}
	}

	// a spread wider than 50% means per-unit noise got in; keep the values
	// near the top of the range
	if maxPrice, minPrice := maxOf(pool), minOf(pool); (maxPrice-minPrice)/maxPrice > 0.5 {
		if filtered := filterPrices(pool, func(v float64) bool { return v >= maxPrice*0.30 }); len(filtered) >= 2 {
			pool = filtered
		}
	}

	// cap the pool at the three largest
	if len(pool) > 3 {
		sort.Sort(sort.Reverse(sort.Float64Slice(pool)))
		pool = pool[:3]
	}

	// drop stragglers far below the surviving maximum
	if len(pool) > 1 {
		maxPrice := maxOf(pool)
		if filtered := filterPrices(pool, func(v float64) bool { return v >= maxPrice*0.20 }); len(filtered) >= 2 {
			pool = filtered
		}
	}

	current, original := minOf(pool), maxOf(pool)

	// an original more than 3x the current is cross-contamination (bundles,
	// warranties), not a believable list price
	if original > current*3 {
		original = current
	}

	return pairFrom(current, original)
}

// --- JSON-LD helpers ---

func jsonLDName(doc *Document) string {
	name := ""
	eachJSONLD(doc, func(payload interface{}) bool {
		switch v := payload.(type) {
		case map[string]interface{}:
			if n, ok := v["name"].(string); ok && n != "" {
				name = n
				return false
			}
		case []interface{}:
			for _, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					if n, ok := m["name"].(string); ok && n != "" {
						name = n
						return false
					}
				}
			}
		}
		return true
	})
	return collapseWhitespace(name)
}

func jsonLDImages(doc *Document) []string {
	var images []string
	eachJSONLD(doc, func(payload interface{}) bool {
		m, ok := payload.(map[string]interface{})
		if !ok {
			return true
		}
		switch img := m["image"].(type) {
		case string:
			images = append(images, img)
		case []interface{}:
			for _, item := range img {
				if s, ok := item.(string); ok {
					images = append(images, s)
				}
			}
		}
		return true
	})
	return images
}

// eachJSONLD decodes every ld+json script on the page, skipping malformed
// ones, until the visitor returns false.
func eachJSONLD(doc *Document, visit func(payload interface{}) bool) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var payload interface{}
		if err := json.Unmarshal([]byte(script.Text()), &payload); err != nil {
			return true
		}
		return visit(payload)
	})
}
