package extractor

import (
	"sort"

	"github.com/PuerkitoBio/goquery"
	"github.com/findsforliving-lab/finds4livingbot/models"
)

// genericStrategy is the fallback for storefronts without a registered
// strategy. Its selectors target the class-name conventions most shop
// templates share.
type genericStrategy struct{}

var genericPriceSelectors = []string{
	".price, .product-price",
	`[class*="price"]`,
	"[data-price]",
}

func (s *genericStrategy) Title(doc *Document) string {
	return chainText(doc, []string{
		"h1.product-title, h1.product-name",
		".product-title, .product-name",
		"h1",
		"title",
	})
}

// Price sweeps every price-looking element and treats the spread as the
// deal: the minimum is the current price, the maximum the original. A page
// with a single price yields a zero discount.
func (s *genericStrategy) Price(doc *Document) models.PricePair {
	var values []float64
	for _, sel := range genericPriceSelectors {
		doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
			if v, ok := ParsePrice(el.Text()); ok && v > 0 {
				values = append(values, v)
			}
		})
	}
	if len(values) == 0 {
		return models.PricePair{}
	}
	sort.Float64s(values)
	return pairFrom(values[0], values[len(values)-1])
}

func (s *genericStrategy) Images(doc *Document) []string {
	return collectImages(doc, []imageRule{
		{`img[alt*="product"], img[class*="product"], .product img`, []string{"src", "data-src"}},
	}, maxImages, looksLikeImage)
}

func (s *genericStrategy) Description(doc *Document) string {
	return chainText(doc, []string{
		".product-description, .description",
		`[class*="description"]`,
		".product-details, .details",
	})
}
