package extractor

import (
	"net/url"
	"strings"

	"github.com/findsforliving-lab/finds4livingbot/models"
)

// Strategy is the capability set one storefront needs: each method reads a
// parsed page and returns its field, degrading to the zero value when the
// field cannot be found. Implementations hold no per-page state, so a single
// instance serves concurrent extractions.
type Strategy interface {
	Title(doc *Document) string
	Price(doc *Document) models.PricePair
	Images(doc *Document) []string
	Description(doc *Document) string
}

// Engine routes product pages to the strategy registered for their domain.
// The registry is populated once in NewEngine and never mutated afterward,
// which keeps Extract lock-free under concurrency.
type Engine struct {
	strategies map[string]Strategy
	generic    Strategy
}

// NewEngine builds the engine with all supported storefronts registered.
func NewEngine() *Engine {
	amazon := &amazonStrategy{}
	return &Engine{
		strategies: map[string]Strategy{
			"amazon.com.br":        amazon,
			"amazon.com":           amazon,
			"mercadolivre.com.br":  &mercadoLivreStrategy{},
			"aliexpress.com":       &aliExpressStrategy{},
			"shopee.com.br":        &shopeeStrategy{},
			"magazineluiza.com.br": &magaluStrategy{},
			"americanas.com.br":    &americanasStrategy{},
		},
		generic: &genericStrategy{},
	}
}

// Extract runs the full field set against a page and returns a complete
// record: fields the page does not expose come back as zero values, and the
// images slice is never nil.
func (e *Engine) Extract(pageURL string, doc *Document) *models.ProductRecord {
	strategy := e.StrategyFor(pageURL)

	record := models.NewProductRecord()
	record.Title = strategy.Title(doc)
	record.Price = strategy.Price(doc)
	if images := strategy.Images(doc); images != nil {
		record.Images = images
	}
	record.Description = strategy.Description(doc)
	return record
}

// StrategyFor resolves the registered strategy for a URL's hostname, falling
// back to the generic strategy for unknown storefronts. Subdomains match
// their registered parent domain.
func (e *Engine) StrategyFor(pageURL string) Strategy {
	host := hostnameOf(pageURL)
	for suffix, strategy := range e.strategies {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return strategy
		}
	}
	return e.generic
}

func hostnameOf(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
