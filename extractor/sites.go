package extractor

import (
	"github.com/findsforliving-lab/finds4livingbot/models"
)

// mercadoLivreStrategy covers mercadolivre.com.br product pages.
type mercadoLivreStrategy struct{}

func (s *mercadoLivreStrategy) Title(doc *Document) string {
	return chainText(doc, []string{
		".ui-pdp-title",
		"h1.item-title__primary",
		".x-item-title-label h1",
	})
}

func (s *mercadoLivreStrategy) Price(doc *Document) models.PricePair {
	current := chainText(doc, []string{
		".andes-money-amount__fraction",
		".price-tag-fraction",
		".notranslate",
	})
	original := chainText(doc, []string{
		".ui-pdp-price__original-value",
		".price-tag-was",
	})
	return ResolvePricePair(current, original)
}

func (s *mercadoLivreStrategy) Images(doc *Document) []string {
	return collectImages(doc, []imageRule{
		{".ui-pdp-gallery img, .gallery-image img", []string{"data-src", "src"}},
	}, maxImages)
}

func (s *mercadoLivreStrategy) Description(doc *Document) string {
	return chainText(doc, []string{
		".ui-pdp-description__content",
		".item-description",
		".ui-pdp-specs",
	})
}

// aliExpressStrategy covers aliexpress.com product pages.
type aliExpressStrategy struct{}

func (s *aliExpressStrategy) Title(doc *Document) string {
	return chainText(doc, []string{
		`h1[data-pl="product-title"]`,
		".product-title-text",
		"h1.product-name",
	})
}

func (s *aliExpressStrategy) Price(doc *Document) models.PricePair {
	current := chainText(doc, []string{
		".product-price-current",
		".uniform-banner-box-price",
		".notranslate",
	})
	original := chainText(doc, []string{
		".product-price-del",
		".uniform-banner-box-original-price",
	})
	return ResolvePricePair(current, original)
}

func (s *aliExpressStrategy) Images(doc *Document) []string {
	return collectImages(doc, []imageRule{
		{".images-view-item img, .product-image img", []string{"src", "data-src"}},
	}, maxImages)
}

func (s *aliExpressStrategy) Description(doc *Document) string {
	return chainText(doc, []string{
		".product-overview",
		".product-description",
		".product-property",
	})
}

// shopeeStrategy covers shopee.com.br product pages. Shopee ships obfuscated
// class names that rotate between deployments; the hashed selectors here are
// the ones the site currently renders.
type shopeeStrategy struct{}

func (s *shopeeStrategy) Title(doc *Document) string {
	return chainText(doc, []string{"._44qnta", ".qaNIZv", "h1"})
}

func (s *shopeeStrategy) Price(doc *Document) models.PricePair {
	current := chainText(doc, []string{"._16N3Fb", ".flex-no-wrap", ".notranslate"})
	original := chainText(doc, []string{"._1w9jLI", ".mq6Cw7"})
	return ResolvePricePair(current, original)
}

func (s *shopeeStrategy) Images(doc *Document) []string {
	return collectImages(doc, []imageRule{
		{"._2JbXVy img, .product-image img", []string{"src"}},
	}, maxImages)
}

func (s *shopeeStrategy) Description(doc *Document) string {
	return chainText(doc, []string{"._2u0jt9", ".product-detail", "._2aZyWI"})
}

// magaluStrategy covers magazineluiza.com.br product pages.
type magaluStrategy struct{}

func (s *magaluStrategy) Title(doc *Document) string {
	return chainText(doc, []string{
		`[data-testid="heading-product-title"]`,
		".header-product__title",
		"h1",
	})
}

func (s *magaluStrategy) Price(doc *Document) models.PricePair {
	current := chainText(doc, []string{
		`[data-testid="price-value"]`,
		".price-template__text",
		".price",
	})
	original := chainText(doc, []string{
		`[data-testid="price-original"]`,
		".price-template__discount",
	})
	return ResolvePricePair(current, original)
}

func (s *magaluStrategy) Images(doc *Document) []string {
	return collectImages(doc, []imageRule{
		{`[data-testid="product-image"] img, .product-gallery img`, []string{"src"}},
	}, maxImages)
}

func (s *magaluStrategy) Description(doc *Document) string {
	return chainText(doc, []string{
		`[data-testid="product-description"]`,
		".description-product",
		".product-resume",
	})
}

// americanasStrategy covers americanas.com.br product pages.
type americanasStrategy struct{}

func (s *americanasStrategy) Title(doc *Document) string {
	return chainText(doc, []string{
		`h1[data-testid="product-name"]`,
		".product-title",
		"h1",
	})
}

func (s *americanasStrategy) Price(doc *Document) models.PricePair {
	current := chainText(doc, []string{
		`[data-testid="price-value"]`,
		".sales-price",
		".price",
	})
	original := chainText(doc, []string{
		`[data-testid="list-price"]`,
		".list-price",
	})
	return ResolvePricePair(current, original)
}

func (s *americanasStrategy) Images(doc *Document) []string {
	return collectImages(doc, []imageRule{
		{`[data-testid="product-image"] img, .product-image img`, []string{"src"}},
	}, maxImages)
}

func (s *americanasStrategy) Description(doc *Document) string {
	return chainText(doc, []string{
		`[data-testid="product-description"]`,
		".product-description",
		".product-details",
	})
}
