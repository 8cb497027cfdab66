package scheduler

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/findsforliving-lab/finds4livingbot/models"
	"github.com/findsforliving-lab/finds4livingbot/repository"
)

// maxRetries caps how often a failing product is retried before it waits
// for the next full check cycle.
const maxRetries = 5

// PriceChecker periodically re-extracts every tracked product and records
// price changes. Failed checks are retried on a faster schedule with the
// backoff ladder from models.TrackedProduct.
type PriceChecker struct {
	cron          *cron.Cron
	repo          *repository.ProductRepository
	extract       ExtractFunc
	checkSchedule string
	retrySchedule string
}

// NewPriceChecker wires the checker; Start registers the cron entries.
func NewPriceChecker(repo *repository.ProductRepository, extract ExtractFunc, checkSchedule, retrySchedule string) *PriceChecker {
	return &PriceChecker{
		cron:          cron.New(),
		repo:          repo,
		extract:       extract,
		checkSchedule: checkSchedule,
		retrySchedule: retrySchedule,
	}
}

// Start registers the schedules and starts the cron loop.
func (pc *PriceChecker) Start() error {
	if _, err := pc.cron.AddFunc(pc.checkSchedule, pc.CheckAllProducts); err != nil {
		return err
	}
	if _, err := pc.cron.AddFunc(pc.retrySchedule, pc.RetryFailedProducts); err != nil {
		return err
	}

	pc.cron.Start()
	log.Printf("Price checker started (check %q, retry %q)", pc.checkSchedule, pc.retrySchedule)
	return nil
}

// Stop halts the cron loop. Running checks finish on their own.
func (pc *PriceChecker) Stop() {
	pc.cron.Stop()
}

// CheckAllProducts re-extracts every active tracked product.
func (pc *PriceChecker) CheckAllProducts() {
	products, err := pc.repo.GetProducts()
	if err != nil {
		log.Printf("Failed to load products for price check: %v", err)
		return
	}

	log.Printf("Checking prices for %d products", len(products))
	for _, product := range products {
		go pc.checkProduct(product)
	}
}

// RetryFailedProducts re-checks products whose last check failed and whose
// backoff window has passed.
func (pc *PriceChecker) RetryFailedProducts() {
	products, err := pc.repo.GetProductsForRetry(maxRetries)
	if err != nil {
		log.Printf("Failed to load products for retry: %v", err)
		return
	}

	for _, product := range products {
		log.Printf("Retrying product %d (attempt %d)", product.ID, product.RetryCount+1)
		pc.checkProduct(product)
	}
}

func (pc *PriceChecker) checkProduct(product *models.TrackedProduct) {
	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	resp, err := pc.extract(ctx, product.URL)
	if err != nil {
		log.Printf("Price check failed for product %d (%s): %v", product.ID, product.URL, err)
		pc.markFailed(product)
		return
	}

	pair := resp.Product.Price
	if pair.IsZero() {
		log.Printf("No price found for product %d (%s)", product.ID, product.URL)
		pc.markFailed(product)
		return
	}

	previous := product.GetCurrentPrice()
	if err := pc.repo.UpdateProductPrice(product.ID, resp.Product.Title, pair); err != nil {
		log.Printf("Failed to store price for product %d: %v", product.ID, err)
		return
	}

	if previous > 0 && pair.Current < previous {
		log.Printf("Price drop on product %d: %.2f -> %.2f", product.ID, previous, pair.Current)
	}
}

func (pc *PriceChecker) markFailed(product *models.TrackedProduct) {
	if err := pc.repo.MarkCheckFailed(product.ID, product.GetRetryDelay()); err != nil {
		log.Printf("Failed to record check failure for product %d: %v", product.ID, err)
	}
}
