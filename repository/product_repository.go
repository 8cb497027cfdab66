package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/findsforliving-lab/finds4livingbot/models"
)

// ProductRepository persists tracked products and their price history.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// AddProduct inserts a product for tracking, seeded with the data from the
// first extraction. Re-adding an existing URL reactivates it.
func (r *ProductRepository) AddProduct(url string, record *models.ProductRecord) (*models.TrackedProduct, error) {
	imageURL := ""
	if len(record.Images) > 0 {
		imageURL = record.Images[0]
	}

	query := `
		INSERT INTO products (url, title, current_price, original_price, image_url, last_checked, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			current_price = EXCLUDED.current_price,
			original_price = EXCLUDED.original_price,
			image_url = EXCLUDED.image_url,
			last_checked = NOW(),
			updated_at = NOW(),
			is_active = TRUE
		RETURNING id`

	var id int
	err := r.db.QueryRow(query, url, record.Title,
		priceOrNull(record.Price.Current), priceOrNull(record.Price.Original), imageURL).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to add product: %v", err)
	}

	return r.GetProductByID(id)
}

// GetProducts returns all active tracked products, newest first.
func (r *ProductRepository) GetProducts() ([]*models.TrackedProduct, error) {
	query := `
		SELECT id, url, title, current_price, original_price, image_url,
		       last_checked, last_failed_at, retry_count, next_retry_at,
		       created_at, updated_at, is_active
		FROM products
		WHERE is_active = TRUE
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %v", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// GetProductByID returns one tracked product.
func (r *ProductRepository) GetProductByID(id int) (*models.TrackedProduct, error) {
	query := `
		SELECT id, url, title, current_price, original_price, image_url,
		       last_checked, last_failed_at, retry_count, next_retry_at,
		       created_at, updated_at, is_active
		FROM products
		WHERE id = $1`

	product := &models.TrackedProduct{}
	err := r.db.QueryRow(query, id).Scan(
		&product.ID, &product.URL, &product.Title,
		&product.CurrentPrice, &product.OriginalPrice, &product.ImageURL,
		&product.LastChecked, &product.LastFailedAt, &product.RetryCount, &product.NextRetryAt,
		&product.CreatedAt, &product.UpdatedAt, &product.IsActive)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %v", err)
	}
	return product, nil
}

// UpdateProductPrice stores a fresh price pair, appends a history point, and
// clears any retry state from previous failures.
func (r *ProductRepository) UpdateProductPrice(id int, title string, pair models.PricePair) error {
	query := `
		UPDATE products
		SET title = CASE WHEN $2 <> '' THEN $2 ELSE title END,
		    current_price = $3,
		    original_price = $4,
		    last_checked = NOW(),
		    last_failed_at = NULL,
		    retry_count = 0,
		    next_retry_at = NULL,
		    updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.Exec(query, id, title, priceOrNull(pair.Current), priceOrNull(pair.Original)); err != nil {
		return fmt.Errorf("failed to update product price: %v", err)
	}

	if pair.Current > 0 {
		history := `
			INSERT INTO price_history (product_id, price, original_price, discount_percent)
			VALUES ($1, $2, $3, $4)`
		if _, err := r.db.Exec(history, id, pair.Current, pair.Original, pair.DiscountPercent); err != nil {
			return fmt.Errorf("failed to record price history: %v", err)
		}
	}

	return nil
}

// MarkCheckFailed records a failed check and schedules the next retry.
func (r *ProductRepository) MarkCheckFailed(id int, nextRetry time.Duration) error {
	query := `
		UPDATE products
		SET last_failed_at = NOW(),
		    retry_count = retry_count + 1,
		    next_retry_at = NOW() + $2 * INTERVAL '1 second',
		    updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.Exec(query, id, int(nextRetry.Seconds())); err != nil {
		return fmt.Errorf("failed to mark check failed: %v", err)
	}
	return nil
}

// GetProductsForRetry returns active products whose failed checks are due
// for another attempt.
func (r *ProductRepository) GetProductsForRetry(maxRetries int) ([]*models.TrackedProduct, error) {
	query := `
		SELECT id, url, title, current_price, original_price, image_url,
		       last_checked, last_failed_at, retry_count, next_retry_at,
		       created_at, updated_at, is_active
		FROM products
		WHERE is_active = TRUE
		  AND last_failed_at IS NOT NULL
		  AND retry_count < $1
		  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY next_retry_at`

	rows, err := r.db.Query(query, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to get products for retry: %v", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// GetPriceHistory returns the recorded price points for a product, newest
// first, capped at limit.
func (r *ProductRepository) GetPriceHistory(productID, limit int) ([]*models.PricePoint, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, product_id, price, original_price, discount_percent, checked_at
		FROM price_history
		WHERE product_id = $1
		ORDER BY checked_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %v", err)
	}
	defer rows.Close()

	var points []*models.PricePoint
	for rows.Next() {
		point := &models.PricePoint{}
		if err := rows.Scan(&point.ID, &point.ProductID, &point.Price,
			&point.OriginalPrice, &point.DiscountPercent, &point.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %v", err)
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

// DeleteProduct deactivates a tracked product. History rows are kept.
func (r *ProductRepository) DeleteProduct(id int) error {
	result, err := r.db.Exec(`UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete product: %v", err)
	}
	if affected == 0 {
		return fmt.Errorf("product %d not found", id)
	}
	return nil
}

func scanProducts(rows *sql.Rows) ([]*models.TrackedProduct, error) {
	var products []*models.TrackedProduct
	for rows.Next() {
		product := &models.TrackedProduct{}
		if err := rows.Scan(
			&product.ID, &product.URL, &product.Title,
			&product.CurrentPrice, &product.OriginalPrice, &product.ImageURL,
			&product.LastChecked, &product.LastFailedAt, &product.RetryCount, &product.NextRetryAt,
			&product.CreatedAt, &product.UpdatedAt, &product.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan product: %v", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// priceOrNull maps a zero price to NULL so "no price found" never shows up
// as a free product.
func priceOrNull(price float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: price, Valid: price > 0}
}
