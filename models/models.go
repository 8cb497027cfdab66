package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// PricePair is the normalized price triple extracted from a product page.
// Invariant: Original >= Current, both non-negative. DiscountPercent is
// round((Original-Current)/Original*100) when Original > Current, else 0.
type PricePair struct {
	Current         float64 `json:"current"`
	Original        float64 `json:"original"`
	DiscountPercent int     `json:"discount_percent"`
}

// IsZero reports whether no price information was found.
func (p PricePair) IsZero() bool {
	return p.Current == 0 && p.Original == 0
}

// ProductRecord is the result of one extraction call. All fields are always
// populated: missing data degrades to the zero value, never to nil.
type ProductRecord struct {
	Title       string    `json:"title"`
	Price       PricePair `json:"price"`
	Images      []string  `json:"images"`
	Description string    `json:"description"`
}

// NewProductRecord returns an empty record with a non-nil image slice.
func NewProductRecord() *ProductRecord {
	return &ProductRecord{Images: []string{}}
}

// TrackedProduct is a product URL being monitored for price changes.
type TrackedProduct struct {
	ID            int             `json:"id" db:"id"`
	URL           string          `json:"url" db:"url"`
	Title         string          `json:"title" db:"title"`
	CurrentPrice  sql.NullFloat64 `json:"-" db:"current_price"`
	OriginalPrice sql.NullFloat64 `json:"-" db:"original_price"`
	ImageURL      string          `json:"image_url" db:"image_url"`
	LastChecked   *time.Time      `json:"last_checked" db:"last_checked"`
	LastFailedAt  *time.Time      `json:"last_failed_at" db:"last_failed_at"`
	RetryCount    int             `json:"retry_count" db:"retry_count"`
	NextRetryAt   *time.Time      `json:"next_retry_at" db:"next_retry_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	IsActive      bool            `json:"is_active" db:"is_active"`
}

// GetCurrentPrice returns the current price as float64, or 0 if NULL.
func (t *TrackedProduct) GetCurrentPrice() float64 {
	if t.CurrentPrice.Valid {
		return t.CurrentPrice.Float64
	}
	return 0.0
}

// GetOriginalPrice returns the original price as float64, or 0 if NULL.
func (t *TrackedProduct) GetOriginalPrice() float64 {
	if t.OriginalPrice.Valid {
		return t.OriginalPrice.Float64
	}
	return 0.0
}

// HasPrice returns true if the product has a known current price.
func (t *TrackedProduct) HasPrice() bool {
	return t.CurrentPrice.Valid
}

// CanRetry returns true if a failed product check may be retried now.
func (t *TrackedProduct) CanRetry() bool {
	if t.NextRetryAt == nil {
		return true
	}
	return time.Now().After(*t.NextRetryAt)
}

// ShouldRetry returns true if the product has failed and is due for a retry.
func (t *TrackedProduct) ShouldRetry() bool {
	return t.LastFailedAt != nil && t.CanRetry() && t.RetryCount < 5
}

// GetRetryDelay returns the backoff delay for the next retry.
func (t *TrackedProduct) GetRetryDelay() time.Duration {
	switch t.RetryCount {
	case 0:
		return 10 * time.Minute
	case 1:
		return 30 * time.Minute
	case 2:
		return 1 * time.Hour
	case 3:
		return 3 * time.Hour
	case 4:
		return 6 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// MarshalJSON exposes the nullable price columns as plain nullable numbers.
func (t *TrackedProduct) MarshalJSON() ([]byte, error) {
	type Alias TrackedProduct
	return json.Marshal(&struct {
		*Alias
		CurrentPrice  *float64 `json:"current_price"`
		OriginalPrice *float64 `json:"original_price"`
	}{
		Alias:         (*Alias)(t),
		CurrentPrice:  nullFloatPtr(t.CurrentPrice),
		OriginalPrice: nullFloatPtr(t.OriginalPrice),
	})
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if v.Valid {
		f := v.Float64
		return &f
	}
	return nil
}

// PricePoint is one entry in a product's price history.
type PricePoint struct {
	ID              int       `json:"id" db:"id"`
	ProductID       int       `json:"product_id" db:"product_id"`
	Price           float64   `json:"price" db:"price"`
	OriginalPrice   float64   `json:"original_price" db:"original_price"`
	DiscountPercent int       `json:"discount_percent" db:"discount_percent"`
	CheckedAt       time.Time `json:"checked_at" db:"checked_at"`
}

// ExtractRequest is the body of POST /api/v1/extract. When HTML is empty the
// page is fetched; otherwise the supplied markup is parsed directly.
type ExtractRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

// ExtractResponse wraps an extraction result with the resolved final URL.
type ExtractResponse struct {
	OriginalURL string         `json:"original_url"`
	FinalURL    string         `json:"final_url"`
	Product     *ProductRecord `json:"product"`
}

// TrackRequest is the body of POST /api/v1/products.
type TrackRequest struct {
	URL string `json:"url"`
}

// Draft is a per-user pending product held between extraction and publication.
type Draft struct {
	UserID    string         `json:"user_id"`
	URL       string         `json:"url"`
	Product   *ProductRecord `json:"product"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DraftPatch carries the editable fields of a draft. Nil means unchanged.
type DraftPatch struct {
	Title         *string  `json:"title,omitempty"`
	CurrentPrice  *float64 `json:"current_price,omitempty"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Images        []string `json:"images,omitempty"`
}
