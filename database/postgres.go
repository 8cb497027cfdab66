package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// InitDB opens the Postgres connection pool and verifies it with a ping.
func InitDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	log.Println("Database connection established")
	return db, nil
}

// CreateTables creates the tracking schema if it does not exist yet.
func CreateTables(db *sql.DB) error {
	productsTable := `
	CREATE TABLE IF NOT EXISTS products (
		id SERIAL PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		current_price DECIMAL(12,2),
		original_price DECIMAL(12,2),
		image_url TEXT NOT NULL DEFAULT '',
		last_checked TIMESTAMP,
		last_failed_at TIMESTAMP,
		retry_count INTEGER NOT NULL DEFAULT 0,
		next_retry_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`

	historyTable := `
	CREATE TABLE IF NOT EXISTS price_history (
		id SERIAL PRIMARY KEY,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		price DECIMAL(12,2) NOT NULL,
		original_price DECIMAL(12,2) NOT NULL,
		discount_percent INTEGER NOT NULL DEFAULT 0,
		checked_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`

	historyIndex := `
	CREATE INDEX IF NOT EXISTS idx_price_history_product
	ON price_history(product_id, checked_at DESC)`

	for _, stmt := range []string{productsTable, historyTable, historyIndex} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create tables: %v", err)
		}
	}

	log.Println("Database tables ready")
	return nil
}
