package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func InitDB(logger *zap.Logger) (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "revenuedb")

	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Bootstrap schema if it doesn't exist. The unique index on reminders
	// makes the 24h de-duplication an insert-if-absent at the storage layer.
	createSchemaQuery := `
	CREATE TABLE IF NOT EXISTS revenue_types (
		code VARCHAR(50) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
		renewal_period_days INTEGER NOT NULL DEFAULT 365
	);

	CREATE TABLE IF NOT EXISTS payments (
		id SERIAL PRIMARY KEY,
		reference VARCHAR(255) UNIQUE NOT NULL,
		payer_name VARCHAR(255) NOT NULL,
		payer_phone VARCHAR(50),
		payer_email VARCHAR(255),
		amount DECIMAL(14, 2) NOT NULL,
		revenue_type_code VARCHAR(50) NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		confirmed_at TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reminders (
		id VARCHAR(36) PRIMARY KEY,
		payment_id INTEGER NOT NULL,
		reminder_type VARCHAR(50) NOT NULL,
		channel VARCHAR(20) NOT NULL,
		sent_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		delivered BOOLEAN NOT NULL DEFAULT FALSE,
		day_bucket DATE NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS reminders_dedup_idx
		ON reminders (payment_id, reminder_type, channel, day_bucket);

	CREATE TABLE IF NOT EXISTS receipts (
		receipt_number VARCHAR(50) PRIMARY KEY,
		payment_reference VARCHAR(255) NOT NULL,
		qr_payload TEXT NOT NULL,
		html TEXT NOT NULL,
		generated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := db.Exec(createSchemaQuery); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
