package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

// DBService represents a service that interacts with a database.
type DBService struct {
	DB *sql.DB
}

// NewDBService initializes a new database service by loading environment variables and establishing a connection to the database.
func NewDBService() (*DBService, error) {
	// Load environment variables from .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}

	// Get the connection string from environment variables
	connStr := os.Getenv("DB_CONNECTION_STRING")
	if connStr == "" {
		return nil, fmt.Errorf("missing DB_CONNECTION_STRING in environment variables")
	}

	// Open the database connection
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("could not open db connection: %v", err)
	}

	// Set database connection settings
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Ping the database to check connection
	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("could not connect to the database: %v", err)
	}

	return &DBService{DB: db}, nil
}

// EnsureSchema creates the tracker tables if they don't exist yet.
func (s *DBService) EnsureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS portfolios (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		total_value NUMERIC(32, 12) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holdings (
		id UUID PRIMARY KEY,
		portfolio_id UUID NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		quantity NUMERIC(32, 12) NOT NULL,
		average_cost NUMERIC(32, 12) NOT NULL,
		total_cost NUMERIC(32, 12) NOT NULL,
		current_price NUMERIC(32, 12),
		current_value NUMERIC(32, 12),
		profit_loss NUMERIC(32, 12),
		profit_loss_percentage NUMERIC(32, 12),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_price_update TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS holdings_active_symbol_idx
		ON holdings (portfolio_id, symbol) WHERE is_active;

	CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		holding_id UUID NOT NULL REFERENCES holdings(id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		type TEXT NOT NULL,
		quantity NUMERIC(32, 12) NOT NULL,
		price NUMERIC(32, 12) NOT NULL,
		total NUMERIC(32, 12) NOT NULL,
		fees NUMERIC(32, 12) NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		executed_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS transactions_holding_idx ON transactions (holding_id, executed_at);
	`
	if _, err := s.DB.Exec(schema); err != nil {
		return fmt.Errorf("could not ensure schema: %w", err)
	}
	return nil
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *DBService) Health() map[string]string {
	stats := make(map[string]string)

	err := s.DB.Ping()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	return stats
}

// Close closes the database connection.
// It logs a message indicating the disconnection from the specific database.
func (s *DBService) Close() error {
	log.Println("Closing database connection")
	return s.DB.Close()
}
