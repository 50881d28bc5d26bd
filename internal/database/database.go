package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"eventchat/internal/config"
)

// schema is applied on every start; statements are idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(200) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
		scheduled_at DATETIME NOT NULL,
		duration_seconds BIGINT NOT NULL DEFAULT 0,
		creator VARCHAR(150) NOT NULL DEFAULT ''
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		event_id BIGINT NOT NULL,
		author VARCHAR(150) NOT NULL,
		display_name VARCHAR(150) NOT NULL,
		content TEXT NOT NULL,
		highlighted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME(6) NOT NULL,
		deleted_at DATETIME(6) NULL,
		INDEX idx_chat_messages_event (event_id, deleted_at, created_at),
		FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// Init opens the MariaDB connection and applies the schema
func Init(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 接続テスト
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("✅ Database connection established")
	return db, nil
}

// Migrate creates missing tables
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
