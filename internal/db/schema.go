package db

import (
	"database/sql"
)

const currentSchemaVersion = 2

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS songs (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT,
			cover_url TEXT,
			audio_path TEXT,
			duration INTEGER NOT NULL DEFAULT 0,
			added_at INTEGER NOT NULL,
			is_favorite INTEGER NOT NULL DEFAULT 0,
			genre TEXT,
			source_type TEXT NOT NULL DEFAULT 'upload'
		);

		CREATE INDEX IF NOT EXISTS idx_songs_user_added ON songs(user_id, added_at);
	`)
	if err != nil {
		return err
	}

	// Set initial version if not exists
	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	if err != nil {
		return err
	}

	// Migration: add source_url column if missing
	_, _ = db.Exec(`ALTER TABLE songs ADD COLUMN source_url TEXT`)

	return nil
}
