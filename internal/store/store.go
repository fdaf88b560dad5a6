package store

import (
	"database/sql"
	"fmt"
	"time"

	"cadenza/pkg/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store wraps a *sql.DB providing constraint-enforced persistence for
// tracks, genres, albums and playlists. It is safe for concurrent use
// because the underlying *sql.DB is concurrency-safe; every public mutation
// that touches more than one row runs as a single transaction.
type Store struct {
	conn   *sql.DB
	logger *logrus.Logger
}

// Open opens (or creates) a SQLite database at the provided path, applies
// performance-oriented pragmas (WAL, cache sizing) and ensures the full
// schema exists. Caller should Close() it when finished.
func Open(dbPath string) (*Store, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - adjusted for SQLite
	conn.SetMaxOpenConns(5) // SQLite works better with fewer connections
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;", // required for cascade deletes
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	s := &Store{
		conn:   conn,
		logger: logger,
	}

	if err := s.Initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Store initialized successfully")
	return s, nil
}

// Initialize creates all tables, indices and triggers inside one
// transaction. It is idempotent: running it against an already-initialized
// store is a no-op.
func (s *Store) Initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tracks (
			track_id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_path TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			artist TEXT,
			album TEXT,
			album_artist TEXT,
			track_number INTEGER,
			disc_number INTEGER,
			release_year INTEGER,
			duration_seconds INTEGER DEFAULT 0,
			bitrate INTEGER,
			sample_rate INTEGER,
			codec TEXT,
			file_size_bytes INTEGER DEFAULT 0,
			date_added DATETIME NOT NULL,
			date_modified DATETIME,
			is_compilation BOOLEAN DEFAULT FALSE,
			artwork_path TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS genres (
			genre_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);`,

		`CREATE TABLE IF NOT EXISTS track_genres (
			track_id INTEGER NOT NULL,
			genre_id INTEGER NOT NULL,
			FOREIGN KEY (track_id) REFERENCES tracks(track_id) ON DELETE CASCADE,
			FOREIGN KEY (genre_id) REFERENCES genres(genre_id) ON DELETE CASCADE,
			PRIMARY KEY (track_id, genre_id)
		);`,

		`CREATE TABLE IF NOT EXISTS playlists (
			playlist_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT,
			artwork_path TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS playlist_tracks (
			playlist_id INTEGER NOT NULL,
			track_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (playlist_id) REFERENCES playlists(playlist_id) ON DELETE CASCADE,
			FOREIGN KEY (track_id) REFERENCES tracks(track_id) ON DELETE CASCADE,
			PRIMARY KEY (playlist_id, track_id)
		);`,

		`CREATE TABLE IF NOT EXISTS albums (
			album_id INTEGER PRIMARY KEY AUTOINCREMENT,
			album_title TEXT NOT NULL,
			album_artist TEXT,
			release_year INTEGER,
			artwork_path TEXT,
			is_compilation BOOLEAN DEFAULT FALSE,
			track_count INTEGER DEFAULT 0,
			UNIQUE(album_title, album_artist)
		);`,

		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);`,

		"CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_artist_album ON tracks(artist, album, track_number);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_date_added ON tracks(date_added);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_file_path ON tracks(file_path);",
		"CREATE INDEX IF NOT EXISTS idx_track_genres_genre ON track_genres(genre_id);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_tracks_playlist ON playlist_tracks(playlist_id);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_tracks_position ON playlist_tracks(playlist_id, position);",
		"CREATE INDEX IF NOT EXISTS idx_albums_title_artist ON albums(album_title, album_artist);",

		`CREATE TRIGGER IF NOT EXISTS trg_tracks_updated_at
		AFTER UPDATE ON tracks
		FOR EACH ROW
		BEGIN
			UPDATE tracks SET updated_at = CURRENT_TIMESTAMP WHERE track_id = NEW.track_id;
		END;`,
	}

	return s.withTx(func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.WithError(rbErr).Error("Failed to roll back transaction")
		}
		return classifyErr(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SchemaVersion returns the highest migration version applied so far, or 0
// for a store that has never been migrated.
func (s *Store) SchemaVersion() (int, error) {
	var version sql.NullInt64
	err := s.conn.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// Migrate applies body and records target as the new schema version in one
// atomic unit. A migration whose target version is less than or equal to the
// current version is a no-op, so migrations are idempotent with respect to
// version.
func (s *Store) Migrate(target int, body func(tx *sql.Tx) error) error {
	current, err := s.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current >= target {
		s.logger.WithFields(logrus.Fields{
			"current": current,
			"target":  target,
		}).Debug("Skipping migration, already applied")
		return nil
	}

	err = s.withTx(func(tx *sql.Tx) error {
		if err := body(tx); err != nil {
			return err
		}
		_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", target)
		return err
	})
	if err != nil {
		return fmt.Errorf("migration to version %d failed: %w", target, err)
	}

	s.logger.WithField("version", target).Info("Applied schema migration")
	return nil
}

// GetStats returns entity counts for the whole store.
func (s *Store) GetStats() (*models.StoreStats, error) {
	stats := &models.StoreStats{}
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM tracks", &stats.Tracks},
		{"SELECT COUNT(*) FROM albums", &stats.Albums},
		{"SELECT COUNT(*) FROM playlists", &stats.Playlists},
		{"SELECT COUNT(*) FROM genres", &stats.Genres},
	}
	for _, c := range counts {
		if err := s.conn.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping() error {
	return s.conn.Ping()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
