package store

import (
	"database/sql"
	"strings"

	"cadenza/pkg/models"
)

// getOrCreateGenreTx looks up a genre by name inside tx, creating it when
// absent. Repeated calls with equal input return the same identifier.
func getOrCreateGenreTx(tx *sql.Tx, name string) (int64, error) {
	if _, err := tx.Exec("INSERT OR IGNORE INTO genres (name) VALUES (?)", name); err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRow("SELECT genre_id FROM genres WHERE name = ?", name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetOrCreateGenre returns the identifier for the named genre, creating the
// row lazily on first use.
func (s *Store) GetOrCreateGenre(name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, &ValidationError{Field: "name", Message: "genre name is required"}
	}

	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		var err error
		id, err = getOrCreateGenreTx(tx, name)
		return err
	})
	return id, err
}

// AddTrackGenres attaches the named genres to a track, creating genre rows
// as needed. The whole batch is one transaction: if any creation or
// attachment fails, none of this call's attachments persist.
func (s *Store) AddTrackGenres(trackID int64, names []string) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			genreID, err := getOrCreateGenreTx(tx, name)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`
				INSERT OR IGNORE INTO track_genres (track_id, genre_id)
				VALUES (?, ?)`, trackID, genreID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTrackGenres returns the genre names attached to a track in
// lexicographic order.
func (s *Store) GetTrackGenres(trackID int64) ([]string, error) {
	rows, err := s.conn.Query(`
		SELECT g.name
		FROM genres g
		JOIN track_genres tg ON g.genre_id = tg.genre_id
		WHERE tg.track_id = ?
		ORDER BY g.name`, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ClearTrackGenres detaches all genres from the track.
func (s *Store) ClearTrackGenres(trackID int64) error {
	_, err := s.conn.Exec("DELETE FROM track_genres WHERE track_id = ?", trackID)
	return err
}

// GetAllGenres returns every genre ordered by name.
func (s *Store) GetAllGenres() ([]models.Genre, error) {
	rows, err := s.conn.Query("SELECT genre_id, name FROM genres ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []models.Genre
	for rows.Next() {
		var genre models.Genre
		if err := rows.Scan(&genre.ID, &genre.Name); err != nil {
			return nil, err
		}
		genres = append(genres, genre)
	}
	return genres, rows.Err()
}
