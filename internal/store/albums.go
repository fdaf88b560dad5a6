package store

import (
	"database/sql"
	"strings"

	"cadenza/pkg/models"
)

// GetOrCreateAlbum returns the identifier for the album keyed by
// (title, album artist), creating the row lazily. Two albums with the same
// title but different artists are distinct entities.
func (s *Store) GetOrCreateAlbum(album models.Album) (int64, error) {
	if strings.TrimSpace(album.Title) == "" {
		return 0, &ValidationError{Field: "album_title", Message: "album title is required"}
	}

	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		// album_artist is stored as '' rather than NULL: the UNIQUE
		// constraint treats NULLs as distinct, which would defeat the
		// INSERT OR IGNORE for untagged album artists.
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO albums (album_title, album_artist, release_year, artwork_path, is_compilation)
			VALUES (?, ?, ?, ?, ?)`,
			album.Title, album.AlbumArtist, nullInt(album.ReleaseYear),
			nullString(album.ArtworkPath), album.IsCompilation)
		if err != nil {
			return err
		}
		return tx.QueryRow(`
			SELECT album_id FROM albums
			WHERE album_title = ? AND album_artist = ?`,
			album.Title, album.AlbumArtist).Scan(&id)
	})
	return id, err
}

// GetAllAlbums returns every album ordered by artist then title.
func (s *Store) GetAllAlbums() ([]models.Album, error) {
	rows, err := s.conn.Query(`
		SELECT album_id, album_title, album_artist, release_year, artwork_path,
			is_compilation, track_count
		FROM albums
		ORDER BY album_artist, album_title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []models.Album
	for rows.Next() {
		var album models.Album
		var albumArtist, artworkPath sql.NullString
		var releaseYear sql.NullInt64
		err := rows.Scan(&album.ID, &album.Title, &albumArtist, &releaseYear,
			&artworkPath, &album.IsCompilation, &album.TrackCount)
		if err != nil {
			return nil, err
		}
		album.AlbumArtist = albumArtist.String
		album.ArtworkPath = artworkPath.String
		album.ReleaseYear = int(releaseYear.Int64)
		albums = append(albums, album)
	}
	return albums, rows.Err()
}

// UpdateAlbumTrackCount recounts the tracks referencing this album by
// (album, album_artist) free text and stores the result. The album table is
// a materialized aggregate, rebuilt on demand rather than on every track
// write.
func (s *Store) UpdateAlbumTrackCount(albumID int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		var title, albumArtist string
		err := tx.QueryRow(`
			SELECT album_title, album_artist FROM albums WHERE album_id = ?`,
			albumID).Scan(&title, &albumArtist)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		// Tracks store an untagged album artist as NULL, albums as ''.
		var count int
		err = tx.QueryRow(`
			SELECT COUNT(*) FROM tracks WHERE album = ? AND album_artist IS ?`,
			title, nullString(albumArtist)).Scan(&count)
		if err != nil {
			return err
		}

		_, err = tx.Exec("UPDATE albums SET track_count = ? WHERE album_id = ?", count, albumID)
		return err
	})
}
