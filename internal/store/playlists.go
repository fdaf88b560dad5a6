package store

import (
	"database/sql"
	"strings"

	"cadenza/pkg/models"
)

// CreatePlaylist inserts a new playlist and returns its ID.
func (s *Store) CreatePlaylist(name, description string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, &ValidationError{Field: "name", Message: "playlist name is required"}
	}

	result, err := s.conn.Exec(`
		INSERT INTO playlists (name, description)
		VALUES (?, ?)`, name, nullString(description))
	if err != nil {
		return 0, classifyErr(err)
	}
	return result.LastInsertId()
}

// GetPlaylist returns a single playlist with its derived track count, or
// ErrNotFound.
func (s *Store) GetPlaylist(id int64) (*models.Playlist, error) {
	var playlist models.Playlist
	var description, artworkPath sql.NullString

	err := s.conn.QueryRow(`
		SELECT p.playlist_id, p.name, p.description, p.artwork_path, p.created_at,
			   COALESCE(COUNT(pt.track_id), 0) as track_count
		FROM playlists p
		LEFT JOIN playlist_tracks pt ON p.playlist_id = pt.playlist_id
		WHERE p.playlist_id = ?
		GROUP BY p.playlist_id`, id).Scan(
		&playlist.ID, &playlist.Name, &description, &artworkPath,
		&playlist.CreatedAt, &playlist.TrackCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	playlist.Description = description.String
	playlist.ArtworkPath = artworkPath.String
	return &playlist, nil
}

// GetAllPlaylists returns all playlists along with derived track counts.
func (s *Store) GetAllPlaylists() ([]models.Playlist, error) {
	rows, err := s.conn.Query(`
		SELECT p.playlist_id, p.name, p.description, p.artwork_path, p.created_at,
			   COALESCE(COUNT(pt.track_id), 0) as track_count
		FROM playlists p
		LEFT JOIN playlist_tracks pt ON p.playlist_id = pt.playlist_id
		GROUP BY p.playlist_id, p.name, p.description, p.artwork_path, p.created_at
		ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var playlist models.Playlist
		var description, artworkPath sql.NullString
		err := rows.Scan(&playlist.ID, &playlist.Name, &description,
			&artworkPath, &playlist.CreatedAt, &playlist.TrackCount)
		if err != nil {
			return nil, err
		}
		playlist.Description = description.String
		playlist.ArtworkPath = artworkPath.String
		playlists = append(playlists, playlist)
	}
	return playlists, rows.Err()
}

// UpdatePlaylist updates playlist metadata, reporting rows changed.
func (s *Store) UpdatePlaylist(id int64, name, description, artworkPath string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, &ValidationError{Field: "name", Message: "playlist name is required"}
	}

	result, err := s.conn.Exec(`
		UPDATE playlists
		SET name = ?, description = ?, artwork_path = ?
		WHERE playlist_id = ?`,
		name, nullString(description), nullString(artworkPath), id)
	if err != nil {
		return 0, classifyErr(err)
	}
	return result.RowsAffected()
}

// DeletePlaylist deletes the playlist; membership rows cascade. Reports the
// number of playlist rows removed.
func (s *Store) DeletePlaylist(id int64) (int64, error) {
	result, err := s.conn.Exec("DELETE FROM playlists WHERE playlist_id = ?", id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// AddTracksToPlaylist appends tracks at the current maximum position + 1.
// Tracks already in the playlist are skipped without changing their
// position; the whole batch is one transaction.
func (s *Store) AddTracksToPlaylist(playlistID int64, trackIDs []int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		var maxPosition sql.NullInt64
		err := tx.QueryRow(`
			SELECT MAX(position) FROM playlist_tracks WHERE playlist_id = ?`,
			playlistID).Scan(&maxPosition)
		if err != nil && err != sql.ErrNoRows {
			return err
		}

		position := int64(1)
		if maxPosition.Valid {
			position = maxPosition.Int64 + 1
		}

		for _, trackID := range trackIDs {
			result, err := tx.Exec(`
				INSERT INTO playlist_tracks (playlist_id, track_id, position)
				VALUES (?, ?, ?)
				ON CONFLICT(playlist_id, track_id) DO NOTHING`,
				playlistID, trackID, position)
			if err != nil {
				return err
			}
			// Only consume a position when the row was actually inserted.
			inserted, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if inserted > 0 {
				position++
			}
		}
		return nil
	})
}

// GetPlaylistTracks returns tracks for a playlist joined with their stored
// position, ordered by position. Gaps left by removals are preserved.
func (s *Store) GetPlaylistTracks(playlistID int64) ([]models.PlaylistTrack, error) {
	rows, err := s.conn.Query(`
		SELECT t.track_id, t.file_path, t.title, t.artist, t.album, t.album_artist,
			t.track_number, t.disc_number, t.release_year, t.duration_seconds,
			t.bitrate, t.sample_rate, t.codec, t.file_size_bytes, t.date_added,
			t.date_modified, t.is_compilation, t.artwork_path, t.created_at,
			t.updated_at, pt.position
		FROM tracks t
		JOIN playlist_tracks pt ON t.track_id = pt.track_id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []models.PlaylistTrack
	for rows.Next() {
		var pt models.PlaylistTrack
		var artist, album, albumArtist, codec, artworkPath sql.NullString
		var trackNumber, discNumber, releaseYear, bitrate, sampleRate sql.NullInt64
		var dateModified sql.NullTime

		err := rows.Scan(&pt.ID, &pt.FilePath, &pt.Title, &artist, &album,
			&albumArtist, &trackNumber, &discNumber, &releaseYear, &pt.Duration,
			&bitrate, &sampleRate, &codec, &pt.FileSize, &pt.DateAdded,
			&dateModified, &pt.IsCompilation, &artworkPath,
			&pt.CreatedAt, &pt.UpdatedAt, &pt.Position)
		if err != nil {
			return nil, err
		}

		pt.Artist = artist.String
		pt.Album = album.String
		pt.AlbumArtist = albumArtist.String
		pt.Codec = codec.String
		pt.ArtworkPath = artworkPath.String
		pt.TrackNumber = int(trackNumber.Int64)
		pt.DiscNumber = int(discNumber.Int64)
		pt.ReleaseYear = int(releaseYear.Int64)
		pt.Bitrate = int(bitrate.Int64)
		pt.SampleRate = int(sampleRate.Int64)
		if dateModified.Valid {
			pt.DateModified = dateModified.Time
		}
		tracks = append(tracks, pt)
	}
	return tracks, rows.Err()
}

// RemoveTrackFromPlaylist removes a specific track from the given playlist.
// Remaining positions are not renumbered; relative order is preserved.
func (s *Store) RemoveTrackFromPlaylist(playlistID, trackID int64) (int64, error) {
	result, err := s.conn.Exec(`
		DELETE FROM playlist_tracks
		WHERE playlist_id = ? AND track_id = ?`,
		playlistID, trackID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
