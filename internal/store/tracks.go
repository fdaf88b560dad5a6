package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cadenza/pkg/models"
)

// TrackFilter narrows GetTracks results with exact-match criteria.
type TrackFilter struct {
	Artist      string
	Album       string
	AlbumArtist string
}

// SortSpec selects the ordering of GetTracks results. Column must be one of
// the allow-listed track columns; anything else is rejected before it can
// reach the query text.
type SortSpec struct {
	Column string
	Desc   bool
}

// trackSortColumns is the fixed allow-list of sortable columns. Sort input
// never reaches SQL unless its column name is a key here.
var trackSortColumns = map[string]bool{
	"title":            true,
	"artist":           true,
	"album":            true,
	"album_artist":     true,
	"track_number":     true,
	"disc_number":      true,
	"release_year":     true,
	"duration_seconds": true,
	"file_size_bytes":  true,
	"bitrate":          true,
	"date_added":       true,
	"created_at":       true,
}

const trackColumns = `track_id, file_path, title, artist, album, album_artist,
	track_number, disc_number, release_year, duration_seconds, bitrate,
	sample_rate, codec, file_size_bytes, date_added, date_modified,
	is_compilation, artwork_path, created_at, updated_at`

// InsertTrack validates required fields and inserts a new track row,
// returning its identifier. Re-inserting an existing file path fails with a
// unique ConstraintError; the original row is unaffected.
func (s *Store) InsertTrack(track *models.Track) (int64, error) {
	if strings.TrimSpace(track.FilePath) == "" {
		return 0, &ValidationError{Field: "file_path", Message: "file path is required"}
	}
	if strings.TrimSpace(track.Title) == "" {
		return 0, &ValidationError{Field: "title", Message: "title is required"}
	}

	dateAdded := track.DateAdded
	if dateAdded.IsZero() {
		dateAdded = time.Now()
	}

	result, err := s.conn.Exec(`
		INSERT INTO tracks (file_path, title, artist, album, album_artist,
			track_number, disc_number, release_year, duration_seconds, bitrate,
			sample_rate, codec, file_size_bytes, date_added, date_modified,
			is_compilation, artwork_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		track.FilePath, track.Title,
		nullString(track.Artist), nullString(track.Album), nullString(track.AlbumArtist),
		nullInt(track.TrackNumber), nullInt(track.DiscNumber), nullInt(track.ReleaseYear),
		track.Duration, nullInt(track.Bitrate), nullInt(track.SampleRate),
		nullString(track.Codec), track.FileSize, dateAdded, nullTime(track.DateModified),
		track.IsCompilation, nullString(track.ArtworkPath))
	if err != nil {
		err = classifyErr(err)
		if !IsUniqueConstraint(err) {
			s.logger.WithError(err).WithField("file_path", track.FilePath).Error("Failed to insert track")
		}
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// GetTrack returns a single track by its ID, or ErrNotFound.
func (s *Store) GetTrack(id int64) (*models.Track, error) {
	row := s.conn.QueryRow(
		"SELECT "+trackColumns+" FROM tracks WHERE track_id = ?", id)
	track, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return track, nil
}

// GetTrackByPath returns the track stored at the given file path, or ErrNotFound.
func (s *Store) GetTrackByPath(filePath string) (*models.Track, error) {
	row := s.conn.QueryRow(
		"SELECT "+trackColumns+" FROM tracks WHERE file_path = ?", filePath)
	track, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return track, nil
}

// GetTracks returns tracks matching the filter, ordered per sort. The zero
// SortSpec orders by artist/album/track/title like a library view.
func (s *Store) GetTracks(filter TrackFilter, sort SortSpec) ([]models.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks"

	var conditions []string
	var args []interface{}
	if filter.Artist != "" {
		conditions = append(conditions, "artist = ?")
		args = append(args, filter.Artist)
	}
	if filter.Album != "" {
		conditions = append(conditions, "album = ?")
		args = append(args, filter.Album)
	}
	if filter.AlbumArtist != "" {
		conditions = append(conditions, "album_artist = ?")
		args = append(args, filter.AlbumArtist)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	if sort.Column == "" {
		query += " ORDER BY artist, album, track_number, title"
	} else {
		if !trackSortColumns[sort.Column] {
			return nil, &ValidationError{Field: "sort", Message: "unknown sort column: " + sort.Column}
		}
		query += " ORDER BY " + sort.Column
		if sort.Desc {
			query += " DESC"
		}
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// SearchTracks performs a simple LIKE-based search over title, artist and album.
func (s *Store) SearchTracks(query string) ([]models.Track, error) {
	like := "%" + query + "%"
	rows, err := s.conn.Query(`
		SELECT `+trackColumns+` FROM tracks
		WHERE title LIKE ? OR artist LIKE ? OR album LIKE ?
		ORDER BY artist, album, track_number, title`, like, like, like)
	if err != nil {
		s.logger.WithError(err).WithField("query", query).Error("Failed to search tracks")
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// UpdateTrack applies a partial update to the track. Only fields set on the
// update are written; an update with no fields is a no-op reporting zero
// rows changed. The identifier and file path are not updatable.
func (s *Store) UpdateTrack(id int64, update models.TrackUpdate) (int64, error) {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Title != nil {
		if strings.TrimSpace(*update.Title) == "" {
			return 0, &ValidationError{Field: "title", Message: "title cannot be empty"}
		}
		add("title", *update.Title)
	}
	if update.Artist != nil {
		add("artist", nullString(*update.Artist))
	}
	if update.Album != nil {
		add("album", nullString(*update.Album))
	}
	if update.AlbumArtist != nil {
		add("album_artist", nullString(*update.AlbumArtist))
	}
	if update.TrackNumber != nil {
		add("track_number", nullInt(*update.TrackNumber))
	}
	if update.DiscNumber != nil {
		add("disc_number", nullInt(*update.DiscNumber))
	}
	if update.ReleaseYear != nil {
		add("release_year", nullInt(*update.ReleaseYear))
	}
	if update.Duration != nil {
		add("duration_seconds", *update.Duration)
	}
	if update.Bitrate != nil {
		add("bitrate", nullInt(*update.Bitrate))
	}
	if update.SampleRate != nil {
		add("sample_rate", nullInt(*update.SampleRate))
	}
	if update.Codec != nil {
		add("codec", nullString(*update.Codec))
	}
	if update.IsCompilation != nil {
		add("is_compilation", *update.IsCompilation)
	}
	if update.ArtworkPath != nil {
		add("artwork_path", nullString(*update.ArtworkPath))
	}

	if len(sets) == 0 {
		return 0, nil
	}

	args = append(args, id)
	result, err := s.conn.Exec(
		"UPDATE tracks SET "+strings.Join(sets, ", ")+" WHERE track_id = ?", args...)
	if err != nil {
		return 0, classifyErr(err)
	}
	return result.RowsAffected()
}

// DeleteTrack removes a track row; genre and playlist associations cascade.
// Returns the number of rows removed (zero when the track did not exist).
func (s *Store) DeleteTrack(id int64) (int64, error) {
	result, err := s.conn.Exec("DELETE FROM tracks WHERE track_id = ?", id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// TrackExists returns true if a track exists with the given file path.
func (s *Store) TrackExists(filePath string) (bool, error) {
	var count int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM tracks WHERE file_path = ?", filePath).Scan(&count)
	if err != nil {
		s.logger.WithError(err).WithField("file_path", filePath).Error("Failed to check if track exists")
		return false, err
	}
	return count > 0, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTrack scans one track row, mapping NULL columns back to zero values.
func scanTrack(row rowScanner) (*models.Track, error) {
	var track models.Track
	var artist, album, albumArtist, codec, artworkPath sql.NullString
	var trackNumber, discNumber, releaseYear, bitrate, sampleRate sql.NullInt64
	var dateModified sql.NullTime

	err := row.Scan(&track.ID, &track.FilePath, &track.Title, &artist, &album,
		&albumArtist, &trackNumber, &discNumber, &releaseYear, &track.Duration,
		&bitrate, &sampleRate, &codec, &track.FileSize, &track.DateAdded,
		&dateModified, &track.IsCompilation, &artworkPath,
		&track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return nil, err
	}

	track.Artist = artist.String
	track.Album = album.String
	track.AlbumArtist = albumArtist.String
	track.Codec = codec.String
	track.ArtworkPath = artworkPath.String
	track.TrackNumber = int(trackNumber.Int64)
	track.DiscNumber = int(discNumber.Int64)
	track.ReleaseYear = int(releaseYear.Int64)
	track.Bitrate = int(bitrate.Int64)
	track.SampleRate = int(sampleRate.Int64)
	if dateModified.Valid {
		track.DateModified = dateModified.Time
	}
	return &track, nil
}

// scanTrackRows scans standard track result sets into a slice. Callers must
// have already deferred rows.Close().
func scanTrackRows(rows *sql.Rows) ([]models.Track, error) {
	var tracks []models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}
	return tracks, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
