package models

import "time"

// Track represents a single audio file in the managed library.
type Track struct {
	ID            int64     `json:"id"`
	FilePath      string    `json:"-"` // don't expose file path to client
	Title         string    `json:"title"`
	Artist        string    `json:"artist,omitempty"`
	Album         string    `json:"album,omitempty"`
	AlbumArtist   string    `json:"albumArtist,omitempty"`
	TrackNumber   int       `json:"trackNumber,omitempty"`
	DiscNumber    int       `json:"discNumber,omitempty"`
	ReleaseYear   int       `json:"releaseYear,omitempty"`
	Duration      int       `json:"duration"` // in seconds
	Bitrate       int       `json:"bitrate,omitempty"`
	SampleRate    int       `json:"sampleRate,omitempty"`
	Codec         string    `json:"codec,omitempty"`
	FileSize      int64     `json:"fileSize"`
	IsCompilation bool      `json:"isCompilation"`
	ArtworkPath   string    `json:"artworkPath,omitempty"`
	DateAdded     time.Time `json:"dateAdded"`
	DateModified  time.Time `json:"dateModified,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TrackUpdate is a partial update for a track. Only non-nil fields are
// written; the identifier and file path are deliberately not representable
// here, so they can never be mutated through the update path.
type TrackUpdate struct {
	Title         *string `json:"title,omitempty"`
	Artist        *string `json:"artist,omitempty"`
	Album         *string `json:"album,omitempty"`
	AlbumArtist   *string `json:"albumArtist,omitempty"`
	TrackNumber   *int    `json:"trackNumber,omitempty"`
	DiscNumber    *int    `json:"discNumber,omitempty"`
	ReleaseYear   *int    `json:"releaseYear,omitempty"`
	Duration      *int    `json:"duration,omitempty"`
	Bitrate       *int    `json:"bitrate,omitempty"`
	SampleRate    *int    `json:"sampleRate,omitempty"`
	Codec         *string `json:"codec,omitempty"`
	IsCompilation *bool   `json:"isCompilation,omitempty"`
	ArtworkPath   *string `json:"artworkPath,omitempty"`
}

// Genre is a deduplicated label attached to tracks.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Playlist represents a user-created playlist.
type Playlist struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ArtworkPath string    `json:"artworkPath,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	TrackCount  int       `json:"trackCount"`
}

// PlaylistTrack is a track joined with its position inside a playlist.
type PlaylistTrack struct {
	Track
	Position int `json:"position"`
}

// Album is a materialized aggregate keyed by (title, album artist). It is
// rebuilt on demand for gallery views and is not the source of truth for
// track membership.
type Album struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	AlbumArtist   string `json:"albumArtist,omitempty"`
	ReleaseYear   int    `json:"releaseYear,omitempty"`
	ArtworkPath   string `json:"artworkPath,omitempty"`
	IsCompilation bool   `json:"isCompilation"`
	TrackCount    int    `json:"trackCount"`
}

// StoreStats holds entity counts for the whole store.
type StoreStats struct {
	Tracks    int `json:"tracks"`
	Albums    int `json:"albums"`
	Playlists int `json:"playlists"`
	Genres    int `json:"genres"`
}
