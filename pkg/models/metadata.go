package models

// Artwork is an embedded picture extracted from an audio file.
type Artwork struct {
	Data     []byte
	MIMEType string
}

// TrackMetadata is the structured result of metadata extraction for a single
// audio file. Optional tags are zero-valued when absent; the import pipeline
// applies display fallbacks before anything is persisted.
type TrackMetadata struct {
	Title         string
	Artist        string
	Album         string
	AlbumArtist   string
	TrackNumber   int
	DiscNumber    int
	Genres        []string
	Year          int
	Duration      int // seconds
	Bitrate       int
	SampleRate    int
	Codec         string
	FileSizeBytes int64
	IsCompilation bool
	Artwork       *Artwork
}
