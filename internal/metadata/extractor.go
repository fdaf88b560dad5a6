package metadata

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cadenza/pkg/models"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
)

// Extractor reads embedded tags and technical data from audio files. A nil
// result from Extract means the extractor gave up on the file entirely; the
// import pipeline treats that as a skip, not an error.
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(supportedFormats []string) *Extractor {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
	}
}

// Extract reads metadata from an audio file. It returns (nil, nil) when the
// file cannot be opened or read at all. A readable file with no usable tags
// still yields a record with a filename-derived title so it can be imported.
func (e *Extractor) Extract(filePath string) (*models.TrackMetadata, error) {
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Warn("Failed to open audio file, giving up on it")
		return nil, nil
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Warn("Failed to stat audio file, giving up on it")
		return nil, nil
	}

	tech := e.probeTechnical(filePath, stat.Size())

	meta := &models.TrackMetadata{
		Duration:      tech.duration,
		Bitrate:       tech.bitrate,
		SampleRate:    tech.sampleRate,
		Codec:         codecForExtension(filePath),
		FileSizeBytes: stat.Size(),
	}

	tags, err := tag.ReadFrom(file)
	if err != nil {
		// No readable tags; fall back to the filename for a title.
		filename := filepath.Base(filePath)
		meta.Title = strings.TrimSuffix(filename, filepath.Ext(filename))

		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Warn("Failed to extract tags, using filename")
		return meta, nil
	}

	meta.Title = tags.Title()
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	meta.Artist = tags.Artist()
	meta.Album = tags.Album()
	meta.AlbumArtist = tags.AlbumArtist()
	meta.TrackNumber, _ = tags.Track()
	meta.DiscNumber, _ = tags.Disc()
	meta.Year = tags.Year()
	meta.Genres = SplitGenres(tags.Genre())
	meta.IsCompilation = isCompilation(tags)

	if fileType := string(tags.FileType()); fileType != "" && fileType != string(tag.UnknownFileType) {
		meta.Codec = strings.ToLower(fileType)
	}

	if picture := tags.Picture(); picture != nil && len(picture.Data) > 0 {
		meta.Artwork = &models.Artwork{
			Data:     picture.Data,
			MIMEType: picture.MIMEType,
		}
	}

	e.logger.WithFields(logrus.Fields{
		"filePath":       filePath,
		"title":          meta.Title,
		"artist":         meta.Artist,
		"album":          meta.Album,
		"duration":       meta.Duration,
		"hasArtwork":     meta.Artwork != nil,
		"processingTime": time.Since(startTime),
	}).Debug("Successfully extracted metadata")

	return meta, nil
}

// SplitGenres normalizes a raw genre tag into a list. Tag formats disagree
// on whether multiple genres arrive as one delimited string, so the common
// separators are all honored.
func SplitGenres(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == '/' || r == ',' || r == 0
	})

	var genres []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			genres = append(genres, trimmed)
		}
	}
	return genres
}

// isCompilation checks the raw frames for the compilation markers the
// common tag formats use (TCMP for ID3, cpil for MP4, a plain flag for
// Vorbis comments).
func isCompilation(tags tag.Metadata) bool {
	raw := tags.Raw()
	for _, key := range []string{"compilation", "COMPILATION", "TCMP", "cpil"} {
		value, ok := raw[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v
		case int:
			return v != 0
		case string:
			return v == "1" || strings.EqualFold(v, "true")
		}
	}
	return false
}

// codecForExtension maps a file extension to a codec name for the
// informational codec column.
func codecForExtension(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return "mp3"
	case ".flac":
		return "flac"
	case ".wav":
		return "wav"
	case ".m4a":
		return "aac"
	case ".ogg":
		return "vorbis"
	default:
		return ""
	}
}

// IsAudioFile checks if a file is a supported audio format
func (e *Extractor) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// SupportedFormats returns the extension set this extractor accepts.
func (e *Extractor) SupportedFormats() []string {
	return e.supportedFormats
}

// GetContentType returns the MIME type for an audio file
func (e *Extractor) GetContentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// readFull is a small indirection kept for the m4a atom scanner.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}

var errUnsupportedFormat = errors.New("unsupported format")
