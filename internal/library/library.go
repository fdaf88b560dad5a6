package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	musicDirName    = "Music"
	artworkDirName  = "Artwork"
	databaseDirName = "Database"

	// maxFilenameLength bounds sanitized path components, in runes.
	maxFilenameLength = 120

	unknownPlaceholder = "Unknown"
	unknownArtist      = "Unknown Artist"
	unknownAlbum       = "Unknown Album"
	unknownTrack       = "Unknown Track"

	fallbackExtension = ".mp3"
)

// codecExtensions maps extractor codec hints to file extensions, used when
// the source path has no extension of its own.
var codecExtensions = map[string]string{
	"mp3":    ".mp3",
	"mpeg":   ".mp3",
	"flac":   ".flac",
	"aac":    ".m4a",
	"alac":   ".m4a",
	"mp4":    ".m4a",
	"vorbis": ".ogg",
	"opus":   ".ogg",
	"wav":    ".wav",
	"pcm":    ".wav",
}

// Manager owns the managed-library directory layout: a media subtree, an
// artwork subtree split by namespace, and a database subtree, all under a
// single configurable root.
type Manager struct {
	root        string
	allowedRoot string
	deniedDirs  []string
	logger      *logrus.Logger
}

// New creates a Manager rooted at root. allowedRoot bounds every
// user-supplied path this manager will accept; when empty it defaults to the
// user's home directory.
func New(root, allowedRoot string) *Manager {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if allowedRoot == "" {
		if home, err := os.UserHomeDir(); err == nil {
			allowedRoot = home
		} else {
			allowedRoot = root
		}
	}

	return &Manager{
		root:        filepath.Clean(root),
		allowedRoot: filepath.Clean(allowedRoot),
		deniedDirs:  defaultDeniedDirs,
		logger:      logger,
	}
}

// Root returns the managed library root.
func (m *Manager) Root() string { return m.root }

// MusicDir returns the media subtree root.
func (m *Manager) MusicDir() string { return filepath.Join(m.root, musicDirName) }

// ArtworkDir returns the artwork subtree for the given namespace.
func (m *Manager) ArtworkDir(kind ArtworkKind) string {
	return filepath.Join(m.root, artworkDirName, string(kind))
}

// DatabaseDir returns the database subtree root.
func (m *Manager) DatabaseDir() string { return filepath.Join(m.root, databaseDirName) }

// DatabasePath returns the default location for the library database file.
func (m *Manager) DatabasePath() string {
	return filepath.Join(m.DatabaseDir(), "cadenza.db")
}

// Initialize creates the full directory tree. Idempotent.
func (m *Manager) Initialize() error {
	dirs := []string{
		m.MusicDir(),
		m.ArtworkDir(ArtworkAlbum),
		m.ArtworkDir(ArtworkPlaylist),
		m.DatabaseDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create library directory %s: %w", dir, err)
		}
	}
	m.logger.WithField("root", m.root).Info("Library directory tree initialized")
	return nil
}

// hostileFilenameChars are stripped from path components: separators,
// wildcards, quotes and shell-relevant punctuation.
const hostileFilenameChars = `/\?%*:|"<>`

// SanitizeFilename strips filesystem-hostile characters, collapses
// whitespace, trims and truncates to maxFilenameLength runes. It is total:
// any string input maps to a usable component, with empty input mapping to
// the "Unknown" placeholder. Non-Latin scripts and emoji pass through
// unaltered.
func SanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(hostileFilenameChars, r) {
			return -1
		}
		if r == 0 || unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Collapse runs of whitespace and trim the ends.
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if runes := []rune(cleaned); len(runes) > maxFilenameLength {
		cleaned = strings.TrimSpace(string(runes[:maxFilenameLength]))
	}

	// "." and ".." are path traversal, not names.
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return unknownPlaceholder
	}
	return cleaned
}

// TrackPath derives the collision-safe destination for a track:
// <root>/Music/<artist>/<album>/<NN> <title><ext>. The derivation is pure:
// the same metadata always yields the identical path regardless of locale.
func (m *Manager) TrackPath(meta *models.TrackMetadata, sourcePath string) string {
	artist := meta.Artist
	if artist == "" {
		artist = meta.AlbumArtist
	}
	if artist == "" {
		artist = unknownArtist
	}

	album := meta.Album
	if album == "" {
		album = unknownAlbum
	}

	title := meta.Title
	if title == "" {
		title = unknownTrack
	}

	// Two digits minimum, never truncated for >= 100.
	number := fmt.Sprintf("%02d", meta.TrackNumber)

	ext := strings.ToLower(filepath.Ext(sourcePath))
	if ext == "" {
		ext = codecExtensions[strings.ToLower(meta.Codec)]
	}
	if ext == "" {
		ext = fallbackExtension
	}

	return filepath.Join(
		m.MusicDir(),
		SanitizeFilename(artist),
		SanitizeFilename(album),
		number+" "+SanitizeFilename(title)+ext,
	)
}
