package library

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
)

// ArtworkKind namespaces artwork assets inside the artwork subtree.
type ArtworkKind string

const (
	ArtworkAlbum    ArtworkKind = "albums"
	ArtworkPlaylist ArtworkKind = "playlists"
)

// HashData returns the content hash used to address binary assets.
func HashData(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// ArtworkPath computes the content-addressed destination for an artwork
// image. Byte-identical images always map to the same file regardless of
// which track they came from; that mapping is the dedup mechanism.
func (m *Manager) ArtworkPath(data []byte, kind ArtworkKind) string {
	return filepath.Join(m.ArtworkDir(kind), HashData(data)+".jpg")
}

// SaveArtwork writes the image to its content-addressed path unless a file
// already exists there, and returns the path either way. The existence
// check is the dedup guard: identical bytes are stored once.
func (m *Manager) SaveArtwork(data []byte, kind ArtworkKind) (string, error) {
	path := m.ArtworkPath(data, kind)

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat artwork file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create artwork directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artwork file: %w", err)
	}

	m.logger.WithField("artwork_path", path).Debug("Cached artwork")
	return path, nil
}
