package library

import (
	"os"
	"path/filepath"
	"strings"
)

// Stats summarizes the on-disk contents of the managed library.
type Stats struct {
	TotalFiles int            `json:"totalFiles"`
	TotalBytes int64          `json:"totalBytes"`
	ByFamily   map[string]int `json:"byFamily"`
}

var extensionFamilies = map[string]string{
	".mp3":    "audio",
	".flac":   "audio",
	".wav":    "audio",
	".m4a":    "audio",
	".ogg":    "audio",
	".jpg":    "artwork",
	".jpeg":   "artwork",
	".png":    "artwork",
	".db":     "database",
	".db-wal": "database",
	".db-shm": "database",
}

// Stats walks the library recursively counting files by extension family
// and summing byte sizes. A library that does not exist yet yields zeroed
// stats rather than an error.
func (m *Manager) Stats() (*Stats, error) {
	stats := &Stats{ByFamily: make(map[string]int)}

	if _, err := os.Stat(m.root); os.IsNotExist(err) {
		return stats, nil
	}

	err := filepath.Walk(m.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Skip unreadable entries; stats are best-effort.
			m.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable entry during stats walk")
			return nil
		}
		if info.IsDir() {
			return nil
		}

		stats.TotalFiles++
		stats.TotalBytes += info.Size()

		family, ok := extensionFamilies[strings.ToLower(filepath.Ext(path))]
		if !ok {
			family = "other"
		}
		stats.ByFamily[family]++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Writable probes the library root for write access by creating and
// removing a temporary file.
func (m *Manager) Writable() bool {
	probe, err := os.CreateTemp(m.root, ".cadenza-probe-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return true
}
