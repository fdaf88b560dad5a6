package library

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cadenza/pkg/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()
	m := New(root, root)
	if err := m.Initialize(); err != nil {
		t.Fatalf("failed to initialize library: %v", err)
	}
	return m
}

func TestInitializeCreatesTree(t *testing.T) {
	m := newTestManager(t)

	for _, dir := range []string{
		m.MusicDir(),
		m.ArtworkDir(ArtworkAlbum),
		m.ArtworkDir(ArtworkPlaylist),
		m.DatabaseDir(),
	} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("expected directory %s to exist: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("expected %s to be a directory", dir)
		}
	}

	// Re-running against an existing tree is fine.
	if err := m.Initialize(); err != nil {
		t.Errorf("second Initialize failed: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name passes", "Abbey Road", "Abbey Road"},
		{"separators stripped", "AC/DC", "ACDC"},
		{"windows hostile chars stripped", `What? "Why" <Now>: 50%|*`, "What Why Now 50"},
		{"backslash stripped", `a\b`, "ab"},
		{"control chars stripped", "He\x00ll\x1fo", "Hello"},
		{"whitespace collapsed", "  too    many   spaces  ", "too many spaces"},
		{"empty maps to placeholder", "", "Unknown"},
		{"only hostile maps to placeholder", `///???`, "Unknown"},
		{"dot maps to placeholder", ".", "Unknown"},
		{"dotdot maps to placeholder", "..", "Unknown"},
		{"dotdot after stripping maps to placeholder", " .. ", "Unknown"},
		{"unicode passes through", "Сплин — Гранатовый альбом", "Сплин — Гранатовый альбом"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}

	t.Run("long names truncated", func(t *testing.T) {
		long := strings.Repeat("a", 500)
		got := SanitizeFilename(long)
		if len([]rune(got)) != maxFilenameLength {
			t.Errorf("expected %d runes, got %d", maxFilenameLength, len([]rune(got)))
		}
	})
}

func TestTrackPath(t *testing.T) {
	m := newTestManager(t)

	meta := &models.TrackMetadata{
		Title:       "Come Together",
		Artist:      "The Beatles",
		Album:       "Abbey Road",
		TrackNumber: 1,
	}

	path := m.TrackPath(meta, "/downloads/come_together.mp3")
	want := filepath.Join(m.MusicDir(), "The Beatles", "Abbey Road", "01 Come Together.mp3")
	if path != want {
		t.Errorf("TrackPath = %q, want %q", path, want)
	}

	t.Run("deterministic", func(t *testing.T) {
		again := m.TrackPath(meta, "/downloads/come_together.mp3")
		if again != path {
			t.Errorf("same metadata produced different paths: %q vs %q", again, path)
		}
	})

	t.Run("two digit track numbers", func(t *testing.T) {
		meta := &models.TrackMetadata{Title: "Twelve", Artist: "A", Album: "B", TrackNumber: 12}
		path := m.TrackPath(meta, "/in/t.flac")
		if filepath.Base(path) != "12 Twelve.flac" {
			t.Errorf("unexpected filename %q", filepath.Base(path))
		}
	})

	t.Run("album artist fallback", func(t *testing.T) {
		meta := &models.TrackMetadata{Title: "T", Album: "B", AlbumArtist: "Various Artists", TrackNumber: 3}
		path := m.TrackPath(meta, "/in/t.mp3")
		if !strings.Contains(path, filepath.Join("Music", "Various Artists", "B")) {
			t.Errorf("expected album artist directory, got %q", path)
		}
	})

	t.Run("unknown placeholders", func(t *testing.T) {
		meta := &models.TrackMetadata{TrackNumber: 0}
		path := m.TrackPath(meta, "/in/mystery.mp3")
		want := filepath.Join(m.MusicDir(), "Unknown Artist", "Unknown Album", "00 Unknown Track.mp3")
		if path != want {
			t.Errorf("TrackPath = %q, want %q", path, want)
		}
	})

	t.Run("traversal tags stay inside the music directory", func(t *testing.T) {
		meta := &models.TrackMetadata{Title: "pwn", Artist: "..", Album: "..", TrackNumber: 1}
		path := m.TrackPath(meta, "/in/pwn.mp3")
		want := filepath.Join(m.MusicDir(), "Unknown", "Unknown", "01 pwn.mp3")
		if path != want {
			t.Errorf("TrackPath = %q, want %q", path, want)
		}
		if !strings.HasPrefix(path, m.MusicDir()+string(filepath.Separator)) {
			t.Errorf("derived path %q escapes the music directory", path)
		}
	})

	t.Run("extension from codec when source has none", func(t *testing.T) {
		meta := &models.TrackMetadata{Title: "T", Artist: "A", Album: "B", TrackNumber: 1, Codec: "FLAC"}
		path := m.TrackPath(meta, "/in/noext")
		if filepath.Ext(path) != ".flac" {
			t.Errorf("expected .flac extension, got %q", filepath.Ext(path))
		}
	})
}

func TestArtworkContentAddressing(t *testing.T) {
	m := newTestManager(t)

	data := []byte("fake jpeg bytes")

	first, err := m.SaveArtwork(data, ArtworkAlbum)
	if err != nil {
		t.Fatalf("SaveArtwork failed: %v", err)
	}

	// Byte-identical data from a "different track" lands on the same file.
	second, err := m.SaveArtwork([]byte("fake jpeg bytes"), ArtworkAlbum)
	if err != nil {
		t.Fatalf("second SaveArtwork failed: %v", err)
	}
	if first != second {
		t.Errorf("identical data produced different paths: %q vs %q", first, second)
	}

	entries, err := os.ReadDir(m.ArtworkDir(ArtworkAlbum))
	if err != nil {
		t.Fatalf("failed to read artwork dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 artwork file, found %d", len(entries))
	}

	if filepath.Ext(first) != ".jpg" {
		t.Errorf("expected .jpg extension, got %q", filepath.Ext(first))
	}
	if !strings.HasPrefix(first, m.ArtworkDir(ArtworkAlbum)) {
		t.Errorf("artwork stored outside its kind directory: %q", first)
	}

	t.Run("different data different file", func(t *testing.T) {
		other, err := m.SaveArtwork([]byte("other image"), ArtworkAlbum)
		if err != nil {
			t.Fatalf("SaveArtwork failed: %v", err)
		}
		if other == first {
			t.Error("distinct data mapped to the same path")
		}
	})

	t.Run("kinds are separate namespaces", func(t *testing.T) {
		playlistPath, err := m.SaveArtwork(data, ArtworkPlaylist)
		if err != nil {
			t.Fatalf("SaveArtwork failed: %v", err)
		}
		if playlistPath == first {
			t.Error("album and playlist artwork share a path")
		}
	})
}

func TestStats(t *testing.T) {
	m := newTestManager(t)

	writeFile := func(path string, size int) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
	}

	writeFile(filepath.Join(m.MusicDir(), "a", "01 Song.mp3"), 100)
	writeFile(filepath.Join(m.MusicDir(), "a", "02 Song.flac"), 200)
	writeFile(filepath.Join(m.ArtworkDir(ArtworkAlbum), "abc.jpg"), 50)

	stats, err := m.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalFiles != 3 {
		t.Errorf("expected 3 files, got %d", stats.TotalFiles)
	}
	if stats.TotalBytes != 350 {
		t.Errorf("expected 350 bytes, got %d", stats.TotalBytes)
	}
	if stats.ByFamily["audio"] != 2 {
		t.Errorf("expected 2 audio files, got %d", stats.ByFamily["audio"])
	}
	if stats.ByFamily["artwork"] != 1 {
		t.Errorf("expected 1 artwork file, got %d", stats.ByFamily["artwork"])
	}

	t.Run("missing root reports zeroes", func(t *testing.T) {
		gone := New(filepath.Join(t.TempDir(), "never-created"), t.TempDir())
		stats, err := gone.Stats()
		if err != nil {
			t.Fatalf("Stats on missing root failed: %v", err)
		}
		if stats.TotalFiles != 0 || stats.TotalBytes != 0 {
			t.Errorf("expected zeroed stats, got %+v", stats)
		}
	})
}

func TestWritable(t *testing.T) {
	m := newTestManager(t)
	if !m.Writable() {
		t.Error("expected fresh temp library to be writable")
	}
}
