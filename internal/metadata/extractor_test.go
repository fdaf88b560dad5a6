package metadata

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

var testFormats = []string{".mp3", ".flac", ".wav", ".m4a", ".ogg"}

func TestIsAudioFile(t *testing.T) {
	e := NewExtractor(testFormats)

	tests := []struct {
		path     string
		expected bool
	}{
		{"/music/song.mp3", true},
		{"/music/song.MP3", true},
		{"/music/song.flac", true},
		{"/music/song.wav", true},
		{"/music/song.m4a", true},
		{"/music/song.ogg", true},
		{"/music/song.txt", false},
		{"/music/cover.jpg", false},
		{"/music/song", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := e.IsAudioFile(tt.path); got != tt.expected {
			t.Errorf("IsAudioFile(%q) = %v, want %v", tt.path, got, tt.expected)
		}
	}
}

func TestGetContentType(t *testing.T) {
	e := NewExtractor(testFormats)

	tests := []struct {
		path     string
		expected string
	}{
		{"song.mp3", "audio/mpeg"},
		{"song.FLAC", "audio/flac"},
		{"song.wav", "audio/wav"},
		{"song.m4a", "audio/mp4"},
		{"song.ogg", "audio/ogg"},
		{"song.xyz", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := e.GetContentType(tt.path); got != tt.expected {
			t.Errorf("GetContentType(%q) = %q, want %q", tt.path, got, tt.expected)
		}
	}
}

func TestSplitGenres(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"single", "Rock", []string{"Rock"}},
		{"semicolons", "Rock; Jazz;Blues", []string{"Rock", "Jazz", "Blues"}},
		{"slashes", "Rock/Pop", []string{"Rock", "Pop"}},
		{"commas", "Ambient, Drone", []string{"Ambient", "Drone"}},
		{"mixed separators", "Rock; Jazz/Fusion, Funk", []string{"Rock", "Jazz", "Fusion", "Funk"}},
		{"empty segments dropped", "Rock;;Jazz", []string{"Rock", "Jazz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitGenres(tt.raw); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("SplitGenres(%q) = %v, want %v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestExtractMissingFileGivesUp(t *testing.T) {
	e := NewExtractor(testFormats)

	meta, err := e.Extract(filepath.Join(t.TempDir(), "gone.mp3"))
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil metadata for a missing file, got %+v", meta)
	}
}

func TestExtractUntaggedFileFallsBackToFilename(t *testing.T) {
	e := NewExtractor(testFormats)

	path := filepath.Join(t.TempDir(), "Mystery Song.mp3")
	if err := os.WriteFile(path, []byte("not a real mp3 stream"), 0644); err != nil {
		t.Fatal(err)
	}

	meta, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata for a readable file")
	}
	if meta.Title != "Mystery Song" {
		t.Errorf("expected filename-derived title, got %q", meta.Title)
	}
	if meta.Codec != "mp3" {
		t.Errorf("expected extension-derived codec, got %q", meta.Codec)
	}
	if meta.FileSizeBytes == 0 {
		t.Error("expected file size to be recorded")
	}
	if meta.Artist != "" || meta.Album != "" {
		t.Errorf("expected untagged fields to stay empty, got artist=%q album=%q", meta.Artist, meta.Album)
	}
}

func TestSupportedFormats(t *testing.T) {
	e := NewExtractor(testFormats)
	if got := e.SupportedFormats(); !reflect.DeepEqual(got, testFormats) {
		t.Errorf("SupportedFormats() = %v, want %v", got, testFormats)
	}
}
