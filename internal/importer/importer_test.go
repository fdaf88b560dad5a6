package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cadenza/internal/library"
	"cadenza/internal/store"
	"cadenza/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExtractor mimics the real extractor's contract: files it cannot open
// produce (nil, nil), readable audio files produce metadata derived from
// the filename.
type stubExtractor struct {
	artwork map[string][]byte // source path -> image bytes
}

func (e *stubExtractor) Extract(path string) (*models.TrackMetadata, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, nil
	}

	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	meta := &models.TrackMetadata{
		Title:         title,
		Artist:        "Stub Artist",
		Album:         "Stub Album",
		TrackNumber:   1,
		Genres:        []string{"Test"},
		Codec:         "mp3",
		FileSizeBytes: stat.Size(),
	}
	if data, ok := e.artwork[path]; ok {
		meta.Artwork = &models.Artwork{Data: data, MIMEType: "image/jpeg"}
	}
	return meta, nil
}

func (e *stubExtractor) IsAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".flac", ".wav", ".m4a", ".ogg":
		return true
	}
	return false
}

type testEnv struct {
	pipeline  *Pipeline
	store     *store.Store
	library   *library.Manager
	extractor *stubExtractor
	srcDir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	lib := library.New(filepath.Join(root, "Cadenza"), root)
	require.NoError(t, lib.Initialize())

	st, err := store.Open(lib.DatabasePath())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	extractor := &stubExtractor{artwork: map[string][]byte{}}
	return &testEnv{
		pipeline:  NewPipeline(st, lib, extractor),
		store:     st,
		library:   lib,
		extractor: extractor,
		srcDir:    filepath.Join(root, "incoming"),
	}
}

func (env *testEnv) writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(env.srcDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("audio bytes for "+name), 0644))
	return path
}

func TestImportSingleFile(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeSource(t, "My Song.mp3")

	summary, err := env.pipeline.ImportFiles(context.Background(), []string{src}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Imported)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Duplicates)
	assert.Zero(t, summary.Errors)
	assert.False(t, summary.Cancelled)
	assert.NotEmpty(t, summary.BatchID)
	require.Len(t, summary.Tracks, 1)
	assert.Equal(t, "My Song", summary.Tracks[0].Title)

	track, err := env.store.GetTrack(summary.Tracks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Stub Artist", track.Artist)

	// The library copy exists at the derived destination and the source
	// file is untouched.
	if _, err := os.Stat(track.FilePath); err != nil {
		t.Errorf("expected library copy at %s: %v", track.FilePath, err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("expected source file to remain: %v", err)
	}

	genres, err := env.store.GetTrackGenres(summary.Tracks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Test"}, genres)
}

func TestReImportCountsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeSource(t, "Repeat.mp3")

	first, err := env.pipeline.ImportFiles(context.Background(), []string{src}, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, first.Imported)

	second, err := env.pipeline.ImportFiles(context.Background(), []string{src}, Options{})
	require.NoError(t, err)
	assert.Zero(t, second.Imported)
	assert.Equal(t, 1, second.Duplicates)
	assert.Zero(t, second.Errors)

	tracks, err := env.store.GetTracks(store.TrackFilter{}, store.SortSpec{})
	require.NoError(t, err)
	assert.Len(t, tracks, 1, "re-import must not create a second row")
}

func TestUnreadableFileCountsSkipped(t *testing.T) {
	env := newTestEnv(t)

	paths := []string{
		env.writeSource(t, "One.mp3"),
		filepath.Join(env.srcDir, "does-not-exist.mp3"),
		env.writeSource(t, "Three.mp3"),
	}

	summary, err := env.pipeline.ImportFiles(context.Background(), paths, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Errors, "a vanished file is a skip, not an error")
}

func TestProgressEvents(t *testing.T) {
	env := newTestEnv(t)
	paths := []string{
		env.writeSource(t, "a.mp3"),
		env.writeSource(t, "b.mp3"),
	}

	events := make(chan models.ProgressEvent, 16)
	summary, err := env.pipeline.ImportFiles(context.Background(), paths, Options{Events: events})
	require.NoError(t, err)
	close(events)

	var got []models.ProgressEvent
	for event := range events {
		got = append(got, event)
	}
	require.Len(t, got, 3, "one event per file plus the terminal event")

	for i, event := range got[:2] {
		assert.Equal(t, summary.BatchID, event.BatchID)
		assert.Equal(t, models.PhaseImporting, event.Phase)
		assert.Equal(t, i+1, event.Processed)
		assert.Equal(t, 2, event.Total)
		assert.Equal(t, models.StatusImported, event.Status)
	}

	final := got[2]
	assert.Equal(t, models.PhaseComplete, final.Phase)
	assert.Equal(t, 2, final.Processed)
}

func TestCancellation(t *testing.T) {
	env := newTestEnv(t)
	paths := []string{
		env.writeSource(t, "x.mp3"),
		env.writeSource(t, "y.mp3"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan models.ProgressEvent, 16)
	summary, err := env.pipeline.ImportFiles(ctx, paths, Options{Events: events})
	require.NoError(t, err)
	close(events)

	assert.True(t, summary.Cancelled)
	assert.Zero(t, summary.Imported)

	var last models.ProgressEvent
	for event := range events {
		last = event
	}
	assert.Equal(t, models.PhaseCancelled, last.Phase)

	tracks, err := env.store.GetTracks(store.TrackFilter{}, store.SortSpec{})
	require.NoError(t, err)
	assert.Empty(t, tracks, "a pre-cancelled batch must not write anything")
}

func TestScanFolder(t *testing.T) {
	env := newTestEnv(t)

	env.writeSource(t, "top.mp3")
	env.writeSource(t, filepath.Join("nested", "deep.flac"))
	env.writeSource(t, "notes.txt")
	env.writeSource(t, "cover.jpg")

	files, err := env.pipeline.ScanFolder(env.srcDir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.True(t, env.extractor.IsAudioFile(f), "scan returned non-audio file %s", f)
	}

	t.Run("missing folder errors", func(t *testing.T) {
		_, err := env.pipeline.ScanFolder(filepath.Join(env.srcDir, "nope"))
		assert.Error(t, err)
	})
}

func TestImportFolder(t *testing.T) {
	env := newTestEnv(t)
	env.writeSource(t, "one.mp3")
	env.writeSource(t, filepath.Join("sub", "two.mp3"))

	summary, err := env.pipeline.ImportFolder(context.Background(), env.srcDir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Imported)

	t.Run("empty folder short-circuits", func(t *testing.T) {
		empty := t.TempDir()
		events := make(chan models.ProgressEvent, 16)
		summary, err := env.pipeline.ImportFolder(context.Background(), empty, Options{Events: events})
		require.NoError(t, err)
		close(events)

		assert.Zero(t, summary.Total)
		assert.Zero(t, summary.Imported)
		assert.NotEmpty(t, summary.BatchID)

		var phases []models.ImportPhase
		for event := range events {
			phases = append(phases, event.Phase)
		}
		require.NotEmpty(t, phases)
		assert.Equal(t, models.PhaseComplete, phases[len(phases)-1])
	})
}

func TestArtworkSharedAcrossImports(t *testing.T) {
	env := newTestEnv(t)
	cover := []byte("shared album cover")

	a := env.writeSource(t, "art-a.mp3")
	b := env.writeSource(t, "art-b.mp3")
	env.extractor.artwork[a] = cover
	env.extractor.artwork[b] = cover

	summary, err := env.pipeline.ImportFiles(context.Background(), []string{a, b}, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Imported)

	trackA, err := env.store.GetTrack(summary.Tracks[0].ID)
	require.NoError(t, err)
	trackB, err := env.store.GetTrack(summary.Tracks[1].ID)
	require.NoError(t, err)

	assert.NotEmpty(t, trackA.ArtworkPath)
	assert.Equal(t, trackA.ArtworkPath, trackB.ArtworkPath, "identical covers must share one file")

	entries, err := os.ReadDir(env.library.ArtworkDir(library.ArtworkAlbum))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestImportRefreshesAlbumAggregate(t *testing.T) {
	env := newTestEnv(t)
	paths := []string{
		env.writeSource(t, "agg-1.mp3"),
		env.writeSource(t, "agg-2.mp3"),
	}

	summary, err := env.pipeline.ImportFiles(context.Background(), paths, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Imported)

	albums, err := env.store.GetAllAlbums()
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "Stub Album", albums[0].Title)
	assert.Equal(t, 2, albums[0].TrackCount)
}

func TestFailedInsertLeavesNoLibraryCopy(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeSource(t, "orphan.mp3")

	// A closed store makes the insert stage fail after the copy stage
	// succeeded; the copy must not survive as orphaned partial state.
	require.NoError(t, env.store.Close())

	summary, err := env.pipeline.ImportFiles(context.Background(), []string{src}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Zero(t, summary.Imported)

	var leftovers []string
	require.NoError(t, filepath.WalkDir(env.library.MusicDir(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			leftovers = append(leftovers, path)
		}
		return nil
	}))
	assert.Empty(t, leftovers, "failed import must not leave files in the library")
}

func TestValidatePrerequisites(t *testing.T) {
	env := newTestEnv(t)

	ok, reasons := env.pipeline.ValidatePrerequisites()
	assert.True(t, ok, "expected prerequisites to pass, got %v", reasons)
	assert.Empty(t, reasons)

	t.Run("missing library root", func(t *testing.T) {
		lib := library.New(filepath.Join(t.TempDir(), "never-made"), t.TempDir())
		p := NewPipeline(env.store, lib, env.extractor)
		ok, reasons := p.ValidatePrerequisites()
		assert.False(t, ok)
		assert.NotEmpty(t, reasons)
	})

	t.Run("missing store", func(t *testing.T) {
		p := NewPipeline(nil, env.library, env.extractor)
		ok, reasons := p.ValidatePrerequisites()
		assert.False(t, ok)
		assert.NotEmpty(t, reasons)
	})
}
