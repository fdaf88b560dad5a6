package importer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"cadenza/internal/library"
	"cadenza/internal/store"
	"cadenza/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"
)

// Extractor is the metadata-extraction boundary the pipeline depends on.
// A (nil, nil) result means the extractor gave up on the file entirely,
// which the pipeline counts as skipped.
type Extractor interface {
	Extract(path string) (*models.TrackMetadata, error)
	IsAudioFile(path string) bool
}

// Options carries per-batch knobs. Events, when set, receives one progress
// event per file in file-list order plus a terminal event; the caller must
// drain the channel for the batch to make progress.
type Options struct {
	Events chan<- models.ProgressEvent
}

// Pipeline orchestrates folder scanning, metadata extraction, file
// placement and database insertion for import batches. Files are processed
// strictly sequentially; per-file failures are counted and never abort the
// batch.
type Pipeline struct {
	store     *store.Store
	library   *library.Manager
	extractor Extractor
	logger    *logrus.Logger
}

// NewPipeline creates an import pipeline over explicit collaborators.
func NewPipeline(st *store.Store, lib *library.Manager, extractor Extractor) *Pipeline {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Pipeline{
		store:     st,
		library:   lib,
		extractor: extractor,
		logger:    logger,
	}
}

// ScanFolder recursively collects supported audio files under root.
// Directories that cannot be read are logged and skipped so one unreadable
// subdirectory never aborts a scan.
func (p *Pipeline) ScanFolder(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("cannot scan folder: %w", err)
	}

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			p.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable entry during scan")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if p.extractor.IsAudioFile(path) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// ImportFiles imports the given files in order, returning aggregate counts.
// Cancellation is cooperative: the context is checked once per file
// boundary, and already-imported files stay imported.
func (p *Pipeline) ImportFiles(ctx context.Context, paths []string, opts Options) (*models.ImportSummary, error) {
	return p.importFiles(ctx, uuid.New().String(), paths, opts)
}

func (p *Pipeline) importFiles(ctx context.Context, batchID string, paths []string, opts Options) (*models.ImportSummary, error) {
	summary := &models.ImportSummary{
		BatchID: batchID,
		Total:   len(paths),
	}

	emit := func(event models.ProgressEvent) {
		event.BatchID = batchID
		if opts.Events != nil {
			opts.Events <- event
		}
	}

	processed := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			summary.Cancelled = true
			p.logger.WithFields(logrus.Fields{
				"batch_id":  batchID,
				"processed": processed,
				"total":     summary.Total,
			}).Info("Import batch cancelled")
			emit(models.ProgressEvent{
				Phase:     models.PhaseCancelled,
				Processed: processed,
				Total:     summary.Total,
				Message:   "import cancelled",
			})
			return summary, nil
		}

		status, imported := p.importOne(path)
		processed++

		message := filepath.Base(path)
		switch status {
		case models.StatusImported:
			summary.Imported++
			summary.Tracks = append(summary.Tracks, *imported)
			message = imported.Artist + " - " + imported.Title
		case models.StatusDuplicate:
			summary.Duplicates++
		case models.StatusSkipped:
			summary.Skipped++
		case models.StatusError:
			summary.Errors++
		}

		emit(models.ProgressEvent{
			Phase:     models.PhaseImporting,
			Processed: processed,
			Total:     summary.Total,
			Message:   message,
			Status:    status,
		})
	}

	emit(models.ProgressEvent{
		Phase:     models.PhaseComplete,
		Processed: processed,
		Total:     summary.Total,
	})
	return summary, nil
}

// importOne runs the per-file stages: extract, place, copy, artwork,
// insert, genres. Every failure is classified into a file status; nothing
// escapes to the batch.
func (p *Pipeline) importOne(path string) (models.FileStatus, *models.ImportedTrack) {
	meta, err := p.extractor.Extract(path)
	if err != nil || meta == nil {
		if err != nil {
			p.logger.WithError(err).WithField("file_path", path).Warn("Extraction failed, skipping file")
		}
		return models.StatusSkipped, nil
	}

	dest := p.library.TrackPath(meta, path)
	if _, err := os.Stat(dest); err == nil {
		p.logger.WithField("destination", dest).Debug("Destination already exists, counting duplicate")
		return models.StatusDuplicate, nil
	}

	if err := copyFile(path, dest); err != nil {
		p.logger.WithError(err).WithField("file_path", path).Error("Failed to copy file into library")
		return models.StatusError, nil
	}

	artworkPath := ""
	if meta.Artwork != nil {
		artworkPath, err = p.library.SaveArtwork(meta.Artwork.Data, library.ArtworkAlbum)
		if err != nil {
			p.logger.WithError(err).WithField("file_path", path).Error("Failed to cache artwork")
			os.Remove(dest)
			return models.StatusError, nil
		}
	}

	track := p.buildTrack(meta, path, dest, artworkPath)
	id, err := p.store.InsertTrack(track)
	if err != nil {
		if store.IsUniqueConstraint(err) {
			return models.StatusDuplicate, nil
		}
		p.logger.WithError(err).WithField("file_path", path).Error("Failed to insert track")
		// A copy without a row is partial state; undo it.
		os.Remove(dest)
		return models.StatusError, nil
	}

	if len(meta.Genres) > 0 {
		if err := p.store.AddTrackGenres(id, meta.Genres); err != nil {
			p.logger.WithError(err).WithField("track_id", id).Error("Failed to attach genres")
			return models.StatusError, nil
		}
	}

	p.refreshAlbum(track, artworkPath)

	return models.StatusImported, &models.ImportedTrack{
		ID:     id,
		Title:  track.Title,
		Artist: track.Artist,
		Album:  track.Album,
	}
}

// buildTrack maps extracted metadata to a track row. Title, artist and
// album are never stored empty: a file with zero usable tags still imports
// with a filename-derived title and fixed placeholders.
func (p *Pipeline) buildTrack(meta *models.TrackMetadata, sourcePath, destPath, artworkPath string) *models.Track {
	title := meta.Title
	if title == "" {
		base := filepath.Base(sourcePath)
		title = base[:len(base)-len(filepath.Ext(base))]
	}
	if title == "" {
		title = "Unknown Track"
	}

	artist := meta.Artist
	if artist == "" {
		artist = unknownArtist
	}
	album := meta.Album
	if album == "" {
		album = unknownAlbum
	}

	track := &models.Track{
		FilePath:      destPath,
		Title:         title,
		Artist:        artist,
		Album:         album,
		AlbumArtist:   meta.AlbumArtist,
		TrackNumber:   meta.TrackNumber,
		DiscNumber:    meta.DiscNumber,
		ReleaseYear:   meta.Year,
		Duration:      meta.Duration,
		Bitrate:       meta.Bitrate,
		SampleRate:    meta.SampleRate,
		Codec:         meta.Codec,
		FileSize:      meta.FileSizeBytes,
		IsCompilation: meta.IsCompilation,
		ArtworkPath:   artworkPath,
		DateAdded:     time.Now(),
	}
	if stat, err := os.Stat(sourcePath); err == nil {
		track.DateModified = stat.ModTime()
	}
	return track
}

// refreshAlbum maintains the materialized album aggregate for gallery
// views. It is deliberately not transactional with the track write; a
// failure here just leaves the aggregate stale until the next rebuild.
func (p *Pipeline) refreshAlbum(track *models.Track, artworkPath string) {
	albumID, err := p.store.GetOrCreateAlbum(models.Album{
		Title:         track.Album,
		AlbumArtist:   track.AlbumArtist,
		ReleaseYear:   track.ReleaseYear,
		ArtworkPath:   artworkPath,
		IsCompilation: track.IsCompilation,
	})
	if err != nil {
		p.logger.WithError(err).WithField("album", track.Album).Warn("Failed to refresh album aggregate")
		return
	}
	if err := p.store.UpdateAlbumTrackCount(albumID); err != nil {
		p.logger.WithError(err).WithField("album_id", albumID).Warn("Failed to refresh album track count")
	}
}

// ImportFolder composes a scan phase and an import phase. An empty scan
// result short-circuits to a zero summary without invoking the import
// stage.
func (p *Pipeline) ImportFolder(ctx context.Context, root string, opts Options) (*models.ImportSummary, error) {
	batchID := uuid.New().String()

	if opts.Events != nil {
		opts.Events <- models.ProgressEvent{
			BatchID: batchID,
			Phase:   models.PhaseScanning,
			Message: root,
		}
	}

	files, err := p.ScanFolder(root)
	if err != nil {
		return nil, err
	}

	if opts.Events != nil {
		opts.Events <- models.ProgressEvent{
			BatchID: batchID,
			Phase:   models.PhaseScanning,
			Total:   len(files),
			Message: fmt.Sprintf("found %d audio files", len(files)),
		}
	}

	if len(files) == 0 {
		if opts.Events != nil {
			opts.Events <- models.ProgressEvent{
				BatchID: batchID,
				Phase:   models.PhaseComplete,
			}
		}
		return &models.ImportSummary{BatchID: batchID}, nil
	}

	return p.importFiles(ctx, batchID, files, opts)
}

// ValidatePrerequisites runs the pre-flight checks a caller should make
// before starting a batch: store reachable, library initialized and
// writable. It returns a validity flag plus human-readable reasons.
func (p *Pipeline) ValidatePrerequisites() (bool, []string) {
	var reasons []string

	if p.store == nil {
		reasons = append(reasons, "store is not configured")
	} else if err := p.store.Ping(); err != nil {
		reasons = append(reasons, fmt.Sprintf("store is unreachable: %v", err))
	}

	if p.library == nil {
		reasons = append(reasons, "library manager is not configured")
	} else {
		if _, err := os.Stat(p.library.Root()); err != nil {
			reasons = append(reasons, fmt.Sprintf("library root is missing: %v", err))
		} else if !p.library.Writable() {
			reasons = append(reasons, "library root is not writable")
		}
	}

	return len(reasons) == 0, reasons
}

// copyFile copies src to dst, creating destination directories as needed.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to finalize destination file: %w", err)
	}
	return nil
}
