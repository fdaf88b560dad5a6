package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// settleDelay gives a newly created file time to be fully written before
// the watcher imports it.
const settleDelay = 500 * time.Millisecond

// Watcher monitors a drop folder and imports audio files as they appear,
// one single-file batch per file. New subdirectories are watched
// recursively.
type Watcher struct {
	pipeline *Pipeline
	folder   string
	watcher  *fsnotify.Watcher
	logger   *logrus.Logger
}

// NewWatcher creates a watcher over folder that feeds the given pipeline.
func NewWatcher(pipeline *Pipeline, folder string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Watcher{
		pipeline: pipeline,
		folder:   folder,
		watcher:  fsWatcher,
		logger:   logger,
	}, nil
}

// Start begins monitoring in a goroutine and registers the folder tree.
func (w *Watcher) Start() error {
	go w.watchFiles()

	if err := w.addDirectoryTree(w.folder); err != nil {
		return err
	}

	w.logger.WithField("watch_folder", w.folder).Info("Watch folder monitoring started")
	return nil
}

// addDirectoryTree recursively walks and adds subdirectories to the watcher.
func (w *Watcher) addDirectoryTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events.
func (w *Watcher) watchFiles() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFileEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Watch folder error")
		}
	}
}

// handleFileEvent filters noise and imports newly created audio files.
func (w *Watcher) handleFileEvent(event fsnotify.Event) {
	// Ignore temporary files and hidden files
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	if !event.Has(fsnotify.Create) {
		return
	}

	if w.pipeline.extractor.IsAudioFile(event.Name) {
		go func(name string) {
			time.Sleep(settleDelay) // Ensure file is fully written
			w.importNewFile(name)
		}(event.Name)
		return
	}

	// Check if it's a new directory
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if err := w.watcher.Add(event.Name); err != nil {
			w.logger.WithError(err).WithField("directory", event.Name).Warn("Failed to watch new directory")
			return
		}
		w.logger.WithField("directory", event.Name).Info("Watching new directory")
	}
}

// importNewFile runs a single-file batch through the pipeline.
func (w *Watcher) importNewFile(path string) {
	w.logger.WithField("file_path", path).Info("New audio file detected")

	summary, err := w.pipeline.ImportFiles(context.Background(), []string{path}, Options{})
	if err != nil {
		w.logger.WithError(err).WithField("file_path", path).Error("Failed to import watched file")
		return
	}

	w.logger.WithFields(logrus.Fields{
		"file_path":  path,
		"imported":   summary.Imported,
		"duplicates": summary.Duplicates,
		"skipped":    summary.Skipped,
		"errors":     summary.Errors,
	}).Info("Watched file processed")
}

// Stop closes the watcher (idempotent).
func (w *Watcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}
