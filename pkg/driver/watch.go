package driver

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph"
)

const clusterSuffix = ".fasta"

// WaitForClusterDir blocks until dir exists and holds at least one entry,
// checking every interval and whenever the file system reports a change.
func WaitForClusterDir(ctx context.Context, dir string, interval time.Duration, logger logrus.FieldLogger) error {
	if interval <= 0 {
		return errors.Wrapf(jobgraph.ErrInterval, "waiting for %s every %s", dir, interval)
	}
	ready, err := populated(dir)
	if err != nil || ready {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.WithError(err).Warn("file watching unavailable, polling only")
	} else {
		defer watcher.Close()
		watch(watcher, filepath.Dir(filepath.Clean(dir)), logger)
		watch(watcher, dir, logger)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.WithField("dir", dir).Info("waiting for clusters")
	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for %s", dir)
		case <-ticker.C:
		case event, ok := <-events(watcher):
			if ok && event.Has(fsnotify.Create) && filepath.Clean(event.Name) == filepath.Clean(dir) {
				watch(watcher, dir, logger)
			}
		case err, ok := <-watchErrors(watcher):
			if ok {
				logger.WithError(err).Warn("file watcher error")
			}
		}

		ready, err := populated(dir)
		if err != nil || ready {
			return err
		}
	}
}

func watch(w *fsnotify.Watcher, dir string, logger logrus.FieldLogger) {
	if _, err := os.Stat(dir); err != nil {
		return
	}
	if err := w.Add(dir); err != nil {
		logger.WithError(err).WithField("dir", dir).Debug("unable to watch directory")
	}
}

// events returns the watcher's event channel, nil when there is no watcher so
// the select never picks it.
func events(w *fsnotify.Watcher) chan fsnotify.Event {
	if w == nil {
		return nil
	}

	return w.Events
}

func watchErrors(w *fsnotify.Watcher) chan error {
	if w == nil {
		return nil
	}

	return w.Errors
}

func populated(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		return false, nil
	case err != nil:
		return false, errors.Wrapf(err, "unable to read %s", dir)
	}

	return len(entries) > 0, nil
}

// ClusterFiles returns the names of the cluster FASTA files in dir, sorted.
func ClusterFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", dir)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), clusterSuffix) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	return files, nil
}
