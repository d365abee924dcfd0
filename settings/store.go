package settings

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Store is the file-backed settings store. Besides Update, the settings
// file itself is watched so out-of-band edits take effect live, the way
// the capture client expects the leaveTrigger flag to behave.
type Store struct {
	path string

	dataMu sync.RWMutex
	data   Settings

	listenerMu sync.RWMutex
	listener   OnChangeListener

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore loads existing settings from disk or uses defaults.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	s := &Store{
		path: filepath.Join(dataDir, "settings.json"),
		data: Default(),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Get() Settings {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return s.data
}

func (s *Store) Update(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.dataMu.Lock()
	if err := s.save(settings); err != nil {
		s.dataMu.Unlock()
		return err
	}
	s.data = settings
	s.dataMu.Unlock()

	s.notify(settings)
	return nil
}

// SetOnChangeListener registers the single change listener. Must be set
// before Watch starts delivering events.
func (s *Store) SetOnChangeListener(l OnChangeListener) {
	s.listenerMu.Lock()
	s.listener = l
	s.listenerMu.Unlock()
}

// Watch starts observing the settings file for external modification.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: atomic replaces recreate the file, and a
	// watch on the file itself would die with the old inode.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	go s.watchLoop()

	slog.Info("settings watcher started", "path", s.path)
	return nil
}

// Close stops the file watcher, if running.
func (s *Store) Close() {
	if s.watcher == nil {
		return
	}
	close(s.done)
	s.watcher.Close()
}

func (s *Store) watchLoop() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.reload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("settings watcher error", "error", err)
		}
	}
}

// reload re-reads the file and notifies when the content changed. Events
// caused by our own atomic save reload identical data and are
// suppressed by the comparison.
func (s *Store) reload() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		slog.Warn("ignoring malformed settings file", "error", err)
		return
	}
	if err := settings.Validate(); err != nil {
		slog.Warn("ignoring invalid settings file", "error", err)
		return
	}

	s.dataMu.Lock()
	changed := s.data != settings
	s.data = settings
	s.dataMu.Unlock()

	if changed {
		slog.Info("settings reloaded from disk", "leaveTrigger", settings.LeaveTrigger, "nameStyle", settings.NameStyle)
		s.notify(settings)
	}
}

func (s *Store) notify(settings Settings) {
	s.listenerMu.RLock()
	listener := s.listener
	s.listenerMu.RUnlock()
	if listener != nil {
		listener.OnSettingsChange(settings)
	}
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		// Fall back to defaults for corrupted JSON
		return nil
	}
	if err := settings.Validate(); err != nil {
		return nil
	}

	s.data = settings
	return nil
}

func (s *Store) save(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "settings-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.path)
}
