package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileStore keeps settings in a YAML file of flat key/value pairs. The
// file is re-read on every Get so edits made elsewhere are picked up.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path. The file is created on
// the first Set.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("settings file path is empty")
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(_ context.Context, keys ...string) (Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return nil, err
	}
	return filter(all, keys), nil
}

func (s *FileStore) Set(_ context.Context, values Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return err
	}
	for k, v := range values {
		all[k] = v
	}
	return s.write(all)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) read() (Values, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(Values), nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read settings: %w", err)
	}
	values := make(Values)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("unable to parse settings %s: %w", s.path, err)
	}
	return values, nil
}

// write replaces the file atomically. The file holds the API key, so it
// is only readable by the owner.
func (s *FileStore) write(values Values) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("unable to encode settings: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("unable to create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("unable to write settings: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("unable to write settings: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("unable to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("unable to write settings: %w", err)
	}
	return nil
}

// Watch calls fn with the full settings whenever the file changes, until
// ctx is done. The directory is watched so that editors which replace the
// file are handled.
func (s *FileStore) Watch(ctx context.Context, fn func(Values)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("unable to create settings directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	log.Debug("Settings: watching", "file", s.path)

	go func() {
		defer watcher.Close() //nolint:errcheck
		target := filepath.Clean(s.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				values, err := s.Get(ctx)
				if err != nil {
					log.Warn("Settings: reload failed", "error", err)
					continue
				}
				log.Debug("Settings: file changed", "event", event.Op)
				fn(values)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("Settings: watcher error", "error", err)
			}
		}
	}()
	return nil
}
