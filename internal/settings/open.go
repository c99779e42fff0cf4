package settings

import (
	"fmt"
	"path/filepath"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open creates the store for backend. For file and sqlite an empty path
// resolves to a default file inside dir.
func Open(backend, path, dir string) (Store, error) {
	switch backend {
	case "", BackendFile:
		if path == "" {
			path = filepath.Join(dir, "settings.yml")
		}
		return NewFileStore(path)
	case BackendSQLite:
		if path == "" {
			path = filepath.Join(dir, "settings.db")
		}
		return OpenSQLite(path)
	case BackendMemory:
		return NewMemoryStore(nil), nil
	default:
		return nil, fmt.Errorf("unknown settings backend %q", backend)
	}
}
