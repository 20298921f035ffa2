package receipt

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/expensesbot/internal/common"
)

// DefaultRetention is how long receipt images are kept.
const DefaultRetention = 90 * 24 * time.Hour

// Files stores receipt images under <root>/<user>/.
type Files struct {
	logger *slog.Logger
	now    func() time.Time
	root   string
}

// NewFiles creates a receipt file store rooted at dir.
func NewFiles(dir string, logger *slog.Logger) *Files {
	return &Files{
		root:   dir,
		now:    time.Now,
		logger: common.OrDefault(logger),
	}
}

// Root returns the storage directory.
func (f *Files) Root() string {
	return f.root
}

// Save writes data to the user's receipt directory and returns its path.
func (f *Files) Save(userID, name string, data []byte) (string, error) {
	dir := filepath.Join(f.root, safeComponent(userID))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}

	path := filepath.Join(dir, safeComponent(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write receipt: %w", err)
	}
	return path, nil
}

// Cleanup deletes receipts older than retention and removes user
// directories left empty. It returns the number of files deleted.
func (f *Files) Cleanup(retention time.Duration) (int, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}

	userDirs, err := os.ReadDir(f.root)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read receipt directory: %w", err)
	}

	cutoff := f.now().Add(-retention)
	deleted := 0
	for _, userDir := range userDirs {
		if !userDir.IsDir() {
			continue
		}
		userPath := filepath.Join(f.root, userDir.Name())

		entries, err := os.ReadDir(userPath)
		if err != nil {
			f.logger.Warn("Failed to read user receipt directory", "path", userPath, "error", err)
			continue
		}
		remaining := len(entries)
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || entry.IsDir() || !info.ModTime().Before(cutoff) {
				continue
			}
			path := filepath.Join(userPath, entry.Name())
			if err := os.Remove(path); err != nil {
				f.logger.Warn("Failed to delete old receipt", "path", path, "error", err)
				continue
			}
			f.logger.Debug("deleted old receipt", "path", path)
			deleted++
			remaining--
		}

		if remaining == 0 {
			if err := os.Remove(userPath); err != nil {
				f.logger.Warn("Failed to remove empty receipt directory", "path", userPath, "error", err)
			}
		}
	}
	return deleted, nil
}

// safeComponent keeps a user-supplied value from escaping its directory.
func safeComponent(s string) string {
	s = filepath.Base(strings.TrimSpace(s))
	if s == "." || s == ".." || s == string(filepath.Separator) || s == "" {
		return "_"
	}
	return s
}
