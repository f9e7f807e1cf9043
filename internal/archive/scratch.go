package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"folio/internal/logging"
)

// CleanupScratch removes extract directories under root whose contents
// have not been touched within ttl. Extract directories are owned by the
// caller that decoded them; the janitor only reclaims ones abandoned by
// crashed or careless callers.
func CleanupScratch(root string, ttl time.Duration, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read scratch root: %w", err)
	}

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "extract-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to remove stale scratch directory",
				logging.FieldComponent, "archive",
				"path", path,
				"error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("reclaimed stale scratch directories",
			logging.FieldComponent, "archive",
			"removed", removed)
	}
	return removed, nil
}
