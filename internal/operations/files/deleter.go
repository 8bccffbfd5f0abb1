package files

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
)

type DeleteFilesResult struct {
	DeletedFiles []string
	Errors       []error
}

func DeleteFiles(filePaths []string, log *logger.Logger) DeleteFilesResult {
	result := DeleteFilesResult{
		DeletedFiles: []string{},
		Errors:       []error{},
	}

	for _, path := range filePaths {
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				log.Warnf("Failed to remove file %s: %v", path, err)
				result.Errors = append(result.Errors, err)
			}
		} else {
			log.Debugf("Successfully deleted file: %s", path)
			result.DeletedFiles = append(result.DeletedFiles, path)
		}
	}

	return result
}

// OlderThan lists regular files directly inside dir whose name ends with
// suffix and whose modification time is before cutoff. Subdirectories are
// not descended into.
func OlderThan(dir, suffix string, cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var matches []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	return matches, nil
}
