package installer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrArtifactCorrupt means the archive did not contain every expected
// binary. Nothing in the bin directory is replaced in that case.
var ErrArtifactCorrupt = errors.New("release archive is missing expected binaries")

// maxBinarySize guards against archive entries that inflate without bound
const maxBinarySize = 512 << 20

// extractBinaries copies the named binaries out of archivePath into binDir.
// Entries are matched by base name at any depth; everything else in the
// archive is ignored. All binaries are staged before the first rename.
func extractBinaries(archivePath, binDir string, names []string, perm os.FileMode) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open archive: %v", ErrArtifactCorrupt, err)
	}
	defer r.Close()

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	staged := make(map[string]string, len(names))
	cleanup := func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
		if !wanted[base] {
			continue
		}
		if _, done := staged[base]; done {
			continue
		}
		tmp, err := stageEntry(f, binDir, base)
		if err != nil {
			cleanup()
			return nil, err
		}
		staged[base] = tmp
	}

	var missing []string
	for _, n := range names {
		if _, ok := staged[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		cleanup()
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrArtifactCorrupt, strings.Join(missing, ", "))
	}

	installed := make([]string, 0, len(names))
	for _, n := range names {
		tmp := staged[n]
		if err := os.Chmod(tmp, perm); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to set permissions for %s: %w", n, err)
		}
	}
	for _, n := range names {
		dest := filepath.Join(binDir, n)
		if err := os.Rename(staged[n], dest); err != nil {
			cleanup()
			return installed, fmt.Errorf("failed to install %s: %w", dest, err)
		}
		delete(staged, n)
		installed = append(installed, dest)
	}
	return installed, nil
}

func stageEntry(f *zip.File, binDir, name string) (string, error) {
	if f.UncompressedSize64 > maxBinarySize {
		return "", fmt.Errorf("%w: %s is too large (%d bytes)", ErrArtifactCorrupt, name, f.UncompressedSize64)
	}

	src, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: cannot read %s: %v", ErrArtifactCorrupt, name, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(binDir, "."+name+".partial-*")
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", name, err)
	}

	if _, err := io.Copy(dst, io.LimitReader(src, maxBinarySize)); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("%w: cannot extract %s: %v", ErrArtifactCorrupt, name, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to stage %s: %w", name, err)
	}
	return dst.Name(), nil
}
