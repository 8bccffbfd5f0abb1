package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/common"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/release"
	"github.com/CloudNativeWorks/lynx-node/internal/platform"
	"github.com/sirupsen/logrus"
)

// ErrArtifactNotFound is returned when no release carries an asset for the
// host platform.
var ErrArtifactNotFound = release.ErrArtifactNotFound

const (
	binDirPerm os.FileMode = 0755
	binaryPerm os.FileMode = 0755
)

// AssetFinder locates the release asset for a platform
type AssetFinder interface {
	FindAsset(ctx context.Context, profile platform.Profile, extension string, scan int) (release.ReleaseAsset, error)
}

// InstalledArtifact describes the binaries on disk after EnsureInstalled
type InstalledArtifact struct {
	BinaryPaths []string
	// Installed is true when this call downloaded and replaced the binaries.
	Installed bool
	Asset     *release.ReleaseAsset
}

// Options configures an Installer
type Options struct {
	BinDir          string
	Binaries        []string
	Extension       string
	ReleaseScan     int
	DownloadTimeout time.Duration
	Finder          AssetFinder
}

type Installer struct {
	binDir     string
	binaries   []string
	extension  string
	scan       int
	finder     AssetFinder
	downloader *Downloader
	logger     *logrus.Entry
}

func New(opts Options) *Installer {
	if opts.Extension == "" {
		opts.Extension = release.DefaultExtension
	}
	if opts.ReleaseScan <= 0 {
		opts.ReleaseScan = release.DefaultReleaseScan
	}
	logger := logrus.WithField("component", "installer")
	return &Installer{
		binDir:     opts.BinDir,
		binaries:   opts.Binaries,
		extension:  opts.Extension,
		scan:       opts.ReleaseScan,
		finder:     opts.Finder,
		downloader: NewDownloader(opts.DownloadTimeout),
		logger:     logger,
	}
}

// BinaryPaths returns the absolute paths of the managed binaries
func (i *Installer) BinaryPaths() []string {
	paths := make([]string, 0, len(i.binaries))
	for _, name := range i.binaries {
		paths = append(paths, filepath.Join(i.binDir, name))
	}
	return paths
}

// Present reports whether every managed binary exists and is executable
func (i *Installer) Present() bool {
	for _, p := range i.BinaryPaths() {
		if !common.IsExecutable(p) {
			return false
		}
	}
	return true
}

// EnsureInstalled makes sure the node binaries are in place. When they are
// already present nothing is fetched.
func (i *Installer) EnsureInstalled(ctx context.Context, profile platform.Profile) (InstalledArtifact, error) {
	if i.Present() {
		i.logger.Debug("Binaries already installed, skipping download")
		return InstalledArtifact{BinaryPaths: i.BinaryPaths()}, nil
	}

	asset, err := i.finder.FindAsset(ctx, profile, i.extension, i.scan)
	if err != nil {
		if errors.Is(err, ErrArtifactNotFound) {
			i.logger.WithField("platform", profile.String()).Error("No release asset for this platform")
		}
		return InstalledArtifact{}, err
	}

	i.logger.WithFields(logrus.Fields{
		"release": asset.Release,
		"asset":   asset.Filename,
	}).Info("Installing node binaries")

	if err := os.MkdirAll(i.binDir, binDirPerm); err != nil {
		return InstalledArtifact{}, fmt.Errorf("failed to create %s: %w", i.binDir, err)
	}

	archivePath, err := i.downloader.DownloadToTemp(ctx, asset.DownloadURL, i.binDir)
	if err != nil {
		return InstalledArtifact{}, fmt.Errorf("failed to download %s: %w", asset.Filename, err)
	}
	defer func() {
		if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
			i.logger.WithError(err).Warn("Failed to remove downloaded archive")
		}
	}()

	if asset.ChecksumURL != "" {
		sum, err := i.downloader.FetchChecksum(ctx, asset.ChecksumURL)
		if err != nil {
			return InstalledArtifact{}, fmt.Errorf("failed to fetch checksum: %w", err)
		}
		if err := common.VerifyChecksum(i.logger, archivePath, sum); err != nil {
			return InstalledArtifact{}, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
		}
	}

	paths, err := extractBinaries(archivePath, i.binDir, i.binaries, binaryPerm)
	if err != nil {
		return InstalledArtifact{}, err
	}

	i.logger.WithField("binaries", paths).Info("Node binaries installed")
	return InstalledArtifact{BinaryPaths: paths, Installed: true, Asset: &asset}, nil
}
