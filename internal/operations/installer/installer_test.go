package installer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/release"
	"github.com/CloudNativeWorks/lynx-node/internal/platform"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var debianAmd = platform.Profile{OSFamily: platform.Debian, Arch: platform.AMD64}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(entries[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type fakeFinder struct {
	asset release.ReleaseAsset
	err   error
	calls int32
}

func (f *fakeFinder) FindAsset(ctx context.Context, profile platform.Profile, extension string, scan int) (release.ReleaseAsset, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.asset, f.err
}

type artifactServer struct {
	*httptest.Server
	hits int32
}

func serveArtifact(t *testing.T, archive []byte, checksum string) *artifactServer {
	t.Helper()
	s := &artifactServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/lynx-debian-amd64.zip", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.hits, 1)
		w.Write(archive)
	})
	mux.HandleFunc("/lynx-debian-amd64.zip.sha256", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.hits, 1)
		fmt.Fprintf(w, "%s  lynx-debian-amd64.zip\n", checksum)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestInstaller(binDir string, finder AssetFinder) *Installer {
	return New(Options{
		BinDir:   binDir,
		Binaries: []string{"lynxd", "lynx-cli"},
		Finder:   finder,
	})
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestEnsureInstalled_FreshInstall(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"lynx/lynxd":    "daemon-v1",
		"lynx/lynx-cli": "cli-v1",
		"README.md":     "docs",
	})
	srv := serveArtifact(t, archive, "")
	finder := &fakeFinder{asset: release.ReleaseAsset{
		DownloadURL: srv.URL + "/lynx-debian-amd64.zip",
		Filename:    "lynx-debian-amd64.zip",
		Release:     "v1.0.0",
	}}

	binDir := t.TempDir()
	inst := newTestInstaller(binDir, finder)

	got, err := inst.EnsureInstalled(context.Background(), debianAmd)
	require.NoError(t, err)
	assert.True(t, got.Installed)
	assert.Equal(t, "v1.0.0", got.Asset.Release)
	assert.ElementsMatch(t, []string{filepath.Join(binDir, "lynxd"), filepath.Join(binDir, "lynx-cli")}, got.BinaryPaths)

	data, err := os.ReadFile(filepath.Join(binDir, "lynxd"))
	require.NoError(t, err)
	assert.Equal(t, "daemon-v1", string(data))

	info, err := os.Stat(filepath.Join(binDir, "lynx-cli"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	// archive and staging files are gone, README is not extracted
	assert.Equal(t, []string{"lynx-cli", "lynxd"}, dirNames(t, binDir))
}

func TestEnsureInstalled_CreatesBinDir(t *testing.T) {
	archive := buildZip(t, map[string]string{"lynxd": "daemon-v1", "lynx-cli": "cli-v1"})
	srv := serveArtifact(t, archive, "")
	finder := &fakeFinder{asset: release.ReleaseAsset{
		DownloadURL: srv.URL + "/lynx-debian-amd64.zip",
		Filename:    "lynx-debian-amd64.zip",
	}}

	binDir := filepath.Join(t.TempDir(), "opt", "lynx", "bin")
	_, err := newTestInstaller(binDir, finder).EnsureInstalled(context.Background(), debianAmd)
	require.NoError(t, err)

	info, err := os.Stat(binDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	for _, name := range []string{"lynxd", "lynx-cli"} {
		info, err := os.Stat(filepath.Join(binDir, name))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm(), name)
	}
}

func TestEnsureInstalled_SecondRunIsNoop(t *testing.T) {
	archive := buildZip(t, map[string]string{"lynxd": "daemon-v1", "lynx-cli": "cli-v1"})
	srv := serveArtifact(t, archive, "")
	finder := &fakeFinder{asset: release.ReleaseAsset{DownloadURL: srv.URL + "/lynx-debian-amd64.zip"}}

	binDir := t.TempDir()
	inst := newTestInstaller(binDir, finder)

	_, err := inst.EnsureInstalled(context.Background(), debianAmd)
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(binDir, "lynxd"))
	require.NoError(t, err)
	hitsAfterFirst := atomic.LoadInt32(&srv.hits)

	got, err := inst.EnsureInstalled(context.Background(), debianAmd)
	require.NoError(t, err)
	assert.False(t, got.Installed)
	assert.Nil(t, got.Asset)
	assert.Equal(t, hitsAfterFirst, atomic.LoadInt32(&srv.hits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&finder.calls))

	after, err := os.ReadFile(filepath.Join(binDir, "lynxd"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEnsureInstalled_PartialArchiveReplacesNothing(t *testing.T) {
	archive := buildZip(t, map[string]string{"bin/lynxd": "daemon-v2"})
	srv := serveArtifact(t, archive, "")
	finder := &fakeFinder{asset: release.ReleaseAsset{DownloadURL: srv.URL + "/lynx-debian-amd64.zip"}}

	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "lynxd"), []byte("daemon-v1"), 0755))

	_, err := newTestInstaller(binDir, finder).EnsureInstalled(context.Background(), debianAmd)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArtifactCorrupt))
	assert.Contains(t, err.Error(), "lynx-cli")

	data, err := os.ReadFile(filepath.Join(binDir, "lynxd"))
	require.NoError(t, err)
	assert.Equal(t, "daemon-v1", string(data))
	assert.Equal(t, []string{"lynxd"}, dirNames(t, binDir))
}

func TestEnsureInstalled_NotAnArchive(t *testing.T) {
	srv := serveArtifact(t, []byte("<html>not found</html>"), "")
	finder := &fakeFinder{asset: release.ReleaseAsset{DownloadURL: srv.URL + "/lynx-debian-amd64.zip"}}

	binDir := t.TempDir()
	_, err := newTestInstaller(binDir, finder).EnsureInstalled(context.Background(), debianAmd)
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
	assert.Empty(t, dirNames(t, binDir))
}

func TestEnsureInstalled_ArtifactNotFound(t *testing.T) {
	finder := &fakeFinder{err: fmt.Errorf("%w for %s", ErrArtifactNotFound, debianAmd)}

	_, err := newTestInstaller(t.TempDir(), finder).EnsureInstalled(context.Background(), debianAmd)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestEnsureInstalled_Checksum(t *testing.T) {
	archive := buildZip(t, map[string]string{"lynxd": "d", "lynx-cli": "c"})
	sum := sha256.Sum256(archive)

	t.Run("match", func(t *testing.T) {
		srv := serveArtifact(t, archive, hex.EncodeToString(sum[:]))
		finder := &fakeFinder{asset: release.ReleaseAsset{
			DownloadURL: srv.URL + "/lynx-debian-amd64.zip",
			ChecksumURL: srv.URL + "/lynx-debian-amd64.zip.sha256",
		}}
		got, err := newTestInstaller(t.TempDir(), finder).EnsureInstalled(context.Background(), debianAmd)
		require.NoError(t, err)
		assert.True(t, got.Installed)
	})

	t.Run("mismatch", func(t *testing.T) {
		srv := serveArtifact(t, archive, "deadbeef")
		finder := &fakeFinder{asset: release.ReleaseAsset{
			DownloadURL: srv.URL + "/lynx-debian-amd64.zip",
			ChecksumURL: srv.URL + "/lynx-debian-amd64.zip.sha256",
		}}
		binDir := t.TempDir()
		_, err := newTestInstaller(binDir, finder).EnsureInstalled(context.Background(), debianAmd)
		assert.ErrorIs(t, err, ErrArtifactCorrupt)
		assert.Empty(t, dirNames(t, binDir))
	})
}
