package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CloudNativeWorks/lynx-node/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var debianArm = platform.Profile{OSFamily: platform.Debian, Arch: platform.ARM64}

type fakeGitHub struct {
	latest   *Release
	releases []Release
	status   int
	calls    atomic.Int32
}

func (f *fakeGitHub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/getlynx/Lynx/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		if f.latest == nil {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(f.latest)
	})
	mux.HandleFunc("/repos/getlynx/Lynx/releases", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))
		json.NewEncoder(w).Encode(f.releases)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func assets(names ...string) []Asset {
	out := make([]Asset, len(names))
	for i, n := range names {
		out[i] = Asset{Name: n, BrowserDownloadURL: "https://downloads.example/" + n}
	}
	return out
}

func TestFindAsset_LatestRelease(t *testing.T) {
	gh := &fakeGitHub{latest: &Release{TagName: "v3.0.1", Assets: assets(
		"lynx-debian-amd64.zip", "lynx-debian-arm64.zip", "lynx-debian-arm64.zip.sha256",
	)}}
	srv := gh.server(t)

	client := NewClient(srv.URL, "getlynx/Lynx", time.Second)
	got, err := client.FindAsset(context.Background(), debianArm, ".zip", 10)
	require.NoError(t, err)

	assert.Equal(t, "lynx-debian-arm64.zip", got.Filename)
	assert.Equal(t, "v3.0.1", got.Release)
	assert.Equal(t, "https://downloads.example/lynx-debian-arm64.zip.sha256", got.ChecksumURL)
	assert.Equal(t, debianArm, got.Platform)
	assert.Equal(t, int32(1), gh.calls.Load(), "no widened scan when latest matches")
}

func TestFindAsset_WidensToRecentReleases(t *testing.T) {
	now := time.Now()
	gh := &fakeGitHub{
		latest: &Release{TagName: "v3.1.0", Assets: assets("lynx-debian-amd64.zip")},
		releases: []Release{
			{TagName: "v2.9.0", PublishedAt: now.Add(-48 * time.Hour), Assets: assets("lynx-debian-arm64-old.zip")},
			{TagName: "v3.1.0", PublishedAt: now, Assets: assets("lynx-debian-amd64.zip")},
			{TagName: "v3.0.0", PublishedAt: now.Add(-24 * time.Hour), Assets: assets("lynx-debian-arm64.zip")},
			{TagName: "v3.2.0-draft", Draft: true, PublishedAt: now, Assets: assets("lynx-debian-arm64-draft.zip")},
		},
	}
	srv := gh.server(t)

	client := NewClient(srv.URL, "getlynx/Lynx", time.Second)
	got, err := client.FindAsset(context.Background(), debianArm, ".zip", 10)
	require.NoError(t, err)

	assert.Equal(t, "v3.0.0", got.Release)
	assert.Equal(t, "lynx-debian-arm64.zip", got.Filename)
	assert.Empty(t, got.ChecksumURL)
}

func TestFindAsset_NoLatestRelease(t *testing.T) {
	gh := &fakeGitHub{
		releases: []Release{{TagName: "v1.0.0-rc1", Prerelease: true, Assets: assets("lynx-ubuntu-aarch64.zip")}},
	}
	srv := gh.server(t)

	got, err := NewClient(srv.URL, "getlynx/Lynx", time.Second).FindAsset(context.Background(), debianArm, ".zip", 10)
	require.NoError(t, err)
	assert.Equal(t, "lynx-ubuntu-aarch64.zip", got.Filename)
}

func TestFindAsset_NotFound(t *testing.T) {
	gh := &fakeGitHub{
		latest:   &Release{TagName: "v3.1.0", Assets: assets("lynx-rhel-amd64.zip")},
		releases: []Release{{TagName: "v3.1.0", Assets: assets("lynx-rhel-amd64.zip")}},
	}
	srv := gh.server(t)

	_, err := NewClient(srv.URL, "getlynx/Lynx", time.Second).FindAsset(context.Background(), debianArm, ".zip", 10)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestFindAsset_MetadataFailureIsNotNotFound(t *testing.T) {
	gh := &fakeGitHub{status: http.StatusInternalServerError}
	srv := gh.server(t)

	_, err := NewClient(srv.URL, "getlynx/Lynx", time.Second).FindAsset(context.Background(), debianArm, ".zip", 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtifactNotFound)
}

func TestFindAsset_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	_, err := NewClient(srv.URL, "getlynx/Lynx", 100*time.Millisecond).FindAsset(context.Background(), debianArm, ".zip", 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtifactNotFound)
}

func ExampleSelectFilename() {
	name, ok := SelectFilename(
		[]string{"lynx-debian-amd64.zip", "lynx-debian-arm64.zip", "lynx-rhel-amd64.zip"},
		platform.Profile{OSFamily: platform.RedHat, Arch: platform.AMD64},
		".zip",
	)
	fmt.Println(name, ok)
	// Output: lynx-rhel-amd64.zip true
}
