package release

import (
	"time"

	"github.com/CloudNativeWorks/lynx-node/internal/platform"
)

// Release is the subset of the GitHub release object we read
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Asset is a downloadable file attached to a release
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// ReleaseAsset is the asset chosen for a platform
type ReleaseAsset struct {
	DownloadURL string
	Filename    string
	Platform    platform.Profile
	Release     string
	// ChecksumURL points at a published "<filename>.sha256" file, if any.
	ChecksumURL string
}

// Constants
const (
	DefaultAPIBaseURL      = "https://api.github.com"
	DefaultRepository      = "getlynx/Lynx"
	DefaultExtension       = ".zip"
	DefaultReleaseScan     = 10
	DefaultMetadataTimeout = 30 * time.Second
)
