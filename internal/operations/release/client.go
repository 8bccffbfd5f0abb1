package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/CloudNativeWorks/lynx-node/internal/platform"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrArtifactNotFound means no release asset matched the platform after the
// widened search. It is distinct from a failed metadata query.
var ErrArtifactNotFound = errors.New("no matching release asset")

var errNoLatestRelease = errors.New("repository has no latest release")

// Client queries release metadata for a single upstream repository
type Client struct {
	baseURL    string
	repository string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *logrus.Entry
}

func NewClient(baseURL, repository string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if repository == "" {
		repository = DefaultRepository
	}
	if timeout <= 0 {
		timeout = DefaultMetadataTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		repository: repository,
		httpClient: &http.Client{Timeout: timeout},
		// Unauthenticated GitHub API calls are tightly rate limited; keep the
		// widened scan polite.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		timeout: timeout,
		logger:  logrus.WithField("component", "release-client"),
	}
}

// Latest returns the repository's latest published release
func (c *Client) Latest(ctx context.Context) (*Release, error) {
	var rel Release
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/releases/latest", c.repository), &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// Recent returns up to n releases ordered newest first, drafts excluded
func (c *Client) Recent(ctx context.Context, n int) ([]Release, error) {
	if n <= 0 {
		n = DefaultReleaseScan
	}
	q := url.Values{}
	q.Set("per_page", fmt.Sprintf("%d", n))

	var releases []Release
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/releases?%s", c.repository, q.Encode()), &releases); err != nil {
		return nil, err
	}

	published := releases[:0]
	for _, r := range releases {
		if !r.Draft {
			published = append(published, r)
		}
	}
	sort.SliceStable(published, func(i, j int) bool {
		return published[i].PublishedAt.After(published[j].PublishedAt)
	})
	if len(published) > n {
		published = published[:n]
	}
	return published, nil
}

// FindAsset picks the asset for profile from the latest release, widening
// the search to the scan most recent releases when the latest has none.
func (c *Client) FindAsset(ctx context.Context, profile platform.Profile, extension string, scan int) (ReleaseAsset, error) {
	log := c.logger.WithFields(logrus.Fields{
		"repository": c.repository,
		"platform":   profile.String(),
	})

	latest, err := c.Latest(ctx)
	switch {
	case errors.Is(err, errNoLatestRelease):
		log.Debug("No latest release published")
	case err != nil:
		return ReleaseAsset{}, err
	default:
		if asset, ok := SelectAsset(latest.Assets, profile, extension); ok {
			log.WithField("asset", asset.Name).Info("Matched asset in latest release")
			return toReleaseAsset(*latest, asset, profile), nil
		}
		log.WithField("release", latest.TagName).Info("Latest release has no matching asset, scanning recent releases")
	}

	releases, err := c.Recent(ctx, scan)
	if err != nil {
		return ReleaseAsset{}, err
	}
	for _, rel := range releases {
		if asset, ok := SelectAsset(rel.Assets, profile, extension); ok {
			log.WithFields(logrus.Fields{
				"release": rel.TagName,
				"asset":   asset.Name,
			}).Info("Matched asset in earlier release")
			return toReleaseAsset(rel, asset, profile), nil
		}
	}

	return ReleaseAsset{}, fmt.Errorf("%w for %s in %s (scanned %d releases)", ErrArtifactNotFound, profile, c.repository, len(releases))
}

func toReleaseAsset(rel Release, asset Asset, profile platform.Profile) ReleaseAsset {
	ra := ReleaseAsset{
		DownloadURL: asset.BrowserDownloadURL,
		Filename:    asset.Name,
		Platform:    profile,
		Release:     rel.TagName,
	}
	for _, a := range rel.Assets {
		if strings.EqualFold(a.Name, asset.Name+".sha256") {
			ra.ChecksumURL = a.BrowserDownloadURL
			break
		}
	}
	return ra
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("release query cancelled: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "lynx-node")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("Failed to fetch release metadata")
		return fmt.Errorf("failed to fetch release metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && strings.HasSuffix(path, "/latest") {
		return errNoLatestRelease
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("release API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode release metadata: %w", err)
	}
	return nil
}
