package rpc

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var ibdPattern = regexp.MustCompile(`"initialblockdownload"\s*:\s*(true|false)`)

// ParseInitialBlockDownload extracts the initialblockdownload flag from a
// getblockchaininfo payload. The match is textual so payloads that are not
// otherwise valid JSON still work.
func ParseInitialBlockDownload(payload []byte) (bool, error) {
	m := ibdPattern.FindSubmatch(payload)
	if m == nil {
		return false, fmt.Errorf("%w: initialblockdownload not present", ErrStatusUnavailable)
	}
	return string(m[1]) == "true", nil
}

// InitialBlockDownload reports whether the node is still syncing
func (c *Client) InitialBlockDownload(ctx context.Context) (bool, error) {
	raw, err := c.Call(ctx, "getblockchaininfo")
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}
	return ParseInitialBlockDownload(raw)
}

// Version is the first line of `lynxd -version`
type Version struct {
	Name    string `json:"name" yaml:"name"`
	Line    string `json:"version_line" yaml:"version_line"`
	Version string `json:"version" yaml:"version"`
}

// ParseVersion parses `lynxd -version` output, e.g.
// "Lynx Core version v25.0.0" -> name "Lynx", version "v25.0.0".
func ParseVersion(output string) (Version, bool) {
	first, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	first = strings.TrimSpace(first)
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return Version{}, false
	}
	return Version{Name: fields[0], Line: first, Version: fields[len(fields)-1]}, true
}

// NodeVersion runs the daemon binary with -version
func (c *Client) NodeVersion(ctx context.Context, daemonPath string) (Version, error) {
	out, err := c.runner.RunStdout(ctx, daemonPath, "-version")
	if err != nil {
		return Version{}, fmt.Errorf("failed to query %s version: %w", daemonPath, err)
	}
	v, ok := ParseVersion(string(out))
	if !ok {
		return Version{}, fmt.Errorf("%s -version printed nothing", daemonPath)
	}
	return v, nil
}
